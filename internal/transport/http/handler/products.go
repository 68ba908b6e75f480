package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/himalfrost/store-api/internal/application/product"
	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/validate"
)

// maxImageBytes bounds product image uploads.
const maxImageBytes = 10 << 20

// ProductHandler handles catalog endpoints.
type ProductHandler struct {
	svc product.Service
	res Responder
}

func NewProductHandler(svc product.Service, res Responder) *ProductHandler {
	return &ProductHandler{svc: svc, res: res}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Category: q.Get("category"),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	var err error
	if f.Featured, err = boolParam(q.Get("featured")); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if f.InStock, err = boolParam(q.Get("in_stock")); err != nil {
		h.res.Error(w, r, err)
		return
	}
	products, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&in); err != nil {
		h.res.Error(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductUpdate
	if err := decodeJSON(r, &in); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&in); err != nil {
		h.res.Error(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "product deleted"})
}

// UploadImage accepts a multipart form with the picture in the "image" field.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		h.res.Error(w, r, fmt.Errorf("invalid multipart form: %w", domain.ErrBadRequest))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.res.Error(w, r, fmt.Errorf("image field is required: %w", domain.ErrBadRequest))
		return
	}
	defer file.Close()

	p, err := h.svc.UploadImage(r.Context(), chi.URLParam(r, "id"), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func boolParam(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%q is not a boolean: %w", v, domain.ErrBadRequest)
	}
	return &b, nil
}
