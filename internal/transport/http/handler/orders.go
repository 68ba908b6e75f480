package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/himalfrost/store-api/internal/application/order"
	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/validate"
	"github.com/himalfrost/store-api/internal/transport/http/middleware"
)

// OrderHandler handles checkout, order lookup and status endpoints.
type OrderHandler struct {
	svc order.Service
	res Responder
}

func NewOrderHandler(svc order.Service, res Responder) *OrderHandler {
	return &OrderHandler{svc: svc, res: res}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	o, err := h.svc.Create(r.Context(), req, middleware.UserFromContext(r.Context()))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// List is the admin view of every order, optionally narrowed by ?status=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAll(r.Context(), domain.OrderStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListMine(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), chi.URLParam(r, "orderId"), middleware.UserFromContext(r.Context()), r.URL.Query().Get("email"))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelOrderRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.res.Error(w, r, err)
			return
		}
	}
	o, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "orderId"), middleware.UserFromContext(r.Context()), req.Email)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
