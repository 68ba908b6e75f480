package handler

import (
	"net/http"

	"github.com/himalfrost/store-api/internal/application/ota"
	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/validate"
)

// OTAHandler serves the iOS ad-hoc install flow.
type OTAHandler struct {
	svc ota.Service
	res Responder
}

func NewOTAHandler(svc ota.Service, res Responder) *OTAHandler {
	return &OTAHandler{svc: svc, res: res}
}

func (h *OTAHandler) Page(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.InstallPage(r.Context(), baseURL(r))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OTAHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.Manifest(r.Context(), baseURL(r))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OTAHandler) IPA(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.IPA(r.Context())
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	if d.Path != "" {
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, d.Path)
		return
	}
	http.Redirect(w, r, d.URL, http.StatusFound)
}

func (h *OTAHandler) SetVersion(w http.ResponseWriter, r *http.Request) {
	var in domain.AppVersionInput
	if err := decodeJSON(r, &in); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&in); err != nil {
		h.res.Error(w, r, err)
		return
	}
	v, err := h.svc.SetVersion(r.Context(), in)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// baseURL is the externally visible origin of the request, honouring a TLS
// terminating proxy.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
