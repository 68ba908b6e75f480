package handler

import (
	"net/http"

	"github.com/himalfrost/store-api/internal/application/auth"
	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/validate"
	"github.com/himalfrost/store-api/internal/transport/http/middleware"
)

// AuthHandler handles phone and Google sign-in and session endpoints.
type AuthHandler struct {
	svc auth.Service
	res Responder
}

func NewAuthHandler(svc auth.Service, res Responder) *AuthHandler {
	return &AuthHandler{svc: svc, res: res}
}

func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	sent, err := h.svc.RequestCode(r.Context(), req)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	out, err := h.svc.VerifyCode(r.Context(), req)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req domain.GoogleSignInRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	out, err := h.svc.GoogleSignIn(r.Context(), req.IDToken)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.res.Error(w, r, domain.ErrUnauthorized)
		return
	}
	if p.SessionID == "" {
		writeJSON(w, http.StatusOK, MeEnvelope{User: p.User})
		return
	}
	sess, err := h.svc.Me(r.Context(), p.SessionID)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MeEnvelope{User: sess.User, Session: sess})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.res.Error(w, r, domain.ErrUnauthorized)
		return
	}
	if err := h.svc.Logout(r.Context(), p.SessionID); err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
