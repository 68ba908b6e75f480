package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/himalfrost/store-api/internal/application/user"
	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/validate"
	"github.com/himalfrost/store-api/internal/transport/http/middleware"
)

// UserHandler handles profile and admin user endpoints.
type UserHandler struct {
	svc user.Service
	res Responder
}

func NewUserHandler(svc user.Service, res Responder) *UserHandler {
	return &UserHandler{svc: svc, res: res}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		h.res.Error(w, r, domain.ErrUnauthorized)
		return
	}
	u, err := h.svc.Get(r.Context(), caller.UserID)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		h.res.Error(w, r, domain.ErrUnauthorized)
		return
	}
	var req domain.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), caller.UserID, req)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List pages through users with ?limit= and the opaque ?cursor= from the
// previous page.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, next, err := h.svc.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsersPageEnvelope{Users: users, NextCursor: next})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		h.res.Error(w, r, err)
		return
	}
	actor := middleware.UserFromContext(r.Context())
	if actor == nil {
		h.res.Error(w, r, domain.ErrUnauthorized)
		return
	}
	u, err := h.svc.UpdateRole(r.Context(), actor.UserID, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.res.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
