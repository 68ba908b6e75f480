package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/require"
)

var (
	customer = &domain.User{UserID: "u1", Role: domain.RoleCustomer, Email: "maya@example.com"}
	admin    = &domain.User{UserID: "a1", Role: domain.RoleAdmin}
	res      = Responder{Production: true}
)

// jsonReq builds a request with v marshalled as the body (nil for none).
func jsonReq(t *testing.T, method, target string, v interface{}) *http.Request {
	t.Helper()
	if v == nil {
		return httptest.NewRequest(method, target, nil)
	}
	var body []byte
	if s, ok := v.(string); ok {
		body = []byte(s)
	} else {
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withParam injects a chi URL param into the request context.
func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// as attaches u as the authenticated caller.
func as(r *http.Request, u *domain.User) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), &middleware.Principal{User: u, SessionID: "s1"}))
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v))
}
