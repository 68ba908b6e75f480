package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/himalfrost/store-api/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// GoogleTokenHeader carries a raw Google ID token for clients that skip the
// session exchange.
const GoogleTokenHeader = "X-Google-Id-Token"

// Authenticator resolves request credentials to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
	AuthenticateGoogle(ctx context.Context, idToken string) (*domain.User, error)
}

// Principal is the caller attached to the request context. SessionID is
// empty when the caller authenticated with a Google ID token.
type Principal struct {
	User      *domain.User
	SessionID string
}

var errNoCredentials = errors.New("no credentials")

// Auth rejects requests without a valid bearer session token or Google ID token.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolve(r, a)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth attaches the caller when credentials are present and lets
// anonymous requests through. Credentials that fail to verify are rejected.
func OptionalAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolve(r, a)
			if errors.Is(err, errNoCredentials) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func resolve(r *http.Request, a Authenticator) (*Principal, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return nil, domain.ErrUnauthorized
		}
		sess, err := a.Authenticate(r.Context(), strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			return nil, err
		}
		return &Principal{User: sess.User, SessionID: sess.SessionID}, nil
	}
	if t := r.Header.Get(GoogleTokenHeader); t != "" {
		u, err := a.AuthenticateGoogle(r.Context(), t)
		if err != nil {
			return nil, err
		}
		return &Principal{User: u}, nil
	}
	return nil, errNoCredentials
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, errNoCredentials) {
		writeJSONError(w, http.StatusUnauthorized, "missing or invalid credentials")
		return
	}
	slog.Error("authenticate request", "err", err)
	writeJSONError(w, http.StatusInternalServerError, "internal server error")
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil && p.User != nil
}

// UserFromContext returns the authenticated user or nil for anonymous callers.
func UserFromContext(ctx context.Context) *domain.User {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.User
	}
	return nil
}
