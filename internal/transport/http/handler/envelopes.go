package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/himalfrost/store-api/internal/domain"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// MeEnvelope is the current caller. Session is nil for Google ID token callers.
type MeEnvelope struct {
	User    *domain.User    `json:"user"`
	Session *domain.Session `json:"session,omitempty"`
}

// UsersPageEnvelope wraps cursor-paginated user listings.
type UsersPageEnvelope struct {
	Users      []domain.User `json:"users"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into v. Malformed bodies map to ErrBadRequest.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return nil
}
