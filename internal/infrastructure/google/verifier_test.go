package google

import (
	"context"
	"errors"
	"testing"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestVerifier_ExtractsClaims(t *testing.T) {
	v := NewVerifier("client-123")
	v.validate = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		assert.Equal(t, "tok", token)
		assert.Equal(t, "client-123", audience)
		return &idtoken.Payload{Subject: "sub-1", Claims: map[string]interface{}{
			"email":          "maya@example.com",
			"email_verified": true,
			"given_name":     "Maya",
			"family_name":    "Gurung",
		}}, nil
	}

	p, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", p.Sub)
	assert.Equal(t, "maya@example.com", p.Email)
	assert.True(t, p.EmailVerified)
	assert.Equal(t, "Maya Gurung", p.Name)
}

func TestVerifier_InvalidToken(t *testing.T) {
	v := NewVerifier("client-123")
	v.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("bad signature")
	}
	_, err := v.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifier_Unconfigured(t *testing.T) {
	_, err := NewVerifier("").Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
