package jwtinfra

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_SignVerify(t *testing.T) {
	p, err := NewProvider("s3cret", 7*24*time.Hour)
	require.NoError(t, err)

	tok, exp, err := p.Sign("u1", "customer", "sess1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "sess1", claims.SessionID)
	assert.Equal(t, "customer", claims.Role)
}

func TestProvider_RejectsOtherSecret(t *testing.T) {
	a, _ := NewProvider("one", time.Hour)
	b, _ := NewProvider("two", time.Hour)
	tok, _, err := a.Sign("u1", "customer", "s")
	require.NoError(t, err)

	_, err = b.Verify(tok)
	assert.Error(t, err)
}

func TestProvider_RejectsExpired(t *testing.T) {
	p, _ := NewProvider("s3cret", time.Hour)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := p.Sign("u1", "customer", "s")
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestProvider_RejectsNoneAlg(t *testing.T) {
	p, _ := NewProvider("s3cret", time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestNewProvider_EmptySecret(t *testing.T) {
	_, err := NewProvider("", time.Hour)
	assert.Error(t, err)
}
