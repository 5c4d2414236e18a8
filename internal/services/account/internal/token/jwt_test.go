package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(secret string, ttl time.Duration) *JwtIssuer {
	return NewJWTIssuer(JwtConfig{
		Issuer:    "test-issuer",
		Secret:    NewSecretString(secret),
		Algorithm: jwt.SigningMethodHS256.Name,
		TTL:       ttl,
	})
}

func TestJWTIssuer(t *testing.T) {
	issuer := newTestIssuer("test_secret", time.Hour)

	tokenStr, err := issuer.Issue("session-123")
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	sid, err := issuer.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sid)
}

func TestJWTIssuer_EmptySession(t *testing.T) {
	issuer := newTestIssuer("test_secret", time.Hour)

	_, err := issuer.Issue("")
	require.Error(t, err)
}

func TestJWTIssuer_WrongSecret(t *testing.T) {
	tokenStr, err := newTestIssuer("secret-a", time.Hour).Issue("session-123")
	require.NoError(t, err)

	_, err = newTestIssuer("secret-b", time.Hour).Validate(tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_Expired(t *testing.T) {
	issuer := newTestIssuer("test_secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tokenStr, err := issuer.Issue("session-123")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Validate(tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_WrongIssuer(t *testing.T) {
	other := NewJWTIssuer(JwtConfig{
		Issuer: "someone-else",
		Secret: NewSecretString("test_secret"),
		TTL:    time.Hour,
	})
	tokenStr, err := other.Issue("session-123")
	require.NoError(t, err)

	_, err = newTestIssuer("test_secret", time.Hour).Validate(tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_RejectsNoneAlgorithm(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		ID:        "session-123",
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestIssuer("test_secret", time.Hour).Validate(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_Garbage(t *testing.T) {
	_, err := newTestIssuer("test_secret", time.Hour).Validate("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
