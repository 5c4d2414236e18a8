package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"
	"github.com/riya-gandhi/authentication-api/internal/services/account/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userWithID(id int64) store.User {
	return store.User{ID: id}
}

func newTestCookies(secret string) *Cookies {
	return NewCookies(CookiesConfig{
		Signer: token.NewJWTIssuer(token.JwtConfig{
			Secret: token.NewSecretString(secret),
			Issuer: "test",
			TTL:    time.Hour,
		}),
		MaxAge: time.Hour,
	})
}

func TestCookies_WriteRead(t *testing.T) {
	c := newTestCookies("secret")

	rec := httptest.NewRecorder()
	require.NoError(t, c.Write(rec, "sid-1"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, DefaultCookieName, ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, 3600, ck.MaxAge)
	assert.NotContains(t, ck.Value, "sid-1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)

	sid, err := c.Read(req)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)
}

func TestCookies_ReadMissing(t *testing.T) {
	c := newTestCookies("secret")

	sid, err := c.Read(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, sid)
}

func TestCookies_ReadForged(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, newTestCookies("other").Write(rec, "sid-1"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	_, err := newTestCookies("secret").Read(req)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestCookies_Clear(t *testing.T) {
	c := newTestCookies("secret")

	rec := httptest.NewRecorder()
	c.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
