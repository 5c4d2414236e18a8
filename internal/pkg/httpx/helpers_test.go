package httpx_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riya-gandhi/authentication-api/internal/pkg/httpx"
	"github.com/riya-gandhi/authentication-api/internal/pkg/serr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"message":"hello"}`))

	var m httpx.Message
	require.NoError(t, httpx.ReadJSON(req, &m))
	assert.Equal(t, "hello", m.Message)
}

func TestReadJSON_Invalid(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))

	var m httpx.Message
	require.Error(t, httpx.ReadJSON(req, &m))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := httpx.WriteJSON(rec, http.StatusCreated, map[string]int{"id": 1})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestHandleErr_ServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/profile", nil)

	se := serr.NewServiceError(errors.New("no session"), http.StatusUnauthorized, "Unauthorized")
	httpx.HandleErr(rec, req, fmt.Errorf("wrapped: %w", se))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
}

func TestHandleErr_Internal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/profile", nil)

	httpx.HandleErr(rec, req, errors.New("db exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rec.Body.String())
}
