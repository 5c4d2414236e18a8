package serr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceError(t *testing.T) {
	cause := errors.New("boom")
	se := NewServiceError(cause, http.StatusBadRequest, "bad %s", "input")

	assert.Equal(t, "bad input", se.Msg)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.NotEmpty(t, se.StackTrace)
	assert.NotNil(t, se.Env)
	assert.Equal(t, "bad input: boom", se.Error())
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	var err error = NewServiceError(cause, http.StatusNotFound, "missing")

	require.ErrorIs(t, err, cause)

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestServiceError_NoCause(t *testing.T) {
	se := NewServiceError(nil, http.StatusForbidden, "Forbidden")
	assert.Equal(t, "Forbidden", se.Error())
}
