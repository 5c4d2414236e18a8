package testutil

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type TestFile struct {
	Name      string
	FieldName string
	Content   io.Reader
}

func SendFile(t testing.TB, h http.Handler, method, path string, file TestFile, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var bodyRW strings.Builder
	writer := multipart.NewWriter(&bodyRW)

	part, err := writer.CreateFormFile(file.FieldName, file.Name)
	require.NoError(t, err)

	_, err = io.Copy(part, file.Content)
	require.NoError(t, err)

	err = writer.Close()
	require.NoError(t, err)

	req, err := http.NewRequest(method, path, strings.NewReader(bodyRW.String()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addCookies(req, cookies)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

// SendRequest encodes body as JSON, unless it is nil, and serves the request through h.
func SendRequest(t testing.TB, h http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var bodyRW strings.Builder
	if body != nil {
		enc := json.NewEncoder(&bodyRW)
		err := enc.Encode(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, path, strings.NewReader(bodyRW.String()))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addCookies(req, cookies)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func ParseResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	dec := json.NewDecoder(rec.Body)
	var resp T
	err := dec.Decode(&resp)
	require.NoError(t, err)

	return resp
}

// ResponseCookie returns the cookie named name set by the response, or nil.
func ResponseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func WaitFor(t testing.TB, ctx context.Context, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

func addCookies(req *http.Request, cookies []*http.Cookie) {
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
}
