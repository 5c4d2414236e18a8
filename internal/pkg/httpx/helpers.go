package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/riya-gandhi/authentication-api/internal/pkg/serr"
)

// Message is the body of every plain acknowledgement and error response.
type Message struct {
	Message string `json:"message"`
}

func ReadJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

func WriteJSON(w http.ResponseWriter, status int, resp any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	return enc.Encode(resp)
}

func WriteMessage(w http.ResponseWriter, status int, msg string) error {
	return WriteJSON(w, status, Message{Message: msg})
}

func HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *serr.ServiceError
	if errors.As(err, &se) {
		attrs := []any{
			"error", err,
			"status", se.StatusCode,
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		}
		for k, v := range se.Env {
			attrs = append(attrs, k, v)
		}

		if se.StatusCode >= http.StatusInternalServerError {
			slog.Error("request error", attrs...)
		} else {
			slog.Info("request rejected", attrs...)
		}

		_ = WriteMessage(w, se.StatusCode, se.Msg)
		return
	}

	slog.Error("request error",
		"error", err,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	)

	_ = WriteMessage(w, http.StatusInternalServerError, "Internal Server Error")
}
