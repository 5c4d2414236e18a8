package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/riya-gandhi/authentication-api/internal/pkg/serr"
)

const (
	defaultMaxBytes     = 5 << 20
	defaultMaxDimension = 4096
)

var ErrNotFound = errors.New("photo not found")

// Backend stores photo bytes and hands out references clients can fetch them by.
type Backend interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
	// Owns reports whether ref was produced by this backend.
	Owns(ref string) bool
}

// Service validates uploaded photos and keeps them in a Backend.
type Service struct {
	backend   Backend
	maxBytes  int64
	maxWidth  int
	maxHeight int
}

type ServiceConfig struct {
	Backend   Backend
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Backend == nil {
		panic("photo backend is required")
	}

	s := &Service{
		backend:   cfg.Backend,
		maxBytes:  cfg.MaxBytes,
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxBytes
	}
	if s.maxWidth <= 0 {
		s.maxWidth = defaultMaxDimension
	}
	if s.maxHeight <= 0 {
		s.maxHeight = defaultMaxDimension
	}

	return s
}

// Upload validates img and stores it under a fresh name, returning its reference.
func (s *Service) Upload(ctx context.Context, img io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(img, s.maxBytes+1))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", serr.NewServiceError(err, http.StatusRequestEntityTooLarge, "Image size exceeded")
		}
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", serr.NewServiceError(nil, http.StatusRequestEntityTooLarge, "Image size exceeded")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", serr.NewServiceError(err, http.StatusBadRequest, "Unsupported image format")
	}
	if cfg.Width > s.maxWidth || cfg.Height > s.maxHeight {
		return "", serr.NewServiceError(nil, http.StatusRequestEntityTooLarge, "Image dimensions exceeded")
	}

	name := uuid.NewString() + extension(format)
	ref, err := s.backend.Save(ctx, name, "image/"+format, data)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	return ref, nil
}

// Remove deletes a photo this service stored. References it does not own, such as
// provider avatars, are left alone. A photo that is already gone is not an error.
func (s *Service) Remove(ctx context.Context, ref string) error {
	if ref == "" || !s.backend.Owns(ref) {
		return nil
	}

	if err := s.backend.Delete(ctx, ref); err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Warn("photo already removed", "ref", ref)
			return nil
		}
		return fmt.Errorf("delete image: %w", err)
	}

	return nil
}

func extension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	default:
		return "." + format
	}
}
