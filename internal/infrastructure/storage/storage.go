package storage

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
)

// ErrObjectNotFound is returned by Download when the key does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

// Backend stores artifact payloads under opaque keys.
type Backend interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Health(ctx context.Context) error
}

// New selects the backend named by SCAN_STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Backend, error) {
	if cfg.IsS3Storage() {
		return NewS3Storage(ctx, cfg, log)
	}
	return NewLocalStorage(cfg, log)
}
