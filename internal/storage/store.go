package storage

import (
	"context"
	"io"
)

// ObjectStore holds uploaded customer media and saved gallery images.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL returns a URL the model endpoints and the browser can fetch.
	URL(ctx context.Context, key string) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}
