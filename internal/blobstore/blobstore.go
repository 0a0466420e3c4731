package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for a key with no stored object.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable wraps backend failures (network, credentials, bucket).
	ErrUnavailable = errors.New("storage unavailable")
)

// Store persists encoded image bytes under tier-scoped keys of the form
// "{tier}/{fileName}". Both variants resolve the same key scheme, so
// retrieval URLs can be derived without round-tripping through storage.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}
