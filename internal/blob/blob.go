// Package blob defines the contract for storing item image blobs.
package blob

import (
	"context"
	"errors"
)

// ErrInvalidPath indicates an object path that escapes the store root.
var ErrInvalidPath = errors.New("invalid object path")

// Store persists opaque blobs under hierarchical object paths.
//
// Deleting a missing object is not an error: callers delete old images on a
// best-effort basis and must not fail the surrounding mutation.
type Store interface {
	Put(ctx context.Context, path string, data []byte) (url string, err error)
	Delete(ctx context.Context, path string) error
}
