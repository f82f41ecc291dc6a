// Package blob abstracts object storage for post attachments. The
// sqlite store keeps attachment metadata; the bytes themselves live
// behind this interface.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under the given key.
var ErrNotFound = errors.New("blob: object not found")

// Store reads and writes attachment payloads by key.
type Store interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
