// Package blob abstracts the byte store that holds uploaded file content.
//
// The contract is deliberately small (put, get, head, delete) so the
// backing service can be a local directory in development and tests, or an
// S3-compatible bucket (AWS S3, Cloudflare R2) in production.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get and Head when no object exists at the key.
var ErrNotFound = errors.New("blob: object not found")

// PutOptions carries the metadata stored alongside an object and echoed
// back on download.
type PutOptions struct {
	ContentType        string
	ContentDisposition string
}

// Store is the blob store contract.
type Store interface {
	// Put writes the object at key, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader, opts *PutOptions) error

	// Get opens the object for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Head returns the stored object's size in bytes without reading it.
	Head(ctx context.Context, key string) (int64, error)

	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
