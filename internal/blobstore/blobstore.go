package blobstore

import (
	"context"
	"io"
)

// Store is a durable object store addressed by object name
type Store interface {
	// Upload writes the content of r to the named object, replacing it if present
	Upload(ctx context.Context, name, contentType string, r io.Reader) error

	// Exists reports whether the named object is present
	Exists(ctx context.Context, name string) (bool, error)

	// Download returns the full content of the named object
	Download(ctx context.Context, name string) ([]byte, error)

	// URI returns the address of the named object as understood by the cluster
	URI(name string) string
}
