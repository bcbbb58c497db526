package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// PutOptions controls how an object is written
type PutOptions struct {
	// Overwrite allows replacing an existing object at the same path.
	// When false, a path collision fails with ErrObjectExists.
	Overwrite   bool
	ContentType string
}

// Storage defines the interface for video blob storage backends
type Storage interface {
	// Put writes the content of reader at path
	Put(ctx context.Context, path string, reader io.Reader, size int64, opts PutOptions) error

	// Locator returns a URL from which the object at path can be retrieved
	Locator(ctx context.Context, path string) (string, error)
}
