package storage

import (
	"context"
	"io"
)

// Store defines the blob operations the item cache relies on
type Store interface {
	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// DeleteFile removes a file from storage
	DeleteFile(ctx context.Context, key string) error

	// SaveFile stores the reader's content under key
	SaveFile(key string, reader io.Reader) error

	// ReadFile opens a file for reading
	ReadFile(key string) (io.ReadCloser, error)
}
