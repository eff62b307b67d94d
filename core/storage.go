package core

import (
	"context"
	"io"
)

// FileStorage persists uploaded blobs under caller-chosen, collision-free names.
type FileStorage interface {
	// Save writes content under name and returns the stored reference.
	// It fails if name is already taken.
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	// Open returns ErrNotFound when ref does not exist.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Delete is a no-op for a missing ref.
	Delete(ctx context.Context, ref string) error
}
