package transport

import (
	"context"
	"io"
)

// Transport reads and writes objects in a storage backend.
type Transport interface {
	// Get opens the object stored at key for reading. The caller owns the
	// returned reader and must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put opens the object at key for writing, replacing any previous
	// content. The object is not guaranteed to be visible until Close
	// returns nil, and a Close error means the object must not be trusted.
	Put(ctx context.Context, key string) (io.WriteCloser, error)
}
