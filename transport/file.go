package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const dirPerm = 0o755

// FileTransport stores objects as files under a root directory, one file
// per key with the key's slashes mapped to path separators.
type FileTransport struct {
	root string
}

var _ Transport = (*FileTransport)(nil)

// NewFileTransport returns a transport rooted at dir. The directory does
// not need to exist yet; Put creates it on demand.
func NewFileTransport(dir string) *FileTransport {
	return &FileTransport{root: dir}
}

// Get opens the file stored at key.
func (t *FileTransport) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := t.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

// Put creates or truncates the file at key, creating parent directories
// as needed.
func (t *FileTransport) Put(_ context.Context, key string) (io.WriteCloser, error) {
	p, err := t.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), dirPerm); err != nil {
		return nil, fmt.Errorf("create directories for %s: %w", key, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}
	return f, nil
}

// path maps a storage key to a filesystem path, rejecting keys that would
// escape the transport root.
func (t *FileTransport) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty storage key")
	}
	clean := path.Clean(key)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("storage key %q escapes transport root", key)
	}
	return filepath.Join(t.root, filepath.FromSlash(clean)), nil
}
