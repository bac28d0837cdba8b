package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound indicates a missing blob.
var ErrObjectNotFound = errors.New("storage: object not found")

// DiskStore keeps blobs under a root directory, one file per object key.
type DiskStore struct {
	root string
}

// NewDiskStore constructs DiskStore, creating the root if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

// Put writes the blob for key, replacing any previous content.
func (d *DiskStore) Put(key string, r io.Reader) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// Get opens the blob for key. The caller closes the reader.
func (d *DiskStore) Get(key string) (io.ReadCloser, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// path resolves a key inside the root, refusing traversal.
func (d *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") {
		return "", ErrObjectNotFound
	}
	return filepath.Join(d.root, clean), nil
}
