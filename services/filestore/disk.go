// Package filestore keeps uploaded document content, addressed by stored names.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/erasmushub/erasmushub/core"
)

// ErrExists is returned by Save when the stored name is already taken.
var ErrExists = errors.New("stored file already exists")

// Disk stores files flat in a single directory.
type Disk struct {
	dir string
}

var _ core.FileStorage = (*Disk)(nil)

// NewDisk creates dir if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating uploads directory")
	}
	return &Disk{dir: dir}, nil
}

// path rejects refs that would escape the storage directory.
func (d *Disk) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", errors.Errorf("invalid file reference %q", ref)
	}
	return filepath.Join(d.dir, ref), nil
}

func (d *Disk) Save(_ context.Context, name string, content io.Reader) (string, error) {
	p, err := d.path(name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return "", ErrExists
		}
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(p)
		return "", errors.Wrap(err, "closing file")
	}
	return name, nil
}

func (d *Disk) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	p, err := d.path(ref)
	if err != nil {
		return nil, core.ErrNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (d *Disk) Delete(_ context.Context, ref string) error {
	p, err := d.path(ref)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
