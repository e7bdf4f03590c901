package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/spf13/afero"
)

// Storage writes photos under a directory. Each file is written to a temp
// file in the same directory and renamed into place.
type Storage struct {
	fs  afero.Fs
	dir string
}

func NewStorage(fs afero.Fs, dir string) (*Storage, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage dir %s: %v", domain.ErrIO, dir, err)
	}
	return &Storage{fs: fs, dir: dir}, nil
}

// Dir is the directory photos are written to.
func (s *Storage) Dir() string { return s.dir }

// Fs exposes the backing filesystem, e.g. for afero.NewHttpFs.
func (s *Storage) Fs() afero.Fs { return s.fs }

func (s *Storage) Write(ctx context.Context, name string, data []byte) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%w: invalid file name %q", domain.ErrIO, name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrIO, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", domain.ErrIO, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %v", domain.ErrIO, name, err)
	}

	if err := s.fs.Chmod(tmpName, 0o644); err != nil && !os.IsNotExist(err) {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %v", domain.ErrIO, name, err)
	}
	if err := s.fs.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename %s: %v", domain.ErrIO, name, err)
	}
	return nil
}
