// Package file stores catalog documents as files under a root directory,
// one file per address. Writes go to a temp file in the target directory and
// are renamed into place, so readers never observe a torn document.
package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rzbill/catalog/internal/storage"
)

// Options configures the file backend.
type Options struct {
	// Root is the directory documents are stored under. Required.
	Root string
	// BaseAddress is the address prefix mapped onto Root. Required.
	BaseAddress string
	// PermFile and PermDir default to 0644 and 0755.
	PermFile os.FileMode
	PermDir  os.FileMode
}

// Storage implements storage.Storage on the local file system.
type Storage struct {
	root  string
	base  string
	permF os.FileMode
	permD os.FileMode
}

var _ storage.Storage = (*Storage)(nil)

// New validates opts and creates the root directory.
func New(opts Options) (*Storage, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("file: Options.Root is required")
	}
	if err := storage.ValidateBase(opts.BaseAddress); err != nil {
		return nil, err
	}
	s := &Storage{root: opts.Root, base: opts.BaseAddress, permF: opts.PermFile, permD: opts.PermDir}
	if s.permF == 0 {
		s.permF = 0o644
	}
	if s.permD == 0 {
		s.permD = 0o755
	}
	if err := os.MkdirAll(s.root, s.permD); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) path(address string) (string, error) {
	rel, err := storage.Relative(s.base, address)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", storage.ErrOutsideBase
	}
	return filepath.Join(s.root, clean), nil
}

func (s *Storage) Save(ctx context.Context, address string, content *storage.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.path(address)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, s.permD); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, s.permF)
	if _, err := tmp.Write(content.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Storage) Load(ctx context.Context, address string) (*storage.Content, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p, err := s.path(address)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &storage.Content{Data: b, ContentType: contentTypeFor(p)}, true, nil
}

func (s *Storage) LoadString(ctx context.Context, address string) (string, bool, error) {
	c, ok, err := s.Load(ctx, address)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(c.Data), true, nil
}

func (s *Storage) ResolveURI(relative string) string { return storage.Resolve(s.base, relative) }

func (s *Storage) BaseAddress() string { return s.base }

func contentTypeFor(path string) string {
	if strings.HasSuffix(path, ".json") {
		return storage.ContentTypeJSON
	}
	return "application/octet-stream"
}
