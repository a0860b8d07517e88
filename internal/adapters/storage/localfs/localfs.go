package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage guarda archivos subidos en un directorio local servido como
// /uploads/ por el HTTP server.
type Storage struct {
	dir string
}

func New(dir string) *Storage { return &Storage{dir: dir} }

func (s *Storage) Save(_ context.Context, name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	fname := uuid.New().String() + ext
	full := filepath.Join(s.dir, fname)
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", err
	}
	return "uploads/" + fname, nil
}

func (s *Storage) Remove(_ context.Context, path string) error {
	base := filepath.Base(path)
	if base == "." || base == "/" || base == "" {
		return nil
	}
	full := filepath.Join(s.dir, base)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
