package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDestination writes exports into a local directory. Each write
// replaces the previous file atomically.
type FileDestination struct {
	dir string
}

// NewFileDestination creates a destination rooted at dir.
func NewFileDestination(dir string) *FileDestination {
	return &FileDestination{dir: dir}
}

// Path returns where an export named name is written.
func (d *FileDestination) Path(name string) string {
	return filepath.Join(d.dir, filepath.Base(name))
}

func (d *FileDestination) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	target := d.Path(name)
	tmp, err := os.CreateTemp(d.dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
