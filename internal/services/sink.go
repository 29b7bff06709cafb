package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrArtifactExists is returned by Sink.Put when the destination is taken.
var ErrArtifactExists = errors.New("artifact already exists")

// Sink stores files under a root, addressed by slash-separated relative paths.
type Sink interface {
	// Put creates relPath exactly once. Readers never observe a partial file.
	Put(ctx context.Context, relPath string, data []byte) error
	// Replace creates or overwrites relPath atomically.
	Replace(ctx context.Context, relPath string, data []byte) error
	// Location is the user-facing address of relPath.
	Location(relPath string) string
}

// LocalSink writes under a directory on the local filesystem.
type LocalSink struct {
	root string
}

func NewLocalSink(root string) *LocalSink {
	return &LocalSink{root: root}
}

func (s *LocalSink) Location(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

func (s *LocalSink) Put(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFileAtomic(s.Location(relPath), data, true)
}

func (s *LocalSink) Replace(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFileAtomic(s.Location(relPath), data, false)
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and moves
// it into place. With exclusive set an existing path is never replaced.
func WriteFileAtomic(path string, data []byte, exclusive bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if !exclusive {
		if err := os.Rename(tmpName, path); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", path, err)
		}
		return nil
	}

	// A hard link fails if path exists, which makes the publish exclusive.
	err = os.Link(tmpName, path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s: %w", path, ErrArtifactExists)
	}
	// Filesystems without hard links fall back to check-then-rename.
	if _, statErr := os.Lstat(path); statErr == nil {
		return fmt.Errorf("%s: %w", path, ErrArtifactExists)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
