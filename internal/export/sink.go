package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Sink receives exported entries. Paths are slash-separated and relative to
// the destination root. The filesystem sink is the default; the MinIO sink
// uploads file content to a bucket instead.
type Sink interface {
	// MkdirAll ensures the directory exists. Already existing is not an
	// error.
	MkdirAll(rel string) error
	// CopyFile copies the content file at src to rel, creating parent
	// directories as needed.
	CopyFile(rel, src string) error
	// Symlink creates a symbolic link at rel pointing at target.
	Symlink(rel, target string) error
	// Chtimes sets the entry's modification time. symlink marks entries
	// whose own time must be set without following a link target.
	Chtimes(rel string, mtime time.Time, symlink bool) error
	Close() error
}

// FSSink writes exported entries into a local directory tree.
type FSSink struct {
	root string
}

// NewFSSink creates the destination root and returns a sink writing under
// it.
func NewFSSink(root string) (*FSSink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &FSSink{root: root}, nil
}

func (s *FSSink) path(rel string) string {
	return filepath.Join(s.root, rel)
}

func (s *FSSink) MkdirAll(rel string) error {
	return os.MkdirAll(s.path(rel), 0o755)
}

func (s *FSSink) CopyFile(rel, src string) error {
	dest := s.path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", rel, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", rel, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

func (s *FSSink) Symlink(rel, target string) error {
	dest := s.path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", rel, err)
	}
	return os.Symlink(target, dest)
}

func (s *FSSink) Chtimes(rel string, mtime time.Time, symlink bool) error {
	if symlink {
		return lutimes(s.path(rel), mtime)
	}
	return os.Chtimes(s.path(rel), mtime, mtime)
}

func (s *FSSink) Close() error {
	return nil
}
