package pipeline

import (
	"errors"
	"os"
	"path/filepath"
)

// sentinel is a file whose reappearance after a failed build means the build
// still produced a usable artifact.
type sentinel struct {
	path string
}

func newSentinel(root, rel string) *sentinel {
	if rel == "" {
		return nil
	}
	if !filepath.IsAbs(rel) {
		rel = filepath.Join(root, rel)
	}
	return &sentinel{path: rel}
}

// clear deletes the file; a missing file is fine.
func (s *sentinel) clear() error {
	if s == nil {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *sentinel) present() bool {
	if s == nil {
		return false
	}
	_, err := os.Stat(s.path)
	return err == nil
}
