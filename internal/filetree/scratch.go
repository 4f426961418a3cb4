package filetree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Scratch hands out per-submission root paths under one shared directory.
type Scratch struct {
	root string
}

// NewScratch resolves dir to an absolute path and makes sure it exists.
// An empty dir selects os.TempDir().
func NewScratch(dir string) (*Scratch, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = os.TempDir()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filetree: scratch root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, fmt.Errorf("filetree: scratch root %q: %w", abs, err)
	}
	return &Scratch{root: abs}, nil
}

func (s *Scratch) Root() string {
	return s.root
}

// Allocate returns a fresh id and the root path it owns. Nothing is created.
func (s *Scratch) Allocate() (string, string) {
	id := uuid.NewString()
	return id, filepath.Join(s.root, id)
}
