package filetree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirMode  fs.FileMode = 0o755
	fileMode fs.FileMode = 0o644
)

// Materialize writes a validated tree at root. A directory tree creates root
// itself, so root must not exist yet. On error the tree may be partially
// written and the caller owns cleanup.
func Materialize(root string, n Node) error {
	switch n.Kind {
	case KindLeaf:
		if err := os.WriteFile(root, []byte(n.Content), fileMode); err != nil {
			return fmt.Errorf("filetree: write %s: %w", root, err)
		}
		return nil
	case KindDir:
		if err := os.Mkdir(root, dirMode); err != nil {
			return fmt.Errorf("filetree: mkdir %s: %w", root, err)
		}
		for _, name := range n.Names() {
			if err := Materialize(filepath.Join(root, name), n.Children[name]); err != nil {
				return err
			}
		}
		return nil
	default:
		return invalidStructure(root)
	}
}

// Dematerialize removes what Materialize wrote, walking the submitted tree
// rather than re-reading storage. Entries already gone are ignored. A
// directory the process added files to is removed with everything in it.
func Dematerialize(root string, n Node) error {
	switch n.Kind {
	case KindLeaf:
		return removeEntry(root)
	case KindDir:
		var errs []error
		for _, name := range n.Names() {
			if err := Dematerialize(filepath.Join(root, name), n.Children[name]); err != nil {
				errs = append(errs, err)
			}
		}
		if err := removeEntry(root); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	default:
		return invalidStructure(root)
	}
}

func removeEntry(p string) error {
	err := os.Remove(p)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if rerr := os.RemoveAll(p); rerr != nil {
		return fmt.Errorf("filetree: remove %s: %w", p, rerr)
	}
	return nil
}
