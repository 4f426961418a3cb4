package filetree

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrPathTooLong  = errors.New("path too long")
	ErrPathTooDeep  = errors.New("path too deep")
	ErrPathInvalid  = errors.New("invalid file name")
	ErrPathNotFound = errors.New("path not present in submitted files")
)

// RequirePath checks that rel is a slash-separated path of valid names that
// exists in tree, and returns it joined onto root.
func RequirePath(rel string, tree Node, root string, limits Limits) (string, error) {
	limits = limits.WithDefaults()
	if len(rel) >= (limits.MaxNameLength+1)*limits.MaxDepth {
		return "", ErrPathTooLong
	}
	parts := strings.Split(rel, "/")
	if len(parts) > limits.MaxDepth {
		return "", ErrPathTooDeep
	}
	cur := tree
	for _, part := range parts {
		if !ValidName(part) {
			return "", ErrPathInvalid
		}
		next, ok := cur.Lookup(part)
		if !ok {
			return "", ErrPathNotFound
		}
		cur = next
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}
