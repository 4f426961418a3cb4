package filetree

import (
	"path"
	"regexp"
)

const (
	DefaultMaxDepth      = 6
	DefaultMaxNameLength = 64
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)?$`)

// Limits bounds the shape of an accepted tree.
type Limits struct {
	MaxDepth      int
	MaxNameLength int
}

func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      DefaultMaxDepth,
		MaxNameLength: DefaultMaxNameLength,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	def := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = def.MaxDepth
	}
	if l.MaxNameLength <= 0 {
		l.MaxNameLength = def.MaxNameLength
	}
	return l
}

// ValidName reports whether name is a single safe path segment.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Validate checks n against limits without touching the filesystem.
func Validate(n Node, limits Limits) error {
	return validate(n, limits.WithDefaults(), "", 0)
}

func validate(n Node, limits Limits, at string, depth int) error {
	if depth == limits.MaxDepth {
		return tooDeep(at, limits.MaxDepth)
	}

	switch n.Kind {
	case KindLeaf:
		return nil
	case KindDir:
		// sorted so the reported failure does not depend on map order
		for _, name := range n.Names() {
			child := n.Children[name]
			childPath := path.Join(at, name)
			if err := validateName(name, child, limits, childPath); err != nil {
				return err
			}
			if err := validate(child, limits, childPath, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return invalidStructure(at)
	}
}

func validateName(name string, child Node, limits Limits, at string) error {
	if !child.IsLeaf() {
		if !ValidName(name) {
			return invalidDirName(at)
		}
		return nil
	}
	if len(name) > limits.MaxNameLength {
		return nameTooLong(at, limits.MaxNameLength)
	}
	if !ValidName(name) {
		return invalidFileName(at)
	}
	return nil
}
