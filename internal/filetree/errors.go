package filetree

import (
	"errors"
	"fmt"
)

// Validation failures carry the client-facing message as their text.
var (
	ErrTooDeep          = errors.New("file structure too nested")
	ErrNameTooLong      = errors.New("file name too long")
	ErrInvalidName      = errors.New("invalid file name")
	ErrInvalidStructure = errors.New("Invalid file structure")
)

// ValidationError binds a validation sentinel to its client-facing description.
type ValidationError struct {
	Kind   error
	Path   string
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func tooDeep(path string, max int) error {
	return &ValidationError{
		Kind:   ErrTooDeep,
		Path:   path,
		Detail: fmt.Sprintf("file structure too nested: max depth is %d", max),
	}
}

func nameTooLong(path string, max int) error {
	return &ValidationError{
		Kind:   ErrNameTooLong,
		Path:   path,
		Detail: fmt.Sprintf("filenames may not be longer than %d characters", max),
	}
}

func invalidFileName(path string) error {
	return &ValidationError{
		Kind:   ErrInvalidName,
		Path:   path,
		Detail: "Filenames may only contain letters, numbers, - and _. They must have a non-empty extension or no extension.",
	}
}

func invalidDirName(path string) error {
	return &ValidationError{
		Kind:   ErrInvalidName,
		Path:   path,
		Detail: "Directories may only contain letters, numbers, - and _.",
	}
}

func invalidStructure(path string) error {
	return &ValidationError{
		Kind:   ErrInvalidStructure,
		Path:   path,
		Detail: "Invalid file structure",
	}
}
