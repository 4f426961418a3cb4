package resolver

import (
	"encoding/json"
	"errors"
)

var (
	ErrNotObject    = errors.New("not an object")
	ErrNotString    = errors.New("not a string")
	ErrNotList      = errors.New("not a list")
	ErrNotBool      = errors.New("not a bool")
	ErrNotNumber    = errors.New("not a number")
	ErrMissingAttr  = errors.New("object does not have attribute")
	ErrMissingIndex = errors.New("list does not have index")
)

// Args is a decoded argument object with typed accessors.
type Args map[string]json.RawMessage

// ParseArgs decodes raw as a JSON object.
func ParseArgs(raw json.RawMessage) (Args, error) {
	var out Args
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrNotObject
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ErrNotObject
	}
	return out, nil
}

// Has reports whether attr is present and not null.
func (a Args) Has(attr string) bool {
	v, ok := a[attr]
	return ok && string(v) != "null"
}

func (a Args) attr(attr string) (json.RawMessage, error) {
	if !a.Has(attr) {
		return nil, ErrMissingAttr
	}
	return a[attr], nil
}

func (a Args) String(attr string) (string, error) {
	raw, err := a.attr(attr)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", ErrNotString
	}
	return s, nil
}

func (a Args) Bool(attr string) (bool, error) {
	raw, err := a.attr(attr)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, ErrNotBool
	}
	return b, nil
}

func (a Args) Number(attr string) (float64, error) {
	raw, err := a.attr(attr)
	if err != nil {
		return 0, err
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, ErrNotNumber
	}
	return f, nil
}

// Strings decodes attr as a list of strings.
func (a Args) Strings(attr string) ([]string, error) {
	raw, err := a.attr(attr)
	if err != nil {
		return nil, err
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, ErrNotList
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, ErrNotString
		}
		out = append(out, s)
	}
	return out, nil
}

// Index returns element idx of a list attribute.
func (a Args) Index(attr string, idx int) (json.RawMessage, error) {
	raw, err := a.attr(attr)
	if err != nil {
		return nil, err
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, ErrNotList
	}
	if idx < 0 || idx >= len(list) || string(list[idx]) == "null" {
		return nil, ErrMissingIndex
	}
	return list[idx], nil
}
