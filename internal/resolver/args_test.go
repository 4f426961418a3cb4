package resolver

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/danmuck/fmtrelay/internal/testutil/testlog"
)

func TestArgsAccessors(t *testing.T) {
	testlog.Start(t)
	args, err := ParseArgs(json.RawMessage(`{"s":"x","b":true,"n":2.5,"l":["a","b"],"z":null}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s, err := args.String("s"); err != nil || s != "x" {
		t.Fatalf("String: %q %v", s, err)
	}
	if b, err := args.Bool("b"); err != nil || !b {
		t.Fatalf("Bool: %v %v", b, err)
	}
	if n, err := args.Number("n"); err != nil || n != 2.5 {
		t.Fatalf("Number: %v %v", n, err)
	}
	if l, err := args.Strings("l"); err != nil || len(l) != 2 {
		t.Fatalf("Strings: %v %v", l, err)
	}
	if item, err := args.Index("l", 1); err != nil || string(item) != `"b"` {
		t.Fatalf("Index: %s %v", item, err)
	}
	if _, err := args.Index("l", 2); !errors.Is(err, ErrMissingIndex) {
		t.Fatalf("expected ErrMissingIndex, got %v", err)
	}
	if args.Has("z") {
		t.Fatalf("null attribute should not count as present")
	}
	if _, err := args.String("z"); !errors.Is(err, ErrMissingAttr) {
		t.Fatalf("expected ErrMissingAttr, got %v", err)
	}
	if _, err := args.Bool("s"); !errors.Is(err, ErrNotBool) {
		t.Fatalf("expected ErrNotBool, got %v", err)
	}
	if _, err := args.Number("s"); !errors.Is(err, ErrNotNumber) {
		t.Fatalf("expected ErrNotNumber, got %v", err)
	}
	if _, err := args.Strings("s"); !errors.Is(err, ErrNotList) {
		t.Fatalf("expected ErrNotList, got %v", err)
	}
}

func TestParseArgsRejectsNonObjects(t *testing.T) {
	testlog.Start(t)
	for _, in := range []string{``, `null`, `[]`, `"x"`, `{`} {
		if _, err := ParseArgs(json.RawMessage(in)); !errors.Is(err, ErrNotObject) {
			t.Fatalf("input %q: expected ErrNotObject, got %v", in, err)
		}
	}
}
