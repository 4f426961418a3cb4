package tools

import (
	"errors"
	"slices"
	"testing"

	"github.com/danmuck/fmtrelay/internal/testutil/testlog"
)

type fakeLookup map[string]bool

func (f fakeLookup) Lookup(name string) (string, error) {
	if f[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func TestMissing(t *testing.T) {
	testlog.Start(t)
	lookup := fakeLookup{"gofmt": true}
	got := Missing(lookup, "gofmt", "prettier", "", "prettier", "black")
	if !slices.Equal(got, []string{"prettier", "black"}) {
		t.Fatalf("unexpected missing: %v", got)
	}
}

func TestPathLookupFindsShell(t *testing.T) {
	testlog.Start(t)
	if got := Missing(PathLookup{}, "sh", "definitely-not-installed-tool"); !slices.Equal(got, []string{"definitely-not-installed-tool"}) {
		t.Fatalf("unexpected missing: %v", got)
	}
}
