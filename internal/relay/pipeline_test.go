package relay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/testutil/testlog"
)

func TestRootCollisionOnlyMatchesRoot(t *testing.T) {
	testlog.Start(t)
	root := filepath.Join(t.TempDir(), "root")
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := filetree.Materialize(root, filetree.Dir(nil))
	if err == nil || !rootCollision(err, root) {
		t.Fatalf("expected collision on root, got %v", err)
	}

	nested := filepath.Join(root, "src")
	err = filetree.Materialize(nested, filetree.Dir(nil))
	if err == nil {
		t.Fatalf("expected mkdir error")
	}
	if rootCollision(err, root) {
		t.Fatalf("nested collision treated as a root collision: %v", err)
	}

	if rootCollision(errors.New("disk full"), root) {
		t.Fatalf("unrelated error treated as a root collision")
	}
}
