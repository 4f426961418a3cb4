package resolver

import (
	"context"
	"encoding/json"

	"github.com/danmuck/fmtrelay/internal/filetree"
)

// Options controls how the supervisor spawns a Command.
type Options struct {
	Dir      string
	Env      []string
	Detached bool
}

// Command is a fully resolved invocation.
type Command struct {
	Name    string
	Args    []string
	Options Options
}

// Resolver turns client arguments into a Command or rejects them.
type Resolver interface {
	Resolve(ctx context.Context, args json.RawMessage, root string, tree filetree.Node) (Command, error)
}

// Func adapts a plain function to Resolver.
type Func func(ctx context.Context, args json.RawMessage, root string, tree filetree.Node) (Command, error)

func (f Func) Resolve(ctx context.Context, args json.RawMessage, root string, tree filetree.Node) (Command, error) {
	return f(ctx, args, root, tree)
}
