package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/danmuck/fmtrelay/internal/filetree"
)

var (
	ErrToolNameRequired    = errors.New("resolver: tool name required")
	ErrToolCommandRequired = errors.New("resolver: tool command required")
	ErrDuplicateTool       = errors.New("resolver: duplicate tool")
)

// ToolSpec describes one tool a client may select by name.
type ToolSpec struct {
	Name         string
	Command      string
	Args         []string
	Env          []string
	AllowedFlags []string
	Detached     bool
}

// ToolResolver resolves arguments of the form
//
//	{"tool": "<name>", "files": ["path/in/tree", ...], "flags": ["-x", ...]}
//
// against a fixed table of tools. The argv is the tool's configured args,
// then the requested flags, then the requested files as absolute paths.
type ToolResolver struct {
	tools  map[string]ToolSpec
	limits filetree.Limits
}

func NewToolResolver(specs []ToolSpec, limits filetree.Limits) (*ToolResolver, error) {
	tools := make(map[string]ToolSpec, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		spec.Command = strings.TrimSpace(spec.Command)
		if spec.Name == "" {
			return nil, ErrToolNameRequired
		}
		if spec.Command == "" {
			return nil, fmt.Errorf("%w: %s", ErrToolCommandRequired, spec.Name)
		}
		if _, exists := tools[spec.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
		}
		tools[spec.Name] = spec
	}
	return &ToolResolver{tools: tools, limits: limits.WithDefaults()}, nil
}

// Names lists configured tools in sorted order.
func (r *ToolResolver) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ToolResolver) Resolve(ctx context.Context, raw json.RawMessage, root string, tree filetree.Node) (Command, error) {
	if err := ctx.Err(); err != nil {
		return Command{}, err
	}
	args, err := ParseArgs(raw)
	if err != nil {
		return Command{}, errors.New("arguments must be an object")
	}

	name, err := args.String("tool")
	if err != nil {
		return Command{}, fmt.Errorf("tool attribute: %v", err)
	}
	spec, ok := r.tools[name]
	if !ok {
		return Command{}, fmt.Errorf("unsupported tool: %s", name)
	}

	argv := slices.Clone(spec.Args)

	if args.Has("flags") {
		flags, err := args.Strings("flags")
		if err != nil {
			return Command{}, fmt.Errorf("flags attribute: %v", err)
		}
		for _, flag := range flags {
			if !slices.Contains(spec.AllowedFlags, flag) {
				return Command{}, fmt.Errorf("flag not allowed: %s", flag)
			}
			argv = append(argv, flag)
		}
	}

	if args.Has("files") {
		files, err := args.Strings("files")
		if err != nil {
			return Command{}, fmt.Errorf("files attribute: %v", err)
		}
		for _, rel := range files {
			p, err := filetree.RequirePath(rel, tree, root, r.limits)
			if err != nil {
				return Command{}, fmt.Errorf("%s: %v", rel, err)
			}
			argv = append(argv, p)
		}
	}

	return Command{
		Name: spec.Command,
		Args: argv,
		Options: Options{
			Dir:      root,
			Env:      slices.Clone(spec.Env),
			Detached: spec.Detached,
		},
	}, nil
}
