package filetree

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
)

// Kind tags a Node as a file or a directory.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindLeaf
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindDir:
		return "dir"
	default:
		return "invalid"
	}
}

// Node is one entry of a submitted tree: a leaf holding file content or a
// directory mapping names to children.
type Node struct {
	Kind     Kind
	Content  string
	Children map[string]Node
}

func Leaf(content string) Node {
	return Node{Kind: KindLeaf, Content: content}
}

func Dir(children map[string]Node) Node {
	if children == nil {
		children = map[string]Node{}
	}
	return Node{Kind: KindDir, Children: children}
}

func (n Node) IsLeaf() bool {
	return n.Kind == KindLeaf
}

func (n Node) IsDir() bool {
	return n.Kind == KindDir
}

// Names returns directory entry names in sorted order.
func (n Node) Names() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the child at name for directory nodes.
func (n Node) Lookup(name string) (Node, bool) {
	if !n.IsDir() {
		return Node{}, false
	}
	child, ok := n.Children[name]
	return child, ok
}

// UnmarshalJSON accepts a JSON string (leaf) or object (directory).
func (n *Node) UnmarshalJSON(data []byte) error {
	tree, err := decodeTree(data, 0)
	if err != nil {
		return err
	}
	if !wellFormed(tree) {
		return ErrInvalidStructure
	}
	*n = tree
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindLeaf:
		return json.Marshal(n.Content)
	case KindDir:
		if n.Children == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(n.Children)
	default:
		return nil, ErrInvalidStructure
	}
}

// Decode parses raw client JSON into a Node and validates it against limits.
// The input is scanned once; values nested MaxDepth or deeper are skipped
// rather than built, so deep input costs no more than flat input of the same size.
func Decode(raw json.RawMessage, limits Limits) (Node, error) {
	limits = limits.WithDefaults()
	n, err := decodeTree(raw, limits.MaxDepth)
	if err != nil {
		return Node{}, err
	}
	if err := Validate(n, limits); err != nil {
		return Node{}, err
	}
	return n, nil
}

// decodeTree builds a Node from data. Values that are neither strings nor
// objects, and values at or past maxDepth, become zero Nodes so Validate reports them
// in its own order. A maxDepth of zero disables the cutoff.
func decodeTree(data []byte, maxDepth int) (Node, error) {
	d := treeDecoder{dec: json.NewDecoder(bytes.NewReader(data)), maxDepth: maxDepth}
	d.dec.UseNumber()
	n, err := d.node(0)
	if err != nil {
		return Node{}, err
	}
	if _, err := d.dec.Token(); err != io.EOF {
		return Node{}, ErrInvalidStructure
	}
	return n, nil
}

type treeDecoder struct {
	dec      *json.Decoder
	maxDepth int
}

func (d *treeDecoder) node(depth int) (Node, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return Node{}, ErrInvalidStructure
	}
	if d.maxDepth > 0 && depth >= d.maxDepth {
		return Node{}, d.skip(tok)
	}
	switch v := tok.(type) {
	case string:
		return Leaf(v), nil
	case json.Delim:
		if v == '{' {
			return d.dir(depth)
		}
		return Node{}, d.skip(tok)
	default:
		return Node{}, nil
	}
}

func (d *treeDecoder) dir(depth int) (Node, error) {
	children := make(map[string]Node)
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return Node{}, ErrInvalidStructure
		}
		name, ok := tok.(string)
		if !ok {
			return Node{}, ErrInvalidStructure
		}
		child, err := d.node(depth + 1)
		if err != nil {
			return Node{}, err
		}
		children[name] = child
	}
	// closing brace
	if _, err := d.dec.Token(); err != nil {
		return Node{}, ErrInvalidStructure
	}
	return Dir(children), nil
}

// skip consumes the rest of the value that began with tok.
func (d *treeDecoder) skip(tok json.Token) error {
	delim, ok := tok.(json.Delim)
	if !ok || delim == '}' || delim == ']' {
		return nil
	}
	for open := 1; open > 0; {
		tok, err := d.dec.Token()
		if err != nil {
			return ErrInvalidStructure
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				open++
			default:
				open--
			}
		}
	}
	return nil
}

func wellFormed(n Node) bool {
	switch n.Kind {
	case KindLeaf:
		return true
	case KindDir:
		for _, child := range n.Children {
			if !wellFormed(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
