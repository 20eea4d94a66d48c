package secrettree

import (
	"fmt"
	"strings"

	nverrors "github.com/systmms/noctivault/internal/errors"
)

// Entry is one flat resolved secret ready for tree assembly.
type Entry struct {
	Path  []string
	Value *Value
}

// Node is an ordered mapping from path segment to child node or leaf
// value. Nodes are immutable once built and safe for unsynchronized
// concurrent reads.
type Node struct {
	order    []string
	children map[string]*Node
	leaves   map[string]*Value
}

func newNode() *Node {
	return &Node{
		children: make(map[string]*Node),
		leaves:   make(map[string]*Value),
	}
}

// Build assembles a tree from flat entries. Any two entries targeting the
// same final path fail with DuplicatePathError regardless of their order;
// a path that collides with an existing group or leaf prefix fails the
// same way. Build either returns a complete tree or an error, never a
// partial tree.
func Build(entries []Entry) (*Node, error) {
	root := newNode()
	for _, entry := range entries {
		if err := root.insert(entry.Path, entry.Value); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (n *Node) insert(path []string, value *Value) error {
	if len(path) == 0 {
		return nverrors.SchemaValidationError{Message: "empty secret path"}
	}
	cur := n
	for i, segment := range path[:len(path)-1] {
		if _, isLeaf := cur.leaves[segment]; isLeaf {
			return nverrors.DuplicatePathError{Path: strings.Join(path[:i+1], ".")}
		}
		child, ok := cur.children[segment]
		if !ok {
			child = newNode()
			cur.children[segment] = child
			cur.order = append(cur.order, segment)
		}
		cur = child
	}
	last := path[len(path)-1]
	if _, exists := cur.leaves[last]; exists {
		return nverrors.DuplicatePathError{Path: strings.Join(path, ".")}
	}
	if _, exists := cur.children[last]; exists {
		return nverrors.DuplicatePathError{Path: strings.Join(path, ".")}
	}
	cur.leaves[last] = value
	cur.order = append(cur.order, last)
	return nil
}

// Keys returns the node's segments in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.order))
	copy(keys, n.order)
	return keys
}

// Child returns the child group node for a segment. An absent segment, or
// a segment naming a leaf, fails with PathNotFoundError.
func (n *Node) Child(segment string) (*Node, error) {
	child, ok := n.children[segment]
	if !ok {
		return nil, nverrors.PathNotFoundError{Path: segment}
	}
	return child, nil
}

// Value returns the leaf value for a segment. An absent segment, or a
// segment naming a group, fails with PathNotFoundError.
func (n *Node) Value(segment string) (*Value, error) {
	leaf, ok := n.leaves[segment]
	if !ok {
		return nil, nverrors.PathNotFoundError{Path: segment}
	}
	return leaf, nil
}

// ValueAt walks the given segments and returns the leaf at the end.
func (n *Node) ValueAt(path ...string) (*Value, error) {
	if len(path) == 0 {
		return nil, nverrors.PathNotFoundError{Path: ""}
	}
	cur := n
	for i, segment := range path[:len(path)-1] {
		child, ok := cur.children[segment]
		if !ok {
			return nil, nverrors.PathNotFoundError{Path: strings.Join(path[:i+1], ".")}
		}
		cur = child
	}
	leaf, ok := cur.leaves[path[len(path)-1]]
	if !ok {
		return nil, nverrors.PathNotFoundError{Path: strings.Join(path, ".")}
	}
	return leaf, nil
}

// ToMap renders the tree as a nested map. With reveal=false every leaf is
// the mask token; with reveal=true every leaf is the typed real value.
// Reveal can only fail on a leaf whose cast was never validated, which the
// resolver rules out, so cast failures degrade to the mask token rather
// than leaking the raw string.
func (n *Node) ToMap(reveal bool) map[string]interface{} {
	out := make(map[string]interface{}, len(n.order))
	for _, segment := range n.order {
		if child, ok := n.children[segment]; ok {
			out[segment] = child.ToMap(reveal)
			continue
		}
		leaf := n.leaves[segment]
		if !reveal {
			out[segment] = Mask
			continue
		}
		typed, err := leaf.Get()
		if err != nil {
			out[segment] = Mask
			continue
		}
		out[segment] = typed
	}
	return out
}

// String renders the masked form of the whole tree.
func (n *Node) String() string {
	return fmt.Sprintf("SecretNode(%v)", n.ToMap(false))
}
