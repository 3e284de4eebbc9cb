package restcache

import (
	"fmt"
	"slices"
	"strings"
)

// Accessor is a view over a Node carrying the stack accumulated while
// descending from the root. Accessors are cheap and never shared state beyond
// the node they point at.
type Accessor struct {
	node   *Node
	name   string
	stack  Stack
	parent *Accessor
}

// Root returns the accessor for a root node.
func Root(node *Node) *Accessor {
	return &Accessor{node: node, stack: node.Subject()}
}

// Node returns the node the accessor views.
func (a *Accessor) Node() *Node {
	return a.node
}

// Parent returns the accessor this one was reached from, nil at the root.
func (a *Accessor) Parent() *Accessor {
	return a.parent
}

// Name returns the leaf name the accessor was reached through.
func (a *Accessor) Name() string {
	return a.name
}

// Path returns the leaf names from the root to this accessor.
func (a *Accessor) Path() []string {
	var names []string
	for cur := a; cur != nil && cur.parent != nil; cur = cur.parent {
		names = append(names, cur.name)
	}
	slices.Reverse(names)
	return names
}

// Stack returns a copy of the accumulated stack.
func (a *Accessor) Stack() Stack {
	return slices.Clone(a.stack)
}

// Get returns the child accessor for leaf name. Detached leafs are visible
// only when their recorded mount stack matches the tail of this accessor's
// structural stack.
func (a *Accessor) Get(name string) (*Accessor, bool) {
	l, ok := a.node.leaf(name)
	if !ok || !a.sees(l) {
		return nil, false
	}
	stack := make(Stack, 0, len(a.stack)+len(l.node.subject))
	stack = append(stack, a.stack...)
	stack = append(stack, l.node.subject...)
	return &Accessor{node: l.node, name: name, stack: stack, parent: a}, true
}

// MustGet is Get for schema code where a missing leaf is a programming error.
func (a *Accessor) MustGet(name string) *Accessor {
	child, ok := a.Get(name)
	if !ok {
		panic(fmt.Sprintf("restcache: no leaf %q under %q", name, strings.Join(a.Path(), ".")))
	}
	return child
}

// Leafs lists the leaf names visible from this accessor.
func (a *Accessor) Leafs() []string {
	var out []string
	for _, name := range a.node.leafNames() {
		if l, ok := a.node.leaf(name); ok && a.sees(l) {
			out = append(out, name)
		}
	}
	return out
}

func (a *Accessor) sees(l *leaf) bool {
	if l.mount == nil {
		return true
	}
	return MatchStackSuffix(l.mount, structural(a.stack))
}

// With returns an accessor over the same node with items appended to the
// stack. Typical items are Parameters, QueryParameters, Options, Path and
// Payload.
func (a *Accessor) With(items ...any) *Accessor {
	stack := make(Stack, 0, len(a.stack)+len(items))
	stack = append(stack, a.stack...)
	stack = append(stack, items...)
	return &Accessor{node: a.node, name: a.name, stack: stack, parent: a.parent}
}

// Params is shorthand for With(Parameters(params)).
func (a *Accessor) Params(params map[string]any) *Accessor {
	return a.With(Parameters(params))
}

// AddLeaf attaches child under name on the viewed node.
func (a *Accessor) AddLeaf(name string, child any) error {
	return a.node.AddLeaf(name, child)
}

// AddDetachedLeaf attaches child under name, visible only from accessors
// whose structural stack ends with this accessor's structural stack.
func (a *Accessor) AddDetachedLeaf(name string, child any) error {
	return a.node.addLeaf(name, child, structural(a.stack))
}

// Descriptor resolves the accumulated stack plus items for action.
func (a *Accessor) Descriptor(action Action, items []any, opts ...ResolveOption) (*Descriptor, error) {
	stack := make(Stack, 0, len(a.stack)+len(items))
	stack = append(stack, a.stack...)
	stack = append(stack, items...)
	return Resolve(action, stack, opts...)
}

// Inspect resolves every accessor reachable from a, keyed by dotted leaf
// path relative to a ("" for a itself). Unfilled placeholders are kept
// verbatim. A node reachable from itself yields ErrCyclicSchema.
func (a *Accessor) Inspect(opts ...ResolveOption) (map[string]*Descriptor, error) {
	out := map[string]*Descriptor{}
	opts = append(slices.Clone(opts), WithLenientTemplates())
	err := a.inspect("", map[*Node]bool{}, out, opts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Accessor) inspect(prefix string, visiting map[*Node]bool, out map[string]*Descriptor, opts []ResolveOption) error {
	if visiting[a.node] {
		return fmt.Errorf("%w: %q revisits node %q", ErrCyclicSchema, prefix, a.node.identifier)
	}
	visiting[a.node] = true
	defer delete(visiting, a.node)

	d, err := Resolve(ActionInspect, a.stack, opts...)
	if err != nil {
		return err
	}
	out[prefix] = d

	for _, name := range a.Leafs() {
		child, _ := a.Get(name)
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if err := child.inspect(key, visiting, out, opts); err != nil {
			return err
		}
	}
	return nil
}
