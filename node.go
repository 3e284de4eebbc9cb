package restcache

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Node is one named segment of a resource schema. Its subject lists the
// definitions and stores it contributes to descriptors. Nodes are immutable
// after construction except for leaf registration.
type Node struct {
	identifier string
	subject    Stack

	mu    sync.RWMutex
	leafs map[string]*leaf
	order []string
}

type leaf struct {
	node *Node
	// mount is the structural stack recorded for detached leafs; nil for
	// attached leafs.
	mount Stack
}

// NewNode builds a node. Subject entries must be ResourceStore values or
// definitions; Definition values are stored by pointer.
func NewNode(identifier string, subject ...any) (*Node, error) {
	n := &Node{
		identifier: strings.TrimSpace(identifier),
		leafs:      map[string]*leaf{},
	}
	for i, item := range subject {
		switch typed := item.(type) {
		case Definition:
			n.subject = append(n.subject, typed.Clone())
		case *Definition:
			if typed == nil {
				return nil, &StackError{Index: i, Item: item, Reason: "nil definition"}
			}
			n.subject = append(n.subject, typed)
		case map[string]any:
			def, err := DefinitionFromMap(typed)
			if err != nil {
				return nil, err
			}
			n.subject = append(n.subject, def)
		case ResourceStore:
			if isNil(typed) {
				return nil, &StackError{Index: i, Item: item, Reason: "nil store"}
			}
			n.subject = append(n.subject, typed)
		default:
			return nil, &StackError{Index: i, Item: item, Reason: "node subject must be a store or definition"}
		}
	}
	return n, nil
}

// Identifier returns the default leaf name of the node.
func (n *Node) Identifier() string {
	return n.identifier
}

// Subject returns a copy of the node subject.
func (n *Node) Subject() Stack {
	return slices.Clone(n.subject)
}

// AddLeaf attaches child under name. An empty name defaults to the child
// identifier. child is a *Node or *Accessor.
func (n *Node) AddLeaf(name string, child any) error {
	return n.addLeaf(name, child, nil)
}

func (n *Node) addLeaf(name string, child any, mount Stack) error {
	node, err := leafNode(child)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = node.identifier
	}
	if name == "" {
		return ErrLeafName
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.leafs[name]; !exists {
		n.order = append(n.order, name)
	}
	n.leafs[name] = &leaf{node: node, mount: mount}
	return nil
}

func (n *Node) leaf(name string) (*leaf, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	l, ok := n.leafs[name]
	return l, ok
}

func (n *Node) leafNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.order)
}

func leafNode(child any) (*Node, error) {
	switch typed := child.(type) {
	case *Node:
		if typed != nil {
			return typed, nil
		}
	case *Accessor:
		if typed != nil && typed.node != nil {
			return typed.node, nil
		}
	}
	return nil, fmt.Errorf("%w: leaf must be a node or accessor, got %T", ErrInvalidArgument, child)
}

// structural keeps the stack entries contributed by schema nodes.
func structural(stack Stack) Stack {
	out := make(Stack, 0, len(stack))
	for _, item := range stack {
		switch item.(type) {
		case *Definition, ResourceStore:
			out = append(out, item)
		}
	}
	return out
}

// MatchStackSuffix reports whether recorded equals the trailing entries of
// candidate, comparing from the end.
func MatchStackSuffix(recorded, candidate Stack) bool {
	if len(recorded) > len(candidate) {
		return false
	}
	offset := len(candidate) - len(recorded)
	for i := len(recorded) - 1; i >= 0; i-- {
		if !sameEntry(recorded[i], candidate[offset+i]) {
			return false
		}
	}
	return true
}

func sameEntry(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
