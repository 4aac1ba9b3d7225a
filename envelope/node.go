package envelope

import "strings"

// TextKey holds an element's character content inside its Node.
const TextKey = "_val"

// Node is one flattened element. Values are Node (single child), []Node
// (repeated siblings in document order) or string (under TextKey).
type Node map[string]any

// Text returns the character content of the node.
func (n Node) Text() (string, bool) {
	if n == nil {
		return "", false
	}
	value, ok := n[TextKey].(string)
	return value, ok
}

// Child returns the named child. When the name was promoted to a sequence the
// first sibling is returned.
func (n Node) Child(name string) (Node, bool) {
	if n == nil {
		return nil, false
	}
	switch typed := n[name].(type) {
	case Node:
		return typed, true
	case []Node:
		if len(typed) == 0 {
			return nil, false
		}
		return typed[0], true
	default:
		return nil, false
	}
}

// Children returns every sibling stored under name, regardless of promotion.
func (n Node) Children(name string) []Node {
	if n == nil {
		return nil
	}
	switch typed := n[name].(type) {
	case Node:
		return []Node{typed}
	case []Node:
		out := make([]Node, len(typed))
		copy(out, typed)
		return out
	default:
		return nil
	}
}

func (n Node) Lookup(path ...string) (Node, bool) {
	current := n
	for _, segment := range path {
		next, ok := current.Child(strings.TrimSpace(segment))
		if !ok {
			return nil, false
		}
		current = next
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// TextAt is Lookup followed by Text; missing nodes yield "".
func (n Node) TextAt(path ...string) string {
	node, ok := n.Lookup(path...)
	if !ok {
		return ""
	}
	value, _ := node.Text()
	return value
}

func (n Node) IsEmpty() bool {
	return len(n) == 0
}
