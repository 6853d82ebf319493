package options

import (
	"sort"
)

// Dynamic is an entry computed from the fully assembled leaf. It must be a
// pure function of the leaf; its result is cached for the lifetime of the leaf.
type Dynamic func(o *Leaf) (any, error)

// Entries maps keys to literal values or Dynamic entries.
type Entries map[string]any

// Update merges other into e, overriding existing keys.
func (e Entries) Update(other Entries) Entries {
	for k, v := range other {
		e[k] = v
	}
	return e
}

func (e Entries) Copy() (c Entries) {
	c = make(Entries, len(e))
	for k, v := range e {
		c[k] = v
	}
	return
}

func (e Entries) Keys() (keys []string) {
	keys = make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// Node is a named bundle of entries. Anonymous nodes have an empty name.
type Node struct {
	Name    string
	Entries Entries
}

func NewNode(name string, entries Entries) *Node {
	if entries == nil {
		entries = Entries{}
	}
	return &Node{Name: name, Entries: entries.Copy()}
}

// Update merges entries into the node, later entries win.
func (n *Node) Update(entries Entries) *Node {
	n.Entries.Update(entries)
	return n
}

func (n *Node) Copy() *Node {
	return &Node{Name: n.Name, Entries: n.Entries.Copy()}
}

func (n *Node) lookup(key string) (v any, ok bool) {
	v, ok = n.Entries[key]
	return
}
