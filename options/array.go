package options

import (
	"fmt"
)

// Array is an ordered sweep of nodes along one axis. Position 0 is the first
// point of the sweep.
type Array struct {
	Axis   string
	Nodes  []*Node
	Common Entries
}

// NewArray builds an array along axis. Items may be *Node values or literals;
// a literal becomes a node named after its value. Every node carries an
// {axis: value} entry unless it already defines the axis key.
func NewArray(axis string, items ...any) *Array {
	a := &Array{
		Axis:   axis,
		Nodes:  make([]*Node, 0, len(items)),
		Common: Entries{},
	}
	for _, item := range items {
		var nd *Node
		switch v := item.(type) {
		case *Node:
			nd = v.Copy()
			if _, ok := nd.Entries[axis]; !ok {
				nd.Entries[axis] = nd.Name
			}
		case Node:
			nd = v.Copy()
			if _, ok := nd.Entries[axis]; !ok {
				nd.Entries[axis] = nd.Name
			}
		default:
			nd = NewNode(fmt.Sprint(v), Entries{axis: v})
		}
		a.Nodes = append(a.Nodes, nd)
	}
	return a
}

// WithCommon adds entries shared by every node of the array. Node entries
// take precedence over common entries.
func (a *Array) WithCommon(entries Entries) *Array {
	a.Common.Update(entries)
	return a
}

func (a *Array) Len() int {
	return len(a.Nodes)
}

// Slice returns a new array holding nodes [i:j], preserving their order.
func (a *Array) Slice(i, j int) *Array {
	sub := &Array{
		Axis:   a.Axis,
		Nodes:  make([]*Node, 0, j-i),
		Common: a.Common.Copy(),
	}
	for _, nd := range a.Nodes[i:j] {
		sub.Nodes = append(sub.Nodes, nd.Copy())
	}
	return sub
}

// SliceSpec is Slice driven by a phrase such as "0:3" or "end".
func (a *Array) SliceSpec(spec string) (*Array, error) {
	i, j, err := ParseSlice(spec, a.Len())
	if err != nil {
		return nil, err
	}
	return a.Slice(i, j), nil
}

func (a *Array) Names() (names []string) {
	names = make([]string, len(a.Nodes))
	for i, nd := range a.Nodes {
		names[i] = nd.Name
	}
	return
}

func (a *Array) branches() (br []*Tree) {
	br = make([]*Tree, len(a.Nodes))
	for i, nd := range a.Nodes {
		node := nd.Copy()
		if len(a.Common) != 0 {
			node.Entries = a.Common.Copy().Update(nd.Entries)
		}
		br[i] = &Tree{
			axis:     a.Axis,
			node:     node,
			position: i,
			size:     len(a.Nodes),
		}
	}
	return
}
