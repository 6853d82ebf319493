package options

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"
)

// Print writes the tree as axis=name branches. With entries set, the literal
// entries of each node are listed beneath it.
func (t *Tree) Print(w io.Writer, entries bool) (err error) {
	root := treeprint.New()
	if t.node.Name != "" {
		root.SetValue(t.node.Name)
	} else {
		root.SetValue(".")
	}
	if entries {
		addEntries(root, t.node)
	}
	if !t.empty {
		for _, ch := range t.children {
			ch.print(root, entries)
		}
	}
	_, err = io.WriteString(w, root.String())
	return
}

func (t *Tree) print(br treeprint.Tree, entries bool) {
	label := t.node.Name
	if t.axis != "" {
		label = fmt.Sprintf("%s=%s", t.axis, t.node.Name)
	}
	var sub treeprint.Tree
	if len(t.children) == 0 && !entries {
		br.AddNode(label)
		return
	}
	sub = br.AddBranch(label)
	if entries {
		addEntries(sub, t.node)
	}
	for _, ch := range t.children {
		ch.print(sub, entries)
	}
}

func addEntries(br treeprint.Tree, n *Node) {
	for _, k := range n.Entries.Keys() {
		switch v := n.Entries[k].(type) {
		case Dynamic, func(*Leaf) (any, error):
			br.AddMetaNode(k, "<dynamic>")
		default:
			br.AddMetaNode(k, v)
		}
	}
}
