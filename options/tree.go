package options

// Composable is anything that can be grafted onto the leaves of a tree:
// a *Node, an *Array or another *Tree.
type Composable interface {
	branches() []*Tree
}

// Tree is the cross product of nodes along successive axes. Every position in
// the tree holds one node; a leaf's configuration is the layering of the
// nodes on its path, deeper nodes overriding shallower ones.
type Tree struct {
	axis     string
	node     *Node
	position int // position along the axis at the time of composition
	size     int // length of the axis at the time of composition
	parent   *Tree
	children []*Tree
	empty    bool // every leaf has been filtered out
}

// NewTree returns an anonymous root with the parts grafted on in order, so
// NewTree(a, b, c) is the product a * b * c.
func NewTree(parts ...Composable) (t *Tree) {
	t = &Tree{
		node: NewNode("", nil),
		size: 1,
	}
	for _, p := range parts {
		t.Graft(p)
	}
	return
}

// Graft attaches a copy of c beneath every current leaf, in place.
func (t *Tree) Graft(c Composable) *Tree {
	if t.empty {
		return t
	}
	for _, lf := range t.leafNodes() {
		br := c.branches()
		for _, b := range br {
			b.parent = lf
		}
		lf.children = br
	}
	return t
}

// Multiply returns a new tree: a copy of t with c grafted onto every leaf.
func (t *Tree) Multiply(c Composable) *Tree {
	return t.Clone().Graft(c)
}

// Update merges entries into the node at this position. At the root these
// entries have the lowest priority of the whole tree.
func (t *Tree) Update(entries Entries) *Tree {
	t.node.Update(entries)
	return t
}

func (t *Tree) Clone() *Tree {
	return t.clone(nil)
}

func (t *Tree) clone(parent *Tree) (c *Tree) {
	c = &Tree{
		axis:     t.axis,
		node:     t.node.Copy(),
		position: t.position,
		size:     t.size,
		parent:   parent,
		empty:    t.empty,
	}
	if len(t.children) != 0 {
		c.children = make([]*Tree, len(t.children))
		for i, ch := range t.children {
			c.children[i] = ch.clone(c)
		}
	}
	return
}

func (t *Tree) branches() []*Tree {
	if t.empty {
		return nil
	}
	return []*Tree{t.clone(nil)}
}

func (n *Node) branches() []*Tree {
	return []*Tree{{node: n.Copy(), size: 1}}
}

func (t *Tree) Axis() string { return t.axis }

func (t *Tree) Name() string { return t.node.Name }

func (t *Tree) Node() *Node { return t.node }

// Children returns the subtrees directly beneath t. Grafting onto a child
// only affects the leaves below that child.
func (t *Tree) Children() []*Tree {
	return t.children
}

func (t *Tree) Child(i int) *Tree {
	return t.children[i]
}

// Len is the number of leaves.
func (t *Tree) Len() int {
	if t.empty {
		return 0
	}
	return len(t.leafNodes())
}

// Collapse flattens the tree into its leaves, depth first and left to right
// in composition order. Each call returns fresh leaves with empty caches.
func (t *Tree) Collapse() (leaves []*Leaf) {
	if t.empty {
		return nil
	}
	for _, lf := range t.leafNodes() {
		leaves = append(leaves, newLeaf(lf.pathFromRoot()))
	}
	return
}

// Filter evaluates keep on every leaf and prunes the leaves for which it
// returns false or a missing dependency. Any other error aborts the filter.
func (t *Tree) Filter(keep func(o *Leaf) (bool, error)) (removed int, err error) {
	if t.empty {
		return
	}
	var (
		doomed []*Tree
	)
	for _, lf := range t.leafNodes() {
		ok, kerr := keep(newLeaf(lf.pathFromRoot()))
		if kerr != nil {
			if !IsMissingDependency(kerr) {
				return 0, kerr
			}
			ok = false
		}
		if !ok {
			doomed = append(doomed, lf)
		}
	}
	for _, lf := range doomed {
		t.prune(lf)
		removed++
	}
	return
}

// prune detaches lf and any ancestors left without children, up to t.
func (t *Tree) prune(lf *Tree) {
	for cur := lf; cur != nil; cur = cur.parent {
		if cur == t {
			t.empty = true
			return
		}
		p := cur.parent
		for i, ch := range p.children {
			if ch == cur {
				p.children = append(p.children[:i:i], p.children[i+1:]...)
				break
			}
		}
		if len(p.children) != 0 {
			return
		}
	}
}

func (t *Tree) leafNodes() (lfs []*Tree) {
	if t.empty {
		return nil
	}
	if len(t.children) == 0 {
		return []*Tree{t}
	}
	for _, ch := range t.children {
		lfs = append(lfs, ch.leafNodes()...)
	}
	return
}

func (t *Tree) pathFromRoot() (path []*Tree) {
	for cur := t; cur != nil; cur = cur.parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return
}

// sibling finds the child of t.parent along the same axis at position
// t.position+offset.
func (t *Tree) sibling(offset int) (*Tree, error) {
	if t.parent == nil || t.axis == "" {
		return nil, &RelativePositionError{Axis: t.axis, Offset: offset}
	}
	target := t.position + offset
	for _, ch := range t.parent.children {
		if ch.axis == t.axis && ch.position == target {
			return ch, nil
		}
	}
	return nil, &RelativePositionError{Axis: t.axis, Offset: offset}
}
