package options

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
)

// Leaf is a resolvable view of one fully specified configuration. Lookups
// walk the path from the leaf up to the root; dynamic entries are evaluated
// against the whole leaf and memoized. A Leaf is not safe for concurrent use,
// hand workers a Freeze()d copy instead.
type Leaf struct {
	path      []*Tree
	cache     map[string]any
	resolving []string
	frozen    bool
}

func newLeaf(path []*Tree) *Leaf {
	return &Leaf{
		path:  path,
		cache: make(map[string]any),
	}
}

// Naming selects which axes contribute to a leaf's identity string.
// An empty Only means every axis on the path.
type Naming struct {
	Only    []string
	Exclude []string
}

func (n Naming) includes(axis string) bool {
	if axis == "" {
		return false
	}
	if len(n.Only) != 0 && !contains(n.Only, axis) {
		return false
	}
	return !contains(n.Exclude, axis)
}

func (l *Leaf) Get(key string) (v any, err error) {
	var (
		ok  bool
		raw any
	)
	if v, ok = l.cache[key]; ok {
		return
	}
	if l.frozen {
		return nil, &MissingDependencyError{Key: key}
	}
	if contains(l.resolving, key) {
		return nil, &CycleError{Chain: append(append([]string{}, l.resolving...), key)}
	}
	if raw, ok = l.raw(key); !ok {
		return nil, &MissingDependencyError{Key: key}
	}
	switch fn := raw.(type) {
	case Dynamic:
		v, err = l.evaluate(key, fn)
	case func(o *Leaf) (any, error):
		v, err = l.evaluate(key, fn)
	default:
		v = raw
	}
	if err != nil {
		return nil, err
	}
	l.cache[key] = v
	return
}

func (l *Leaf) evaluate(key string, fn Dynamic) (any, error) {
	l.resolving = append(l.resolving, key)
	defer func() { l.resolving = l.resolving[:len(l.resolving)-1] }()
	return fn(l)
}

func (l *Leaf) raw(key string) (v any, ok bool) {
	for i := len(l.path) - 1; i >= 0; i-- {
		if v, ok = l.path[i].node.lookup(key); ok {
			return
		}
	}
	return
}

// Has reports whether key is defined on the path, without evaluating it.
func (l *Leaf) Has(key string) bool {
	if _, ok := l.cache[key]; ok {
		return true
	}
	if l.frozen {
		return false
	}
	_, ok := l.raw(key)
	return ok
}

// Keys lists every key defined on the path, sorted.
func (l *Leaf) Keys() (keys []string) {
	seen := make(map[string]bool)
	for k := range l.cache {
		seen[k] = true
	}
	if !l.frozen {
		for _, t := range l.path {
			for k := range t.node.Entries {
				seen[k] = true
			}
		}
	}
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

func (l *Leaf) String(key string) (s string, err error) {
	var v any
	if v, err = l.Get(key); err != nil {
		return
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(x), nil
	}
	return "", &TypeError{Key: key, Want: "string", Got: v}
}

func (l *Leaf) Float(key string) (f float64, err error) {
	var (
		v  any
		ok bool
	)
	if v, err = l.Get(key); err != nil {
		return
	}
	if f, ok = toFloat(v); !ok {
		err = &TypeError{Key: key, Want: "number", Got: v}
	}
	return
}

// OptionalFloat resolves key to a number, reporting ok=false for a nil value.
func (l *Leaf) OptionalFloat(key string) (f float64, ok bool, err error) {
	var v any
	if v, err = l.Get(key); err != nil || v == nil {
		return
	}
	if f, ok = toFloat(v); !ok {
		err = &TypeError{Key: key, Want: "number or nil", Got: v}
	}
	return
}

func (l *Leaf) Int(key string) (i int, err error) {
	var f float64
	if f, err = l.Float(key); err != nil {
		return
	}
	if f != float64(int(f)) {
		return 0, &TypeError{Key: key, Want: "integer", Got: f}
	}
	return int(f), nil
}

func (l *Leaf) Bool(key string) (b bool, err error) {
	var v any
	if v, err = l.Get(key); err != nil {
		return
	}
	b, ok := v.(bool)
	if !ok {
		err = &TypeError{Key: key, Want: "bool", Got: v}
	}
	return
}

func (l *Leaf) Floats(key string) (fs []float64, err error) {
	var v any
	if v, err = l.Get(key); err != nil {
		return
	}
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []int:
		fs = make([]float64, len(x))
		for i, n := range x {
			fs[i] = float64(n)
		}
		return
	case []any:
		fs = make([]float64, len(x))
		for i, item := range x {
			var ok bool
			if fs[i], ok = toFloat(item); !ok {
				return nil, &TypeError{Key: key, Want: "list of numbers", Got: v}
			}
		}
		return
	}
	return nil, &TypeError{Key: key, Want: "list of numbers", Got: v}
}

func (l *Leaf) Strings(key string) (ss []string, err error) {
	var v any
	if v, err = l.Get(key); err != nil {
		return
	}
	switch x := v.(type) {
	case []string:
		return x, nil
	case []any:
		ss = make([]string, len(x))
		for i, item := range x {
			ss[i] = fmt.Sprint(item)
		}
		return
	case string:
		return []string{x}, nil
	}
	return nil, &TypeError{Key: key, Want: "list of strings", Got: v}
}

// Name is the identity string: the node names of the selected axes along the
// path, joined with underscores.
func (l *Leaf) Name(n Naming) string {
	s, _ := l.RelativeName(n, nil)
	return s
}

// Str is shorthand for Name restricted to the given axes.
func (l *Leaf) Str(only ...string) string {
	return l.Name(Naming{Only: only})
}

// RelativeName builds the identity string as if the leaf were moved by the
// given offsets along the given axes, without resolving the moved leaf.
func (l *Leaf) RelativeName(n Naming, offsets map[string]int) (string, error) {
	var (
		words []string
		found = make(map[string]bool)
	)
	for _, t := range l.path {
		name := t.node.Name
		if off, ok := offsets[t.axis]; ok && t.axis != "" {
			found[t.axis] = true
			if off != 0 {
				sib, err := t.sibling(off)
				if err != nil {
					return "", err
				}
				name = sib.node.Name
			}
		}
		if n.includes(t.axis) {
			words = append(words, name)
		}
	}
	for axis, off := range offsets {
		if !found[axis] {
			return "", &RelativePositionError{Axis: axis, Offset: off}
		}
	}
	return Join(words...), nil
}

// Relative returns the leaf that shares every other axis assignment but sits
// offset positions away along axis.
func (l *Leaf) Relative(axis string, offset int) (*Leaf, error) {
	d := l.depth(axis)
	if d < 0 {
		return nil, &RelativePositionError{Axis: axis, Offset: offset}
	}
	sib, err := l.path[d].sibling(offset)
	if err != nil {
		return nil, err
	}
	path := append(append([]*Tree{}, l.path[:d]...), sib)
	cur := sib
	for _, t := range l.path[d+1:] {
		var next *Tree
		for _, ch := range cur.children {
			if ch.axis == t.axis && ch.node.Name == t.node.Name {
				next = ch
				break
			}
		}
		if next == nil {
			return nil, &RelativePositionError{Axis: axis, Offset: offset}
		}
		path = append(path, next)
		cur = next
	}
	return newLeaf(path), nil
}

// Position is the index of the leaf's node along axis.
func (l *Leaf) Position(axis string) (pos, size int, ok bool) {
	d := l.depth(axis)
	if d < 0 {
		return
	}
	return l.path[d].position, l.path[d].size, true
}

func (l *Leaf) IsFirst(axis string) bool {
	pos, _, ok := l.Position(axis)
	return ok && pos == 0
}

// HasPredecessor reports whether a node still precedes the leaf's own along
// axis. Unlike IsFirst it sees leaves removed by Filter.
func (l *Leaf) HasPredecessor(axis string) bool {
	_, err := l.RelativeName(Naming{}, map[string]int{axis: -1})
	return err == nil
}

func (l *Leaf) IsLast(axis string) bool {
	pos, size, ok := l.Position(axis)
	return ok && pos == size-1
}

// Axes lists axis=name pairs along the path.
func (l *Leaf) Axes() (pairs [][2]string) {
	for _, t := range l.path {
		if t.axis != "" {
			pairs = append(pairs, [2]string{t.axis, t.node.Name})
		}
	}
	return
}

func (l *Leaf) depth(axis string) int {
	if axis == "" {
		return -1
	}
	for i, t := range l.path {
		if t.axis == axis {
			return i
		}
	}
	return -1
}

// Freeze resolves every entry into an immutable snapshot. Entries whose
// dependencies are missing are dropped. The snapshot keeps the path, so names
// and positions still work, but it never evaluates anything again.
func (l *Leaf) Freeze() (*Leaf, error) {
	snap := make(map[string]any)
	for _, k := range l.Keys() {
		v, err := l.Get(k)
		if err != nil {
			if IsMissingDependency(err) || IsRelativePosition(err) {
				continue
			}
			return nil, err
		}
		snap[k] = v
	}
	c, err := copystructure.Copy(snap)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot leaf")
	}
	return &Leaf{
		path:   l.path,
		cache:  c.(map[string]any),
		frozen: true,
	}, nil
}

// Map returns the resolved entries of a frozen leaf, or resolves a snapshot
// first.
func (l *Leaf) Map() (m map[string]any, err error) {
	fr := l
	if !l.frozen {
		if fr, err = l.Freeze(); err != nil {
			return
		}
	}
	m = make(map[string]any, len(fr.cache))
	for k, v := range fr.cache {
		m[k] = v
	}
	return
}

func (l *Leaf) Frozen() bool { return l.frozen }

// Join joins the non-empty words with underscores.
func Join(words ...string) string {
	var kept []string
	for _, w := range words {
		if w != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, "_")
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
