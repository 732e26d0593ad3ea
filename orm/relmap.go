package orm

import (
	"sort"
	"strings"
)

// RelationMap is the compiled tree of eager-load paths. The root node
// describes the queried model; every child describes one relation of its
// parent's model.
//
// Compiling {"things", "place.address"} on users yields:
//
//	users (root)
//	├── things  (hasMany  → things)
//	└── place   (belongsTo → places)
//	    └── address (belongsTo → addresses)
type RelationMap struct {
	Name       string
	Kind       RelationKind
	Table      string
	Columns    []string
	Descriptor *Descriptor
	// Relation is the zero value on the root node.
	Relation Relation
	Children map[string]*RelationMap
}

// CompileRelations builds the RelationMap for dotted relation paths on d.
// Every path segment must name a relation declared on the model reached so
// far; the first one that does not fails the whole compilation. Paths
// sharing a prefix are merged, and the result does not depend on the order
// of paths.
func CompileRelations(d *Descriptor, paths ...string) (*RelationMap, error) {
	d.sealed.Store(true)
	root := &RelationMap{
		Kind:       KindRoot,
		Table:      d.table,
		Columns:    d.Columns(),
		Descriptor: d,
	}
	if err := compileChildren(root, normalizePaths(paths)); err != nil {
		return nil, err
	}
	return root, nil
}

func compileChildren(node *RelationMap, paths []string) error {
	node.Children = make(map[string]*RelationMap)
	if len(paths) == 0 {
		return nil
	}

	// group the tails of every path by head segment, preserving sort order
	heads := make([]string, 0, len(paths))
	tails := make(map[string][]string, len(paths))
	for _, p := range paths {
		head, tail, _ := strings.Cut(p, ".")
		if head == "" {
			return configErrorf(ErrUnknownRelation, "empty segment in relation path %q", p)
		}
		if _, seen := tails[head]; !seen {
			heads = append(heads, head)
			tails[head] = nil
		}
		if tail != "" {
			tails[head] = append(tails[head], tail)
		} else if strings.HasSuffix(p, ".") {
			return configErrorf(ErrUnknownRelation, "empty segment in relation path %q", p)
		}
	}

	for _, head := range heads {
		rel, err := node.Descriptor.lookupRelation(head)
		if err != nil {
			return err
		}
		rel.Related.sealed.Store(true)
		child := &RelationMap{
			Name:       head,
			Kind:       rel.Kind,
			Table:      rel.Related.table,
			Columns:    rel.Related.Columns(),
			Descriptor: rel.Related,
			Relation:   rel,
		}
		if err := compileChildren(child, tails[head]); err != nil {
			return err
		}
		node.Children[head] = child
	}
	return nil
}

// ChildNames returns the names of the node's children in sorted order.
func (n *RelationMap) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths flattens the tree back into sorted dotted leaf paths.
func (n *RelationMap) Paths() []string {
	var out []string
	for _, name := range n.ChildNames() {
		child := n.Children[name]
		sub := child.Paths()
		if len(sub) == 0 {
			out = append(out, name)
			continue
		}
		for _, s := range sub {
			out = append(out, name+"."+s)
		}
	}
	return out
}

// normalizePaths returns paths sorted with duplicates removed.
func normalizePaths(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	uniq := out[:0]
	for i, p := range out {
		if i == 0 || p != out[i-1] {
			uniq = append(uniq, p)
		}
	}
	return uniq
}
