// Package forest materializes a flat collection of nodes into nested,
// depth-annotated trees with siblings ordered by rank.
package forest

import (
	"slices"

	"github.com/google/uuid"

	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
)

// Element is one materialized node. ParentID is informational; the tree is
// navigated through Children only.
type Element struct {
	ID       uuid.UUID       `json:"id"`
	ParentID *uuid.UUID      `json:"parent_id,omitempty"`
	Rank     rank.Key        `json:"rank_key"`
	Depth    int             `json:"depth"`
	Text     string          `json:"text"`
	Type     models.NodeType `json:"node_type"`
	Children []*Element      `json:"children"`
}

// Forest is the ordered list of roots produced by Build.
type Forest struct {
	Roots []*Element `json:"roots"`
	// Dropped lists, in input order, the nodes that could not be reached from
	// any root: their parent is missing from the input or is itself unreachable.
	Dropped []uuid.UUID `json:"dropped"`
}

// entry is a node waiting in its parent's sibling group.
type entry struct {
	node *models.Node
	seq  int
}

// Build groups nodes by parent, orders each sibling group by rank and walks
// down from every root. Roots keep their input order; siblings with equal
// ranks keep their input order. Build never fails.
func Build(nodes []models.Node) *Forest {
	var roots []entry
	groups := make(map[uuid.UUID][]entry)
	for i := range nodes {
		n := &nodes[i]
		if n.ParentID == nil {
			roots = append(roots, entry{node: n, seq: i})
			continue
		}
		groups[*n.ParentID] = append(groups[*n.ParentID], entry{node: n, seq: i})
	}

	for _, g := range groups {
		slices.SortStableFunc(g, func(a, b entry) int {
			return a.node.Rank.Compare(b.node.Rank)
		})
	}

	f := &Forest{Roots: make([]*Element, 0, len(roots)), Dropped: []uuid.UUID{}}
	emitted := make(map[int]struct{}, len(nodes))
	for _, r := range roots {
		f.Roots = append(f.Roots, materialize(r, 0, groups, emitted))
	}

	for i := range nodes {
		if _, ok := emitted[i]; !ok {
			f.Dropped = append(f.Dropped, nodes[i].ID)
		}
	}
	return f
}

// materialize consumes n's sibling group so that each group is attached at
// most once, which also keeps parent cycles from recursing forever.
func materialize(e entry, depth int, groups map[uuid.UUID][]entry, emitted map[int]struct{}) *Element {
	emitted[e.seq] = struct{}{}
	n := e.node
	el := &Element{
		ID:       n.ID,
		ParentID: copyID(n.ParentID),
		Rank:     n.Rank,
		Depth:    depth,
		Text:     n.Text,
		Type:     n.Type,
	}

	children, ok := groups[n.ID]
	if !ok {
		el.Children = []*Element{}
		return el
	}
	delete(groups, n.ID)

	el.Children = make([]*Element, 0, len(children))
	for _, c := range children {
		el.Children = append(el.Children, materialize(c, depth+1, groups, emitted))
	}
	return el
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
