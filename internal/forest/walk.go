package forest

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/starford/outline/internal/checksum"
)

// Walk visits every element in pre-order (parent before children, siblings
// in rank order). Returning false from fn skips that element's subtree.
func (f *Forest) Walk(fn func(*Element) bool) {
	var visit func(els []*Element)
	visit = func(els []*Element) {
		for _, el := range els {
			if fn(el) {
				visit(el.Children)
			}
		}
	}
	visit(f.Roots)
}

// Len returns the number of elements in the forest.
func (f *Forest) Len() int {
	n := 0
	f.Walk(func(*Element) bool {
		n++
		return true
	})
	return n
}

// Find returns the element with the given id, or nil.
func (f *Forest) Find(id uuid.UUID) *Element {
	var found *Element
	f.Walk(func(el *Element) bool {
		if found != nil {
			return false
		}
		if el.ID == id {
			found = el
			return false
		}
		return true
	})
	return found
}

// Fingerprint digests the forest's shape and content. Two forests built from
// the same input have the same fingerprint.
func (f *Forest) Fingerprint() string {
	var parts []string
	f.Walk(func(el *Element) bool {
		parts = append(parts,
			el.ID.String(),
			strconv.Itoa(el.Depth),
			el.Rank.String(),
			el.Type.String(),
			el.Text,
		)
		return true
	})
	return checksum.Fields(parts...)
}
