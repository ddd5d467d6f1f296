package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/outline/internal/rank"
)

// TimeLayout is the persisted timestamp format.
const TimeLayout = time.RFC3339Nano

// FieldParseError reports a persisted field that could not be parsed.
type FieldParseError struct {
	Field string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("failed to parse field %q: %v", e.Field, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

// Record is the persisted, all-text form of a Node.
type Record struct {
	ID         string
	ParentID   *string
	Rank       string
	CreatedAt  string
	ModifiedAt string
	Type       string
	Text       string
	Author     string
	Source     string
}

// Record serializes n into its persisted form.
func (n Node) Record() Record {
	r := Record{
		ID:         n.ID.String(),
		Rank:       n.Rank.String(),
		CreatedAt:  n.CreatedAt.UTC().Format(TimeLayout),
		ModifiedAt: n.ModifiedAt.UTC().Format(TimeLayout),
		Type:       n.Type.String(),
		Text:       n.Text,
		Author:     n.Author,
		Source:     n.Source.String(),
	}
	if n.ParentID != nil {
		p := n.ParentID.String()
		r.ParentID = &p
	}
	return r
}

// FromRecord parses a persisted record. The first field that fails aborts
// the whole node with a *FieldParseError naming it.
func FromRecord(r Record) (Node, error) {
	var (
		n   Node
		err error
	)

	if n.ID, err = uuid.Parse(r.ID); err != nil {
		return Node{}, &FieldParseError{Field: "id", Err: err}
	}
	if r.ParentID != nil {
		parent, err := uuid.Parse(*r.ParentID)
		if err != nil {
			return Node{}, &FieldParseError{Field: "parent_id", Err: err}
		}
		n.ParentID = &parent
	}
	if n.Rank, err = rank.Parse(r.Rank); err != nil {
		return Node{}, &FieldParseError{Field: "rank_key", Err: err}
	}
	if n.CreatedAt, err = time.Parse(TimeLayout, r.CreatedAt); err != nil {
		return Node{}, &FieldParseError{Field: "created_time", Err: err}
	}
	if n.ModifiedAt, err = time.Parse(TimeLayout, r.ModifiedAt); err != nil {
		return Node{}, &FieldParseError{Field: "modified_time", Err: err}
	}
	if n.Type, err = ParseNodeType(r.Type); err != nil {
		return Node{}, &FieldParseError{Field: "node_type", Err: err}
	}
	if n.Source, err = ParseSource(r.Source); err != nil {
		return Node{}, &FieldParseError{Field: "source", Err: err}
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.ModifiedAt = n.ModifiedAt.UTC()
	n.Text = r.Text
	n.Author = r.Author
	return n, nil
}
