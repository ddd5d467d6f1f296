// Package models defines the domain types for the outline store.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/starford/outline/internal/checksum"
	"github.com/starford/outline/internal/rank"
)

// Node is one entry of the outline. A nil ParentID marks a root.
type Node struct {
	ID         uuid.UUID  `json:"id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Rank       rank.Key   `json:"rank_key"`
	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt time.Time  `json:"modified_at"`
	Type       NodeType   `json:"node_type"`
	Text       string     `json:"text"`
	Author     string     `json:"author"`
	Source     Source     `json:"source"`
}

// Draft holds the caller-chosen fields of a node that does not exist yet.
type Draft struct {
	ParentID *uuid.UUID
	Rank     rank.Key
	Type     NodeType
	Text     string
	Author   string
	Source   Source
}

// New creates a node from d with a fresh random ID. Both timestamps are set to now.
func New(d Draft, now time.Time) Node {
	now = now.UTC()
	return Node{
		ID:         uuid.New(),
		ParentID:   cloneID(d.ParentID),
		Rank:       d.Rank,
		CreatedAt:  now,
		ModifiedAt: now,
		Type:       d.Type,
		Text:       d.Text,
		Author:     d.Author,
		Source:     d.Source,
	}
}

// IsRoot reports whether the node has no parent.
func (n Node) IsRoot() bool { return n.ParentID == nil }

// UpdateText replaces the text and refreshes ModifiedAt. ModifiedAt never
// moves before CreatedAt, even if the clock does.
func (n *Node) UpdateText(text string, now time.Time) {
	n.Text = text
	n.touch(now)
}

// Relocate returns a copy of n under parent at position key. n is left as is.
func (n Node) Relocate(parent *uuid.UUID, key rank.Key, now time.Time) Node {
	moved := n
	moved.ParentID = cloneID(parent)
	moved.Rank = key
	moved.touch(now)
	return moved
}

// ETag identifies this revision of the node for optimistic concurrency.
func (n Node) ETag() string {
	parent := ""
	if n.ParentID != nil {
		parent = n.ParentID.String()
	}
	return checksum.Fields(
		n.ID.String(),
		parent,
		n.Rank.String(),
		n.Type.String(),
		n.Text,
		n.ModifiedAt.Format(time.RFC3339Nano),
	)
}

func (n *Node) touch(now time.Time) {
	now = now.UTC()
	if now.Before(n.CreatedAt) {
		now = n.CreatedAt
	}
	n.ModifiedAt = now
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
