package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
)

// NodeRepository is the persistence port of the outline. Consumers should
// depend on this interface rather than *DB so they can be tested against a fake.
type NodeRepository interface {
	// AddNode inserts n. Fails with apperr.ErrAlreadyExists on a duplicate id.
	AddNode(ctx context.Context, n models.Node) error
	// GetNode fails with apperr.ErrNotFound for an unknown id.
	GetNode(ctx context.Context, id uuid.UUID) (*models.Node, error)
	// UpdateNode overwrites every mutable column of n.
	UpdateNode(ctx context.Context, n models.Node) error
	// DeleteNode removes a single node. Its children are left in place.
	DeleteNode(ctx context.Context, id uuid.UUID) error
	// DumpNodes returns every node in no particular order.
	DumpNodes(ctx context.Context) ([]models.Node, error)
	// LastChildRank returns the highest rank under parent (nil for roots).
	LastChildRank(ctx context.Context, parent *uuid.UUID) (rank.Key, bool, error)
	// Search finds nodes whose text matches query.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Close() error
}

// SearchResult is one search hit.
type SearchResult struct {
	Node    models.Node `json:"node"`
	Snippet string      `json:"snippet"`
}

// Verify *DB satisfies NodeRepository at compile time.
var _ NodeRepository = (*DB)(nil)
