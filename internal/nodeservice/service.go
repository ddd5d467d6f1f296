package nodeservice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/outline/internal/apperr"
	"github.com/starford/outline/internal/forest"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
	"github.com/starford/outline/internal/storage"
	"github.com/starford/outline/internal/store"
)

// DefaultRankStep is the gap left between appended siblings (36^4).
const DefaultRankStep uint64 = 1679616

// Change kinds passed to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeMoved   = "moved"
	ChangeDeleted = "deleted"
)

// EventCallback is invoked after every successful mutation.
type EventCallback func(kind string, n models.Node)

// Service coordinates node mutations and forest reads on top of a repository.
type Service struct {
	repo     store.NodeRepository
	vault    storage.Provider
	logger   *slog.Logger
	step     uint64
	now      func() time.Time
	onChange EventCallback
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards nothing and uses slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRankStep sets the gap between appended siblings. Zero is ignored.
func WithRankStep(step uint64) Option {
	return func(s *Service) {
		if step > 0 {
			s.step = step
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEventCallback registers fn to observe mutations.
func WithEventCallback(fn EventCallback) Option {
	return func(s *Service) { s.onChange = fn }
}

// WithVault sets the storage used by Export and Import.
func WithVault(p storage.Provider) Option {
	return func(s *Service) { s.vault = p }
}

// NewService creates a node service backed by repo.
func NewService(repo store.NodeRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
		step:   DefaultRankStep,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) emit(kind string, n models.Node) {
	if s.onChange != nil {
		s.onChange(kind, n)
	}
}

// CreateNode validates req and stores a new node. The rank is taken from
// req.Rank, then req.Position, and otherwise placed one step after the last
// existing sibling.
func (s *Service) CreateNode(ctx context.Context, req CreateNodeRequest) (*models.Node, error) {
	req.Text = normalizeText(req.Text)
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	parent, err := parseOptionalID(req.ParentID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		if _, err := s.repo.GetNode(ctx, *parent); err != nil {
			return nil, fmt.Errorf("nodeservice: parent %s: %w", parent, err)
		}
	}
	key, err := s.placement(ctx, parent, req.Rank, req.Position)
	if err != nil {
		return nil, err
	}

	typ := models.TypeStandard
	if req.Type != "" {
		typ, _ = models.ParseNodeType(req.Type)
	}
	src := models.SourceUser
	if req.Source != "" {
		src, _ = models.ParseSource(req.Source)
	}

	n := models.New(models.Draft{
		ParentID: parent,
		Rank:     key,
		Type:     typ,
		Text:     req.Text,
		Author:   req.Author,
		Source:   src,
	}, s.now())
	if err := s.repo.AddNode(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info("node created", slog.String("id", n.ID.String()), slog.String("rank", n.Rank.String()))
	s.emit(ChangeCreated, n)
	return &n, nil
}

// placement resolves the rank for a node entering parent's sibling group.
func (s *Service) placement(ctx context.Context, parent *uuid.UUID, explicit string, position *uint64) (rank.Key, error) {
	switch {
	case explicit != "":
		key, err := rank.Parse(explicit)
		if err != nil {
			return rank.Key{}, invalid(err)
		}
		return key, nil
	case position != nil:
		key, err := rank.FromValue(*position)
		if err != nil {
			return rank.Key{}, invalid(err)
		}
		return key, nil
	}

	last, ok, err := s.repo.LastChildRank(ctx, parent)
	if err != nil {
		return rank.Key{}, err
	}
	if !ok {
		return rank.FromValue(s.step)
	}
	key, err := last.Next(s.step)
	if err != nil {
		return rank.Key{}, fmt.Errorf("nodeservice: no room after %s: %w", last, apperr.ErrConflict)
	}
	return key, nil
}

// GetNode loads a node by id.
func (s *Service) GetNode(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	return s.repo.GetNode(ctx, id)
}

// ListNodes returns every node ordered by creation time.
func (s *Service) ListNodes(ctx context.Context) ([]models.Node, error) {
	nodes, err := s.repo.DumpNodes(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(nodes, func(a, b models.Node) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	if nodes == nil {
		nodes = []models.Node{}
	}
	return nodes, nil
}

// UpdateNodeText replaces a node's text. A non-empty ifMatch must equal the
// node's current ETag.
func (s *Service) UpdateNodeText(ctx context.Context, id uuid.UUID, text, ifMatch string) (*models.Node, error) {
	text = normalizeText(text)
	err := validation.Validate(text, validation.Required, validation.Length(1, MaxTextLength))
	if err != nil {
		return nil, invalid(fmt.Errorf("text: %w", err))
	}
	n, err := s.repo.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != n.ETag() {
		return nil, apperr.ErrConflict
	}
	n.UpdateText(text, s.now())
	if err := s.repo.UpdateNode(ctx, *n); err != nil {
		return nil, err
	}
	s.emit(ChangeUpdated, *n)
	return n, nil
}

// MoveNode gives a node a new parent and rank. A node cannot be moved under
// itself or any of its descendants.
func (s *Service) MoveNode(ctx context.Context, id uuid.UUID, req MoveNodeRequest) (*models.Node, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	parent, err := parseOptionalID(req.ParentID)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		if err := s.checkAncestry(ctx, id, *parent); err != nil {
			return nil, err
		}
	}
	key, err := s.placement(ctx, parent, req.Rank, req.Position)
	if err != nil {
		return nil, err
	}

	moved := n.Relocate(parent, key, s.now())
	if err := s.repo.UpdateNode(ctx, moved); err != nil {
		return nil, err
	}
	s.logger.Info("node moved", slog.String("id", moved.ID.String()), slog.String("rank", moved.Rank.String()))
	s.emit(ChangeMoved, moved)
	return &moved, nil
}

// checkAncestry walks up from target and fails if it reaches id.
func (s *Service) checkAncestry(ctx context.Context, id, target uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{})
	cur := &target
	for cur != nil {
		if *cur == id {
			return invalid(errors.New("cannot move a node under itself or its descendants"))
		}
		if _, ok := seen[*cur]; ok {
			return nil
		}
		seen[*cur] = struct{}{}

		n, err := s.repo.GetNode(ctx, *cur)
		if err != nil {
			if *cur == target {
				return fmt.Errorf("nodeservice: parent %s: %w", target, err)
			}
			// A missing ancestor means target already dangles; nothing above
			// it can be id.
			if errors.Is(err, apperr.ErrNotFound) {
				return nil
			}
			return err
		}
		cur = n.ParentID
	}
	return nil
}

// DeleteNode removes a single node. Its children are left in place and stop
// appearing in the forest.
func (s *Service) DeleteNode(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteNode(ctx, id); err != nil {
		return err
	}
	s.logger.Info("node deleted", slog.String("id", id.String()))
	s.emit(ChangeDeleted, *n)
	return nil
}

// Forest loads every node and materializes the outline.
func (s *Service) Forest(ctx context.Context) (*forest.Forest, error) {
	nodes, err := s.repo.DumpNodes(ctx)
	if err != nil {
		return nil, err
	}
	f := forest.Build(nodes)
	if len(f.Dropped) > 0 {
		s.logger.Warn("forest: unreachable nodes dropped", slog.Int("dropped", len(f.Dropped)))
	}
	return f, nil
}

// Search runs a text query over node contents.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	query = normalizeText(strings.TrimSpace(query))
	if query == "" {
		return nil, invalid(errors.New("query: cannot be blank"))
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.Search(ctx, query, limit)
}
