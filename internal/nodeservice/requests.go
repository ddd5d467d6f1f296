package nodeservice

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/outline/internal/apperr"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
)

// MaxTextLength bounds the text of a single node, in characters.
const MaxTextLength = 64 << 10

// CreateNodeRequest carries the raw fields for a new node. At most one of
// Rank and Position may be set; with neither, the node is appended after its
// last sibling.
type CreateNodeRequest struct {
	ParentID string  `json:"parent_id,omitempty"`
	Rank     string  `json:"rank_key,omitempty"`
	Position *uint64 `json:"position,omitempty"`
	Type     string  `json:"node_type,omitempty"`
	Text     string  `json:"text"`
	Author   string  `json:"author"`
	Source   string  `json:"source,omitempty"`
}

// Validate checks field syntax. It does not check that the parent exists.
func (r CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ParentID, is.UUID),
		validation.Field(&r.Rank, validation.By(validRank)),
		validation.Field(&r.Position,
			validation.By(validPosition),
			validation.When(r.Rank != "", validation.Nil.Error("cannot be combined with rank_key")),
		),
		validation.Field(&r.Type, validation.By(validNodeType)),
		validation.Field(&r.Text, validation.Required, validation.Length(1, MaxTextLength)),
		validation.Field(&r.Author, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Source, validation.By(validSource)),
	)
}

// MoveNodeRequest relocates a node. An empty ParentID moves it to the top level.
type MoveNodeRequest struct {
	ParentID string  `json:"parent_id,omitempty"`
	Rank     string  `json:"rank_key,omitempty"`
	Position *uint64 `json:"position,omitempty"`
}

// Validate checks field syntax.
func (r MoveNodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ParentID, is.UUID),
		validation.Field(&r.Rank, validation.By(validRank)),
		validation.Field(&r.Position,
			validation.By(validPosition),
			validation.When(r.Rank != "", validation.Nil.Error("cannot be combined with rank_key")),
		),
	)
}

func validRank(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := rank.Parse(s); err != nil {
		return errors.New("must be 12 base-36 characters")
	}
	return nil
}

func validPosition(value interface{}) error {
	p, _ := value.(*uint64)
	if p == nil {
		return nil
	}
	if *p > rank.MaxValue {
		return fmt.Errorf("must be no greater than %d", rank.MaxValue)
	}
	return nil
}

func validNodeType(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := models.ParseNodeType(s); err != nil {
		return fmt.Errorf("must be one of %v", models.NodeTypeNames())
	}
	return nil
}

func validSource(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := models.ParseSource(s); err != nil {
		return fmt.Errorf("must be one of %v", models.SourceNames())
	}
	return nil
}

// normalizeText puts node text in Unicode NFC so that equal-looking text
// stores, searches and fingerprints the same.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
}

func parseOptionalID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, invalid(fmt.Errorf("parent_id: %w", err))
	}
	return &id, nil
}
