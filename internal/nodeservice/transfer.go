package nodeservice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/starford/outline/internal/apperr"
	"github.com/starford/outline/internal/checksum"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/outline"
	"github.com/starford/outline/internal/rank"
	"github.com/starford/outline/internal/storage"
)

// ErrNoVault is returned by Export and Import when no vault is configured.
var ErrNoVault = errors.New("nodeservice: no export vault configured")

// ExportRequest names the vault file to write.
type ExportRequest struct {
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// Validate checks field syntax.
func (r ExportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.By(markdownPath)),
	)
}

// ExportResult summarizes a finished export.
type ExportResult struct {
	Path     string `json:"path"`
	Nodes    int    `json:"nodes"`
	Dropped  int    `json:"dropped"`
	Checksum string `json:"checksum"`
}

// ImportRequest names a vault file whose items are added under ParentID, or
// as new top-level nodes when ParentID is empty.
type ImportRequest struct {
	Path     string `json:"path"`
	ParentID string `json:"parent_id,omitempty"`
	Author   string `json:"author,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Validate checks field syntax.
func (r ImportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.By(markdownPath)),
		validation.Field(&r.ParentID, is.UUID),
		validation.Field(&r.Source, validation.By(validSource)),
	)
}

// ImportResult lists what an import created.
type ImportResult struct {
	Path    string      `json:"path"`
	Title   string      `json:"title,omitempty"`
	Created int         `json:"created"`
	Roots   []uuid.UUID `json:"roots"`
}

func markdownPath(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !strings.HasSuffix(strings.ToLower(s), ".md") {
		return errors.New("must end in .md")
	}
	return nil
}

// Export renders the current forest into the vault.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	f, err := s.Forest(ctx)
	if err != nil {
		return nil, err
	}
	data, err := outline.Render(f, outline.Meta{Title: req.Title, Author: req.Author})
	if err != nil {
		return nil, fmt.Errorf("nodeservice: render: %w", err)
	}
	if err := s.vault.Write(req.Path, data); err != nil {
		return nil, err
	}
	res := &ExportResult{Path: req.Path, Nodes: f.Len(), Dropped: len(f.Dropped), Checksum: checksum.Sum(data)}
	s.logger.Info("outline exported", slog.String("path", req.Path), slog.Int("nodes", res.Nodes))
	return res, nil
}

// Import parses a vault file and creates one node per item. Nodes are added
// one at a time; a failure part way leaves the earlier nodes in place.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	data, err := s.vault.Read(req.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("nodeservice: import %s: %w", req.Path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc, err := outline.Parse(data)
	if err != nil {
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

	author := cmp.Or(req.Author, doc.Meta.Author, "import")
	src := models.SourceApplication
	if req.Source != "" {
		src, _ = models.ParseSource(req.Source)
	}

	res := &ImportResult{Path: req.Path, Title: doc.Meta.Title, Roots: []uuid.UUID{}}
	top, err := s.placement(ctx, parent, "", nil)
	if err != nil {
		return nil, err
	}
	firstChild, err := rank.FromValue(s.step)
	if err != nil {
		return nil, err
	}
	// last[d] is the most recent node at depth d; next holds the rank for
	// that node's next child.
	var (
		last []uuid.UUID
		next = map[uuid.UUID]rank.Key{}
	)
	now := s.now()
	for i, it := range doc.Items {
		var (
			pid *uuid.UUID
			key rank.Key
		)
		if it.Depth == 0 {
			pid, key = parent, top
			if i > 0 {
				if top, err = top.Next(s.step); err != nil {
					return res, fmt.Errorf("nodeservice: import: %w", err)
				}
				key = top
			}
		} else {
			p := last[it.Depth-1]
			pid = &p
			key = next[p]
		}

		n := models.New(models.Draft{
			ParentID: pid,
			Rank:     key,
			Type:     it.Type,
			Text:     normalizeText(it.Text),
			Author:   author,
			Source:   src,
		}, now)
		if err := s.repo.AddNode(ctx, n); err != nil {
			return res, err
		}
		res.Created++
		if it.Depth == 0 {
			res.Roots = append(res.Roots, n.ID)
		} else if next[*pid], err = key.Next(s.step); err != nil {
			return res, fmt.Errorf("nodeservice: import: %w", err)
		}
		next[n.ID] = firstChild

		last = append(last[:it.Depth], n.ID)
		s.emit(ChangeCreated, n)
	}
	s.logger.Info("outline imported", slog.String("path", req.Path), slog.Int("created", res.Created))
	return res, nil
}

// ListExports describes every outline file in the vault.
func (s *Service) ListExports() ([]storage.FileInfo, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}
	return s.vault.List("")
}

// ReadExport returns the raw contents of a vault file.
func (s *Service) ReadExport(path string) ([]byte, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}
	if err := validation.Validate(path, validation.Required, validation.By(markdownPath)); err != nil {
		return nil, invalid(fmt.Errorf("path: %w", err))
	}
	data, err := s.vault.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("nodeservice: read %s: %w", path, apperr.ErrNotFound)
	}
	return data, err
}

// SaveExport stores an uploaded outline in the vault. data must parse.
func (s *Service) SaveExport(path string, data []byte) (*storage.FileInfo, error) {
	if s.vault == nil {
		return nil, ErrNoVault
	}
	if err := validation.Validate(path, validation.Required, validation.By(markdownPath)); err != nil {
		return nil, invalid(fmt.Errorf("path: %w", err))
	}
	if _, err := outline.Parse(data); err != nil {
		return nil, invalid(err)
	}
	if err := s.vault.Write(path, data); err != nil {
		return nil, err
	}
	return &storage.FileInfo{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Size:      int64(len(data)),
		UpdatedAt: s.now().UTC(),
	}, nil
}
