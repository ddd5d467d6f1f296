package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/outline/internal/apperr"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
)

const nodeColumns = `id, parent_id, rank_key, created_time, modified_time, node_type, text, author, source`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanNode reads one row in nodeColumns order and parses it.
func scanNode(s rowScanner) (models.Node, error) {
	var (
		r      models.Record
		parent sql.NullString
	)
	if err := s.Scan(&r.ID, &parent, &r.Rank, &r.CreatedAt, &r.ModifiedAt, &r.Type, &r.Text, &r.Author, &r.Source); err != nil {
		return models.Node{}, err
	}
	if parent.Valid {
		r.ParentID = &parent.String
	}
	n, err := models.FromRecord(r)
	if err != nil {
		return models.Node{}, fmt.Errorf("store: load node %s: %w", r.ID, err)
	}
	return n, nil
}

func nullableParent(r models.Record) any {
	if r.ParentID == nil {
		return nil
	}
	return *r.ParentID
}

// AddNode inserts a node and its FTS entry within a transaction.
func (db *DB) AddNode(ctx context.Context, n models.Node) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	r := n.Record()
	_, err = tx.ExecContext(ctx, `INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, nullableParent(r), r.Rank, r.CreatedAt, r.ModifiedAt, r.Type, r.Text, r.Author, r.Source)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("store: add node %s: %w", r.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: add node: %w", err)
	}

	if err := ftsUpsert(ctx, tx, r.ID, r.Text); err != nil {
		return err
	}
	return tx.Commit()
}

// GetNode loads a single node by id.
func (db *DB) GetNode(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id.String())
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: get node %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get node: %w", err)
	}
	return &n, nil
}

// UpdateNode rewrites the mutable columns of an existing node.
func (db *DB) UpdateNode(ctx context.Context, n models.Node) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	r := n.Record()
	res, err := tx.ExecContext(ctx, `
		UPDATE nodes SET
			parent_id     = ?,
			rank_key      = ?,
			modified_time = ?,
			node_type     = ?,
			text          = ?,
			author        = ?,
			source        = ?
		WHERE id = ?
	`, nullableParent(r), r.Rank, r.ModifiedAt, r.Type, r.Text, r.Author, r.Source, r.ID)
	if err != nil {
		return fmt.Errorf("store: update node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("store: update node %s: %w", r.ID, apperr.ErrNotFound)
	}

	if err := ftsUpsert(ctx, tx, r.ID, r.Text); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNode removes a node and its FTS entry.
func (db *DB) DeleteNode(ctx context.Context, id uuid.UUID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("store: delete node %s: %w", id, apperr.ErrNotFound)
	}
	ftsDelete(ctx, tx, id.String())

	return tx.Commit()
}

// DumpNodes returns every stored node. A single corrupt row fails the dump so
// callers never see a partially loaded outline.
func (db *DB) DumpNodes(ctx context.Context) ([]models.Node, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("store: dump nodes: %w", err)
	}
	defer rows.Close()

	var out []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// LastChildRank returns the highest-valued rank among parent's children.
// Ranks are compared by value in Go since mixed-case keys do not sort
// correctly as SQL text.
func (db *DB) LastChildRank(ctx context.Context, parent *uuid.UUID) (rank.Key, bool, error) {
	var arg any
	if parent != nil {
		arg = parent.String()
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT rank_key FROM nodes WHERE parent_id IS ?`, arg)
	if err != nil {
		return rank.Key{}, false, fmt.Errorf("store: last child rank: %w", err)
	}
	defer rows.Close()

	var (
		last  rank.Key
		found bool
	)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return rank.Key{}, false, err
		}
		k, err := rank.Parse(s)
		if err != nil {
			return rank.Key{}, false, fmt.Errorf("store: last child rank: %w", &models.FieldParseError{Field: "rank_key", Err: err})
		}
		if !found || last.Less(k) {
			last, found = k, true
		}
	}
	return last, found, rows.Err()
}

// trailingScanner appends extra destinations after the node columns.
type trailingScanner struct {
	rowScanner
	extra []any
}

func (t trailingScanner) Scan(dest ...any) error {
	return t.rowScanner.Scan(append(dest, t.extra...)...)
}

func withTrailing(s rowScanner, extra ...any) rowScanner {
	return trailingScanner{rowScanner: s, extra: extra}
}
