//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			id UNINDEXED,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, id, text string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM nodes_fts WHERE id = ?`, id)
	_, err := tx.ExecContext(ctx, `INSERT INTO nodes_fts (id, text) VALUES (?, ?)`, id, text)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) {
	_, _ = tx.ExecContext(ctx, `DELETE FROM nodes_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search over node text.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT n.id, n.parent_id, n.rank_key, n.created_time, n.modified_time,
		       n.node_type, n.text, n.author, n.source,
		       snippet(nodes_fts, 1, '<b>', '</b>', '...', 32)
		FROM nodes_fts
		JOIN nodes n ON n.id = nodes_fts.id
		WHERE nodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var snippet string
		n, err := scanNode(withTrailing(rows, &snippet))
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Node: n, Snippet: snippet})
	}
	return out, rows.Err()
}
