//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on nodes.text.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _ string) error {
	return nil
}

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+nodeColumns+`, substr(text, 1, 200)
		FROM nodes
		WHERE text LIKE ?
		ORDER BY modified_time DESC
		LIMIT ?
	`, like, limit)
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
