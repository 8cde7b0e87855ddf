// Package patterns is layer4: learned token-rewrite patterns. Every
// observed rename teaches the store a rewrite; suggestions apply stored
// rewrites to the requested identifier and look for the candidates in
// the workspace.
package patterns

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"strata/internal/errors"
	"strata/internal/layers"
)

// RewriteKind says where in an identifier a rewrite applies.
type RewriteKind string

const (
	RewritePrefix RewriteKind = "prefix"
	RewriteSuffix RewriteKind = "suffix"
	RewriteWhole  RewriteKind = "whole"
)

// Pattern is one learned token rewrite with its evidence count.
type Pattern struct {
	FromToken string
	ToToken   string
	Kind      RewriteKind
	Support   int
	UpdatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS patterns (
	from_token TEXT NOT NULL,
	to_token   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	support    INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (from_token, to_token, kind)
);
`

// Store persists learned patterns in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the pattern database.
func OpenStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.New(errors.StoreFailed, "failed to create pattern store directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.StoreFailed, "failed to open pattern store", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.New(errors.StoreFailed, "failed to set pragma", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.New(errors.StoreFailed, "failed to create pattern schema", err)
	}

	return &Store{db: db}, nil
}

// Learn derives the token rewrite a rename implies and upserts it,
// incrementing support when the rewrite was already known.
func (s *Store) Learn(ctx context.Context, rc layers.RenameContext) error {
	p, ok := DeriveRewrite(rc.OldName, rc.NewName)
	if !ok {
		return nil // nothing learnable from this pair
	}
	return s.Upsert(ctx, p)
}

// Upsert inserts a pattern or increments its support.
func (s *Store) Upsert(ctx context.Context, p Pattern) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patterns (from_token, to_token, kind, support, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (from_token, to_token, kind)
		DO UPDATE SET support = support + 1, updated_at = excluded.updated_at
	`, p.FromToken, p.ToToken, string(p.Kind), maxInt(p.Support, 1), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.New(errors.StoreFailed, "failed to upsert pattern", err)
	}
	return nil
}

// All returns every stored pattern, highest support first.
func (s *Store) All(ctx context.Context) ([]Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_token, to_token, kind, support, updated_at
		FROM patterns
		ORDER BY support DESC, from_token ASC
	`)
	if err != nil {
		return nil, errors.New(errors.StoreFailed, "failed to read patterns", err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		var p Pattern
		var kind, updated string
		if err := rows.Scan(&p.FromToken, &p.ToToken, &kind, &p.Support, &updated); err != nil {
			return nil, errors.New(errors.StoreFailed, "failed to scan pattern row", err)
		}
		p.Kind = RewriteKind(kind)
		if t, parseErr := time.Parse(time.RFC3339, updated); parseErr == nil {
			p.UpdatedAt = t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the stored pattern count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns").Scan(&n)
	if err != nil {
		return 0, errors.New(errors.StoreFailed, "failed to count patterns", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DeriveRewrite compares a rename pair token-wise and extracts the
// rewrite it implies: first token changed is a prefix rewrite, last
// token changed a suffix rewrite, everything else a whole rewrite.
func DeriveRewrite(oldName, newName string) (Pattern, bool) {
	if oldName == "" || newName == "" || oldName == newName {
		return Pattern{}, false
	}

	oldTokens := layers.SplitTokens(oldName)
	newTokens := layers.SplitTokens(newName)
	if len(oldTokens) == 0 || len(newTokens) == 0 {
		return Pattern{}, false
	}

	now := time.Now().UTC()
	if len(oldTokens) == len(newTokens) && len(oldTokens) > 1 {
		if oldTokens[0] != newTokens[0] && equalTokens(oldTokens[1:], newTokens[1:]) {
			return Pattern{FromToken: oldTokens[0], ToToken: newTokens[0], Kind: RewritePrefix, Support: 1, UpdatedAt: now}, true
		}
		last := len(oldTokens) - 1
		if oldTokens[last] != newTokens[last] && equalTokens(oldTokens[:last], newTokens[:last]) {
			return Pattern{FromToken: oldTokens[last], ToToken: newTokens[last], Kind: RewriteSuffix, Support: 1, UpdatedAt: now}, true
		}
	}
	return Pattern{FromToken: oldName, ToToken: newName, Kind: RewriteWhole, Support: 1, UpdatedAt: now}, true
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
