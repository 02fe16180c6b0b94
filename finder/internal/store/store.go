// Package store persists the last applied query per page so marks can be
// restored when the page is loaded again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Schema is the DDL of the page-state table.
const Schema = `
CREATE TABLE IF NOT EXISTS page_state (
    page_key   TEXT PRIMARY KEY,
    page_url   TEXT NOT NULL DEFAULT '',
    terms      TEXT NOT NULL DEFAULT '[]',
    options    TEXT NOT NULL DEFAULT '{}',
    proximity  TEXT,
    updated_at INTEGER NOT NULL
);
`

// KeyPrefix starts every page key.
const KeyPrefix = "advFind_persist_"

const maxKeyLen = 100

// Store is the page-state database handle.
type Store struct {
	DB *sql.DB
}

// PageState is the persisted query of one page.
type PageState struct {
	Key       string          `json:"key"`
	URL       string          `json:"url"`
	Terms     []string        `json:"terms"`
	Options   json.RawMessage `json:"options"`
	Proximity json.RawMessage `json:"proximity,omitempty"`
	UpdatedAt int64           `json:"updated_at"`
}

// PageKey derives the storage key of a page from origin and path: every
// character outside [A-Za-z0-9] becomes '_' and the key is capped at 100
// bytes.
func PageKey(rawURL string) string {
	s := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		s = u.Scheme + "://" + u.Host + u.Path
	}
	b := []byte(s)
	for i, c := range b {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			b[i] = '_'
		}
	}
	key := KeyPrefix + string(b)
	if len(key) > maxKeyLen {
		key = key[:maxKeyLen]
	}
	return key
}

// Save upserts st. Key defaults to PageKey(st.URL).
func (s *Store) Save(ctx context.Context, st *PageState) error {
	if st.Key == "" {
		st.Key = PageKey(st.URL)
	}
	terms, err := json.Marshal(st.Terms)
	if err != nil {
		return fmt.Errorf("store: marshal terms: %w", err)
	}
	opts := st.Options
	if len(opts) == 0 {
		opts = json.RawMessage("{}")
	}
	var prox sql.NullString
	if len(st.Proximity) > 0 {
		prox = sql.NullString{String: string(st.Proximity), Valid: true}
	}
	st.UpdatedAt = time.Now().UnixMilli()

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO page_state (page_key, page_url, terms, options, proximity, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(page_key) DO UPDATE SET
			page_url = excluded.page_url,
			terms = excluded.terms,
			options = excluded.options,
			proximity = excluded.proximity,
			updated_at = excluded.updated_at`,
		st.Key, st.URL, string(terms), string(opts), prox, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", st.Key, err)
	}
	return nil
}

// Load returns the state stored under key, or nil if there is none.
func (s *Store) Load(ctx context.Context, key string) (*PageState, error) {
	st := &PageState{Key: key}
	var terms, opts string
	var prox sql.NullString
	err := s.DB.QueryRowContext(ctx, `
		SELECT page_url, terms, options, proximity, updated_at
		FROM page_state WHERE page_key = ?`, key).Scan(
		&st.URL, &terms, &opts, &prox, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(terms), &st.Terms); err != nil {
		return nil, fmt.Errorf("store: decode terms of %s: %w", key, err)
	}
	st.Options = json.RawMessage(opts)
	if prox.Valid {
		st.Proximity = json.RawMessage(prox.String)
	}
	return st, nil
}

// Delete removes the state stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM page_state WHERE page_key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// List returns every stored state, most recent first.
func (s *Store) List(ctx context.Context) ([]PageState, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT page_key, page_url, terms, options, proximity, updated_at
		FROM page_state ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []PageState
	for rows.Next() {
		var st PageState
		var terms, opts string
		var prox sql.NullString
		if err := rows.Scan(&st.Key, &st.URL, &terms, &opts, &prox, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		json.Unmarshal([]byte(terms), &st.Terms)
		st.Options = json.RawMessage(opts)
		if prox.Valid {
			st.Proximity = json.RawMessage(prox.String)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
