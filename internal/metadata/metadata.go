// Package metadata stores per-URL enrichment data (summaries, tags) in
// the same SQLite database the ledger uses.
package metadata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is the stored metadata for one bookmark URL.
type Entry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags"`
	ContentHash string    `json:"content_hash,omitempty"`
	LastFetched time.Time `json:"last_fetched,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// Store is the SQLite-backed metadata store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the metadata store at path. The path
// may be shared with the ledger database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS bookmark_metadata (
			url TEXT PRIMARY KEY,
			title TEXT,
			summary TEXT,
			tags TEXT,
			content_hash TEXT,
			last_fetched TEXT,
			last_updated TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_metadata_tags ON bookmark_metadata(tags);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or merges metadata for a URL. Empty fields on the new
// entry keep whatever the row already holds.
func (s *Store) Upsert(e Entry) error {
	tagsJSON := sql.NullString{}
	if e.Tags != nil {
		data, err := json.Marshal(e.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		tagsJSON = sql.NullString{String: string(data), Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`
		INSERT INTO bookmark_metadata (url, title, summary, tags, content_hash, last_fetched, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = COALESCE(excluded.title, title),
			summary = COALESCE(excluded.summary, summary),
			tags = COALESCE(excluded.tags, tags),
			content_hash = COALESCE(excluded.content_hash, content_hash),
			last_fetched = COALESCE(excluded.last_fetched, last_fetched),
			last_updated = excluded.last_updated
	`, e.URL, nullable(e.Title), nullable(e.Summary), tagsJSON, nullable(e.ContentHash), now, now)
	return err
}

// Get returns the metadata for a URL, or nil if none is stored.
func (s *Store) Get(url string) (*Entry, error) {
	row := s.db.QueryRow(
		"SELECT url, title, summary, tags, content_hash, last_fetched, last_updated FROM bookmark_metadata WHERE url = ?",
		url,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// All returns stored metadata, most recently updated first.
func (s *Store) All(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT url, title, summary, tags, content_hash, last_fetched, last_updated FROM bookmark_metadata ORDER BY last_updated DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ByURL returns all stored metadata keyed by URL, the shape search wants.
func (s *Store) ByURL() (map[string]Entry, error) {
	entries, err := s.All(10000)
	if err != nil {
		return nil, err
	}
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.URL] = e
	}
	return m, nil
}

// SearchByTags finds entries carrying any of the given tags.
func (s *Store) SearchByTags(tags []string, limit int) ([]Entry, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	query := "SELECT url, title, summary, tags, content_hash, last_fetched, last_updated FROM bookmark_metadata WHERE "
	var args []any
	for i, tag := range tags {
		if i > 0 {
			query += " OR "
		}
		query += "tags LIKE ?"
		args = append(args, `%"`+tag+`"%`)
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NeedingEnrichment filters the given bookmark URLs down to those with no
// metadata or metadata older than maxAge.
func (s *Store) NeedingEnrichment(urls []string, maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)

	var stale []string
	for _, url := range urls {
		var fetched sql.NullString
		err := s.db.QueryRow("SELECT last_fetched FROM bookmark_metadata WHERE url = ?", url).Scan(&fetched)
		if errors.Is(err, sql.ErrNoRows) {
			stale = append(stale, url)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !fetched.Valid {
			stale = append(stale, url)
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, fetched.String)
		if err != nil || t.Before(cutoff) {
			stale = append(stale, url)
		}
	}
	return stale, nil
}

// Delete removes the metadata for a URL. Returns false if none existed.
func (s *Store) Delete(url string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM bookmark_metadata WHERE url = ?", url)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e                Entry
		title, summary   sql.NullString
		tags, hash       sql.NullString
		fetched, updated sql.NullString
	)
	if err := row.Scan(&e.URL, &title, &summary, &tags, &hash, &fetched, &updated); err != nil {
		return Entry{}, err
	}

	e.Title = title.String
	e.Summary = summary.String
	e.ContentHash = hash.String
	e.Tags = []string{}
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
			e.Tags = []string{}
		}
	}
	if fetched.Valid {
		if t, err := time.Parse(time.RFC3339Nano, fetched.String); err == nil {
			e.LastFetched = t
		}
	}
	if updated.Valid {
		if t, err := time.Parse(time.RFC3339Nano, updated.String); err == nil {
			e.LastUpdated = t
		}
	}
	return e, nil
}
