// Package ledger keeps the append-only record of executed bookmark
// mutations. Every successful mutation lands here exactly once, with
// enough before/after state to apply the inverse later.
package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jfelder/marksman/internal/model"
)

const currentSchemaVersion = 1

// Action identifies the kind of mutation a change record describes.
type Action string

const (
	ActionCreate       Action = "create"
	ActionCreateFolder Action = "create_folder"
	ActionMove         Action = "move"
	ActionRename       Action = "rename"
	ActionDelete       Action = "delete"
	ActionBulkMove     Action = "bulk_move"
)

// Backend names which write path executed a mutation.
type Backend string

const (
	BackendBridge Backend = "bridge"
	BackendFile   Backend = "file"
)

// Details holds the before/after state of one change. Only the fields
// relevant to the action are set.
type Details struct {
	Title        string              `json:"title,omitempty"`
	Folder       string              `json:"folder,omitempty"`
	FromFolder   string              `json:"from_folder,omitempty"`
	ToFolder     string              `json:"to_folder,omitempty"`
	OldTitle     string              `json:"old_title,omitempty"`
	NewTitle     string              `json:"new_title,omitempty"`
	FolderName   string              `json:"folder_name,omitempty"`
	ParentFolder string              `json:"parent_folder,omitempty"`
	FullPath     string              `json:"full_path,omitempty"`
	Moves        []model.AppliedMove `json:"moves,omitempty"`
	SuccessCount int                 `json:"success_count,omitempty"`
	Requested    int                 `json:"total_requested,omitempty"`
}

// Change is one recorded mutation.
type Change struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	URL       string    `json:"url,omitempty"`
	Details   Details   `json:"details"`
	Backend   Backend   `json:"backend"`
	Reverted  bool      `json:"reverted"`
}

// Ledger is the SQLite-backed change store.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the ledger database at path.
func Open(path string) (*Ledger, error) {
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

	l := &Ledger{db: db, path: path}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	var version int
	err := l.db.QueryRow("SELECT version FROM ledger_schema_version LIMIT 1").Scan(&version)
	if err != nil {
		version = 0
	}

	if version < 1 {
		if err := l.migrateV1(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ledger_schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS bookmark_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			action TEXT NOT NULL,
			url TEXT,
			details TEXT NOT NULL,
			backend TEXT NOT NULL,
			reverted INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_changes_timestamp
		ON bookmark_changes(timestamp DESC);

		INSERT OR REPLACE INTO ledger_schema_version (version) VALUES (1);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record appends one change. It must be the final step of a successful
// mutation: a mutation that fails earlier leaves no record here.
func (l *Ledger) Record(action Action, url string, details Details, backend Backend) (int64, error) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return 0, fmt.Errorf("encode details: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := l.db.Exec(
		"INSERT INTO bookmark_changes (timestamp, action, url, details, backend, reverted) VALUES (?, ?, ?, ?, ?, 0)",
		now, string(action), url, string(detailsJSON), string(backend),
	)
	if err != nil {
		return 0, fmt.Errorf("record change: %w", err)
	}
	return res.LastInsertId()
}

// History returns the most recent changes, newest first, including
// reverted ones so callers can see what was undone and when.
func (l *Ledger) History(limit int) ([]Change, error) {
	rows, err := l.db.Query(
		"SELECT id, timestamp, action, url, details, backend, reverted FROM bookmark_changes ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// LastRevertable returns the most recent change that has not been
// reverted, or nil when every change is already reverted.
func (l *Ledger) LastRevertable() (*Change, error) {
	row := l.db.QueryRow(
		"SELECT id, timestamp, action, url, details, backend, reverted FROM bookmark_changes WHERE reverted = 0 ORDER BY id DESC LIMIT 1",
	)
	c, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkReverted flags a change so it is never selected as an undo target
// again. Returns false if no change with that id exists.
func (l *Ledger) MarkReverted(id int64) (bool, error) {
	res, err := l.db.Exec("UPDATE bookmark_changes SET reverted = 1 WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (Change, error) {
	var (
		c           Change
		ts          string
		url         sql.NullString
		detailsJSON string
		action      string
		backend     string
		reverted    int
	)
	if err := row.Scan(&c.ID, &ts, &action, &url, &detailsJSON, &backend, &reverted); err != nil {
		return Change{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Change{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	c.Timestamp = t
	c.Action = Action(action)
	c.Backend = Backend(backend)
	c.Reverted = reverted == 1
	if url.Valid {
		c.URL = url.String
	}
	if err := json.Unmarshal([]byte(detailsJSON), &c.Details); err != nil {
		c.Details = Details{}
	}
	return c, nil
}
