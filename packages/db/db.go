// Package db stores recordings in SQLite so check files can refer to them
// by id instead of by file path.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/spyspec/packages/recorder"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrRecordingNotFound is returned by LoadRecording for an unknown id.
var ErrRecordingNotFound = errors.New("recording not found")

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	id      TEXT PRIMARY KEY,
	created TIMESTAMP NOT NULL,
	spies   INTEGER NOT NULL,
	calls   INTEGER NOT NULL,
	body    BLOB NOT NULL
)`

// Summary describes a stored recording without decoding it.
type Summary struct {
	ID      string
	Created time.Time
	Spies   int
	Calls   int
}

// Store is a recording store backed by a SQLite database.
type Store struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// Open opens (and creates when missing) the store named by a connection
// string such as sqlite://recordings.db.
func Open(connectionString string) (*Store, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:           db,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRecording stores rec, replacing any recording with the same id.
func (s *Store) SaveRecording(ctx context.Context, rec *recorder.Recording) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding recording: %w", err)
	}

	calls := 0
	spies := rec.Spies()
	for _, sp := range spies {
		calls += sp.CallCount()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO recordings (id, created, spies, calls, body) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Created.UTC(), len(spies), calls, body)
	if err != nil {
		return fmt.Errorf("saving recording %s: %w", rec.ID, err)
	}
	return nil
}

// LoadRecording returns the recording stored under id.
func (s *Store) LoadRecording(ctx context.Context, id string) (*recorder.Recording, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM recordings WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	rec := &recorder.Recording{}
	if err := json.Unmarshal(body, rec); err != nil {
		return nil, fmt.Errorf("decoding recording %s: %w", id, err)
	}
	return rec, nil
}

// ListRecordings returns stored recordings, newest first.
func (s *Store) ListRecordings(ctx context.Context) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, created, spies, calls FROM recordings ORDER BY created DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Created, &sum.Spies, &sum.Calls); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// DeleteRecording removes the recording stored under id.
func (s *Store) DeleteRecording(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting recording %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	return nil
}

// IsReference reports whether ref names a stored recording rather than a
// file, e.g. sqlite://runs.db#3f2c.
func IsReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.HasPrefix(ref, "sqlite:")
}

// SplitReference splits sqlite://runs.db#id into the connection string and
// the recording id.
func SplitReference(ref string) (conn, id string, err error) {
	conn, id, ok := strings.Cut(strings.TrimSpace(ref), "#")
	if !ok || id == "" {
		return "", "", fmt.Errorf("recording reference %q has no #id", ref)
	}
	return conn, id, nil
}

// parseConnectionString extracts the SQLite DSN.
// Supported formats:
// - sqlite://path/to/db.sqlite
// - sqlite:./test.db
func parseConnectionString(connStr string) (dsn string, err error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		dsn = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		dsn = strings.TrimPrefix(connStr, "sqlite:")
	default:
		return "", fmt.Errorf("unsupported connection string: %q", connStr)
	}
	if dsn == "" {
		return "", fmt.Errorf("connection string %q has no database path", connStr)
	}
	return dsn, nil
}
