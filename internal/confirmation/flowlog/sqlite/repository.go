// Package sqlite provides a SQLite-backed flowlog.Repository.
//
// WAL mode lets the CLI read the log while the gateway keeps appending.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"

	// Pure-Go driver, no CGO.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS flow_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    flow_id         TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    request_type    TEXT        NOT NULL DEFAULT '',
    route           TEXT        NOT NULL DEFAULT '',
    -- NULL when the transition carries no payload.
    payload         TEXT,
    error_messages  TEXT        NOT NULL DEFAULT '[]',
    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',
    -- RFC3339 TEXT, SQLite has no datetime type.
    updated_at      TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flow_logs_flow_id ON flow_logs(flow_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_flow_logs_trace_id ON flow_logs(trace_id);
`

const selectColumns = `
	SELECT flow_id, status, request_type, route, COALESCE(payload,''), error_messages,
	       trace_id, span_id, updated_at
	FROM   flow_logs`

// Repository is the SQLite implementation of flowlog.Repository and flowlog.Reader.
type Repository struct {
	db *sql.DB
}

var (
	_ flowlog.Repository = (*Repository)(nil)
	_ flowlog.Reader     = (*Repository)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/flows.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save appends entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *flowlog.Entry) error {
	const q = `
		INSERT INTO flow_logs
			(flow_id, status, request_type, route, payload, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.FlowID,
		string(entry.Status),
		entry.RequestType,
		entry.Route,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save flow log for %q: %w", entry.FlowID, err)
	}
	return nil
}

// Latest returns the most recent entry of a flow.
func (r *Repository) Latest(ctx context.Context, flowID string) (*flowlog.Entry, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+`
		WHERE  flow_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`, flowID)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: flow %q: %w", flowID, flowlog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", flowID, err)
	}
	return entry, nil
}

// History returns every entry of a flow, oldest first.
func (r *Repository) History(ctx context.Context, flowID string) ([]flowlog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+`
		WHERE  flow_id = ?
		ORDER  BY updated_at ASC, id ASC`, flowID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", flowID, err)
	}
	defer rows.Close()

	var out []flowlog.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: history for %q: %w", flowID, err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", flowID, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sqlite: flow %q: %w", flowID, flowlog.ErrNotFound)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*flowlog.Entry, error) {
	var entry flowlog.Entry
	var updatedAt string
	if err := s.Scan(
		&entry.FlowID,
		&entry.Status,
		&entry.RequestType,
		&entry.Route,
		&entry.Payload,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	t, err := parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}
	entry.UpdatedAt = t
	return &entry, nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}

// nullableString stores empty payloads as NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
