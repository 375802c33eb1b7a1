package flowlog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a flow has no entries.
var ErrNotFound = errors.New("flowlog: flow not found")

// Repository persists flow log entries. Save appends; rows are never updated.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
}

// Reader queries the log.
type Reader interface {
	Latest(ctx context.Context, flowID string) (*Entry, error)
	History(ctx context.Context, flowID string) ([]Entry, error)
}
