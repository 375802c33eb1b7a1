package confirmation

import (
	"context"
	"sync"
)

type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// Notification is a toast shown to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier displays notifications. Calls must not block on the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Outbox buffers notifications for one screen until the UI drains them.
// The oldest entries are dropped once the buffer is full.
type Outbox struct {
	mu      sync.Mutex
	pending []Notification
	limit   int
}

const defaultOutboxLimit = 32

func NewOutbox(limit int) *Outbox {
	if limit <= 0 {
		limit = defaultOutboxLimit
	}
	return &Outbox{limit: limit}
}

func (o *Outbox) Notify(_ context.Context, n Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, n)
	if over := len(o.pending) - o.limit; over > 0 {
		o.pending = o.pending[over:]
	}
}

// Drain returns and clears the buffered notifications.
func (o *Outbox) Drain() []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
