package entity

import (
	"time"

	"github.com/jcmexdev/portal-flows/internal/confirmation"
)

// Screen is one mounted confirmation screen.
type Screen struct {
	ID         string
	Controller *confirmation.Controller
	Outbox     *confirmation.Outbox
	MountedAt  time.Time
	LastSeenAt time.Time
}
