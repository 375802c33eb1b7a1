package ports

import (
	"context"
	"errors"

	"github.com/jcmexdev/portal-flows/internal/api-gateway/core/domain/entity"
)

var ErrScreenNotFound = errors.New("screen not found")

// ScreenRegistry keeps mounted screens between requests.
type ScreenRegistry interface {
	Mount(ctx context.Context, screen *entity.Screen) error
	Get(ctx context.Context, id string) (*entity.Screen, error)
	Unmount(ctx context.Context, id string) error
}
