package cache

import (
	"context"
	"time"
)

// Redeemer records one-time ids in a Cache. It satisfies
// confirmation.Redeemer.
type Redeemer struct {
	cache     Cache
	operation string
}

func NewRedeemer(c Cache, operation string) *Redeemer {
	return &Redeemer{cache: c, operation: operation}
}

// Redeem reports true the first time id is seen within ttl.
func (r *Redeemer) Redeem(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return r.cache.SetNX(ctx, r.cache.GenerateKey(r.operation, id), time.Now().UTC().Format(time.RFC3339), ttl)
}
