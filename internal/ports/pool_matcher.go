package ports

import (
	"context"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// PoolMatcher selects the liquidity pool that takes the other side of a
// house bet. It is advisory and consulted only at creation time.
type PoolMatcher interface {
	// SelectPool returns ok=false when no pool in category can cover stake.
	SelectPool(ctx context.Context, category string, stake domain.Amount) (match domain.PoolMatch, ok bool, err error)
}
