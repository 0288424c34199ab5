package pool

import (
	"context"
	"slices"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

var _ ports.PoolMatcher = (*Static)(nil)

// Static matches against a fixed pool list, typically loaded from config.
type Static struct {
	pools []domain.Pool
}

// NewStatic copies pools.
func NewStatic(pools []domain.Pool) *Static {
	return &Static{pools: slices.Clone(pools)}
}

// SelectPool never fails.
func (s *Static) SelectPool(_ context.Context, category string, stake domain.Amount) (domain.PoolMatch, bool, error) {
	best, ok := domain.BestPool(s.pools, category, stake)
	if !ok {
		return domain.PoolMatch{}, false, nil
	}
	return matchOf(best), true, nil
}
