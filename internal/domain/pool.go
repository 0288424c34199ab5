package domain

// PoolID identifies a liquidity pool.
type PoolID string

// Pool is the read-only view of a liquidity pool the matcher chooses from.
type Pool struct {
	ID                 PoolID
	Category           string
	Operator           Party  // identity that acts for the pool in house bets
	AvailableLiquidity Amount // liquidity free for matching
	RiskScore          int    // 0 (safe) – 100
}

// CanCover reports whether the pool can take the opposite side of stake.
func (p Pool) CanCover(stake Amount) bool {
	return p.AvailableLiquidity.GreaterThanOrEqual(stake)
}

// PoolMatch is the advisory result of pool selection for a house bet.
type PoolMatch struct {
	PoolID    PoolID
	Operator  Party
	RiskScore int
}

// BestPool picks the pool in category that can cover stake, preferring the
// lowest risk and then the deepest liquidity. ok is false when none fits.
func BestPool(pools []Pool, category string, stake Amount) (Pool, bool) {
	var best Pool
	found := false
	for _, p := range pools {
		if p.Category != category || !p.CanCover(stake) || p.Operator == "" {
			continue
		}
		if !found ||
			p.RiskScore < best.RiskScore ||
			(p.RiskScore == best.RiskScore && p.AvailableLiquidity.GreaterThan(best.AvailableLiquidity)) {
			best = p
			found = true
		}
	}
	return best, found
}
