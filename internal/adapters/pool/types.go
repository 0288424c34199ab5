package pool

import (
	"log/slog"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// DTOs del servicio de pools. La liquidez viaja como string decimal.

type poolsResponse struct {
	Pools []poolDTO `json:"pools"`
}

type poolDTO struct {
	ID                 string `json:"id"`
	Category           string `json:"category"`
	Operator           string `json:"operator"`
	AvailableLiquidity string `json:"available_liquidity"`
	RiskScore          int    `json:"risk_score"`
}

// mapPools drops entries whose liquidity does not parse.
func mapPools(raw []poolDTO) []domain.Pool {
	out := make([]domain.Pool, 0, len(raw))
	for _, r := range raw {
		liq, err := domain.ParseAmount(r.AvailableLiquidity)
		if err != nil {
			slog.Debug("skipping pool with invalid liquidity", "pool", r.ID, "err", err)
			continue
		}
		out = append(out, domain.Pool{
			ID:                 domain.PoolID(r.ID),
			Category:           r.Category,
			Operator:           domain.Party(r.Operator),
			AvailableLiquidity: liq,
			RiskScore:          r.RiskScore,
		})
	}
	return out
}

func matchOf(p domain.Pool) domain.PoolMatch {
	return domain.PoolMatch{PoolID: p.ID, Operator: p.Operator, RiskScore: p.RiskScore}
}
