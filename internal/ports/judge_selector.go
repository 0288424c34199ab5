package ports

import "github.com/alejandrodnm/wagerbook/internal/domain"

// JudgeSelector picks one judge out of an already filtered candidate set.
// Implementations must be deterministic for a given seed.
type JudgeSelector interface {
	Select(candidates []domain.JudgeProfile, seed uint64) (domain.Party, error)
}
