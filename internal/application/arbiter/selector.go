package arbiter

import (
	"cmp"
	"hash/fnv"
	"math/rand/v2"
	"slices"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

var (
	_ ports.JudgeSelector = ReputationWeighted{}
	_ ports.JudgeSelector = RoundRobin{}
)

// ReputationWeighted draws one candidate with probability proportional to
// its reputation, using a PCG stream seeded with seed. Candidates are sorted
// by address first so the draw does not depend on input order.
type ReputationWeighted struct{}

func (ReputationWeighted) Select(candidates []domain.JudgeProfile, seed uint64) (domain.Party, error) {
	if len(candidates) == 0 {
		return "", domain.ErrNoEligibleJudge
	}
	sorted := sortedByAddress(candidates)

	total := 0
	for _, c := range sorted {
		total += weight(c)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pick := rng.IntN(total)
	for _, c := range sorted {
		pick -= weight(c)
		if pick < 0 {
			return c.Address, nil
		}
	}
	return sorted[len(sorted)-1].Address, nil
}

// RoundRobin picks candidates[seed mod n] over the address-sorted set.
type RoundRobin struct{}

func (RoundRobin) Select(candidates []domain.JudgeProfile, seed uint64) (domain.Party, error) {
	if len(candidates) == 0 {
		return "", domain.ErrNoEligibleJudge
	}
	sorted := sortedByAddress(candidates)
	return sorted[seed%uint64(len(sorted))].Address, nil
}

// SelectorByName maps the config value to a strategy.
func SelectorByName(name string) (ports.JudgeSelector, bool) {
	switch name {
	case "", "reputation":
		return ReputationWeighted{}, true
	case "round_robin":
		return RoundRobin{}, true
	}
	return nil, false
}

// caseSeed mixes the configured seed with the bet and the assignment round,
// so a reassignment does not deterministically land on the same draw.
func caseSeed(base uint64, betID string, round int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(betID))
	return base ^ h.Sum64() ^ uint64(round)
}

// weight keeps zero-reputation judges drawable; eligibility already filtered
// the ones below the minimum.
func weight(p domain.JudgeProfile) int {
	return p.ReputationScore + 1
}

func sortedByAddress(in []domain.JudgeProfile) []domain.JudgeProfile {
	out := slices.Clone(in)
	slices.SortFunc(out, func(a, b domain.JudgeProfile) int {
		return cmp.Compare(a.Address, b.Address)
	})
	return out
}
