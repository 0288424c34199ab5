package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

// MemoryStore implementa ports.Store en memoria. Cada unidad atómica escribe
// en un staging que solo se aplica si fn termina sin error.
type MemoryStore struct {
	mu       sync.Mutex
	bets     map[string]domain.Bet
	judges   map[domain.Party]domain.JudgeProfile
	disputes map[string]domain.Dispute
	payouts  []domain.Payout
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bets:     make(map[string]domain.Bet),
		judges:   make(map[domain.Party]domain.JudgeProfile),
		disputes: make(map[string]domain.Dispute),
	}
}

// Atomic holds the store lock for the whole unit.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(r ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		bets:     make(map[string]domain.Bet),
		judges:   make(map[domain.Party]domain.JudgeProfile),
		disputes: make(map[string]domain.Dispute),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, b := range tx.bets {
		s.bets[id] = b
	}
	for addr, j := range tx.judges {
		s.judges[addr] = j
	}
	for id, d := range tx.disputes {
		s.disputes[id] = d
	}
	s.payouts = append(s.payouts, tx.payouts...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// memTx reads through its own staged writes to the committed maps.
type memTx struct {
	store    *MemoryStore
	bets     map[string]domain.Bet
	judges   map[domain.Party]domain.JudgeProfile
	disputes map[string]domain.Dispute
	payouts  []domain.Payout
}

func (t *memTx) GetBet(_ context.Context, id string) (domain.Bet, error) {
	if b, ok := t.bets[id]; ok {
		return cloneBet(b), nil
	}
	if b, ok := t.store.bets[id]; ok {
		return cloneBet(b), nil
	}
	return domain.Bet{}, domain.ErrBetNotFound
}

func (t *memTx) SaveBet(_ context.Context, bet domain.Bet) error {
	t.bets[bet.ID] = cloneBet(bet)
	return nil
}

func (t *memTx) ListBets(_ context.Context) ([]domain.Bet, error) {
	return t.allBets(), nil
}

func (t *memTx) ListBetsByParty(_ context.Context, party domain.Party) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range t.allBets() {
		if slices.Contains(b.Parties(), party) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) ListAwaitingResolution(_ context.Context, deadline time.Time) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range t.allBets() {
		if domain.IsFinalizable(b, deadline) {
			out = append(out, b)
		}
	}
	return out, nil
}

// allBets merges staged and committed bets, newest first.
func (t *memTx) allBets() []domain.Bet {
	merged := make(map[string]domain.Bet, len(t.store.bets)+len(t.bets))
	for id, b := range t.store.bets {
		merged[id] = b
	}
	for id, b := range t.bets {
		merged[id] = b
	}
	out := make([]domain.Bet, 0, len(merged))
	for _, b := range merged {
		out = append(out, cloneBet(b))
	}
	slices.SortFunc(out, func(a, b domain.Bet) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (t *memTx) GetJudge(_ context.Context, addr domain.Party) (domain.JudgeProfile, error) {
	if j, ok := t.judges[addr]; ok {
		return cloneJudge(j), nil
	}
	if j, ok := t.store.judges[addr]; ok {
		return cloneJudge(j), nil
	}
	return domain.JudgeProfile{}, domain.ErrJudgeNotFound
}

func (t *memTx) SaveJudge(_ context.Context, judge domain.JudgeProfile) error {
	t.judges[judge.Address] = cloneJudge(judge)
	return nil
}

func (t *memTx) ListJudges(_ context.Context) ([]domain.JudgeProfile, error) {
	merged := make(map[domain.Party]domain.JudgeProfile, len(t.store.judges)+len(t.judges))
	for a, j := range t.store.judges {
		merged[a] = j
	}
	for a, j := range t.judges {
		merged[a] = j
	}
	out := make([]domain.JudgeProfile, 0, len(merged))
	for _, j := range merged {
		out = append(out, cloneJudge(j))
	}
	slices.SortFunc(out, func(a, b domain.JudgeProfile) int {
		return cmp.Compare(a.Address, b.Address)
	})
	return out, nil
}

func (t *memTx) GetDispute(_ context.Context, betID string) (domain.Dispute, error) {
	if d, ok := t.disputes[betID]; ok {
		return cloneDispute(d), nil
	}
	if d, ok := t.store.disputes[betID]; ok {
		return cloneDispute(d), nil
	}
	return domain.Dispute{}, domain.ErrDisputeNotFound
}

func (t *memTx) SaveDispute(_ context.Context, d domain.Dispute) error {
	t.disputes[d.BetID] = cloneDispute(d)
	return nil
}

func (t *memTx) SavePayout(_ context.Context, p domain.Payout) error {
	t.payouts = append(t.payouts, p)
	return nil
}

func (t *memTx) ListPayouts(_ context.Context, betID string) ([]domain.Payout, error) {
	var out []domain.Payout
	for _, p := range append(slices.Clone(t.store.payouts), t.payouts...) {
		if p.BetID == betID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- copias defensivas: los slices no deben compartirse entre unidades ---

func cloneBet(b domain.Bet) domain.Bet {
	b.Tags = slices.Clone(b.Tags)
	return b
}

func cloneJudge(j domain.JudgeProfile) domain.JudgeProfile {
	j.Conflicts = slices.Clone(j.Conflicts)
	return j
}

func cloneDispute(d domain.Dispute) domain.Dispute {
	d.PreviousJudges = slices.Clone(d.PreviousJudges)
	return d
}
