package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// Store persiste bets, judges, disputes y payouts.
type Store interface {
	// Atomic runs fn as one all-or-nothing unit. Units are serialized, so a
	// read-check-write inside fn cannot interleave with another unit: this is
	// the single-writer boundary for every bet and judge. If fn returns an
	// error nothing it wrote is visible.
	Atomic(ctx context.Context, fn func(r Repositories) error) error

	// Close cierra la conexión limpiamente.
	Close() error
}

// Repositories is the view of the store inside one atomic unit.
type Repositories interface {
	BetRepository
	JudgeRepository
	DisputeRepository
	PayoutRepository
}

// BetRepository stores escrow instances.
type BetRepository interface {
	// GetBet returns domain.ErrBetNotFound when id is unknown.
	GetBet(ctx context.Context, id string) (domain.Bet, error)
	SaveBet(ctx context.Context, bet domain.Bet) error
	// ListBetsByParty returns the bets where party is creator, opponent or
	// pool operator, newest first.
	ListBetsByParty(ctx context.Context, party domain.Party) ([]domain.Bet, error)
	// ListAwaitingResolution returns bets whose dispute deadline is at or
	// before deadline.
	ListAwaitingResolution(ctx context.Context, deadline time.Time) ([]domain.Bet, error)
	ListBets(ctx context.Context) ([]domain.Bet, error)
}

// JudgeRepository stores judge profiles. Profiles are never deleted.
type JudgeRepository interface {
	// GetJudge returns domain.ErrJudgeNotFound when addr is unknown.
	GetJudge(ctx context.Context, addr domain.Party) (domain.JudgeProfile, error)
	SaveJudge(ctx context.Context, judge domain.JudgeProfile) error
	// ListJudges returns every profile ordered by address.
	ListJudges(ctx context.Context) ([]domain.JudgeProfile, error)
}

// DisputeRepository stores dispute records, one per bet.
type DisputeRepository interface {
	// GetDispute returns domain.ErrDisputeNotFound when the bet was never disputed.
	GetDispute(ctx context.Context, betID string) (domain.Dispute, error)
	SaveDispute(ctx context.Context, d domain.Dispute) error
}

// PayoutRepository is the append-only custody journal.
type PayoutRepository interface {
	SavePayout(ctx context.Context, p domain.Payout) error
	ListPayouts(ctx context.Context, betID string) ([]domain.Payout, error)
}
