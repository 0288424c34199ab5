// Package escrow runs the per-bet state machine: creation, funding,
// cancellation, outcome declaration, disputes and payouts.
package escrow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

// Config holds the escrow settings.
type Config struct {
	DisputeWindow time.Duration // time the other side has to contest a declaration
	MaxRiskScore  int           // house bets against riskier pools are refused
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{DisputeWindow: domain.DefaultDisputeWindow, MaxRiskScore: 70}
}

// DisputeOpener creates the dispute record and assigns a judge inside the
// escrow's atomic unit.
type DisputeOpener interface {
	OpenDispute(ctx context.Context, repo ports.Repositories, bet domain.Bet, caller domain.Party, reason string, now time.Time) (domain.Dispute, error)
}

// CreateBetRequest are the inputs of CreateBet. House selects a pool as the
// counterparty; the pool category is the first tag.
type CreateBetRequest struct {
	Creator         domain.Party
	Opponent        domain.Party
	House           bool
	Stake           domain.Amount
	Description     string
	OutcomeCriteria string
	Tags            []string
	ExpiresAt       time.Time
}

// Service is the escrow factory and the entry point of every bet operation.
type Service struct {
	store   ports.Store
	clock   ports.Clock
	pools   ports.PoolMatcher
	arbiter DisputeOpener
	events  ports.EventSink
	cfg     Config
}

// New builds the service. pools may be nil when house bets are disabled;
// events may be nil.
func New(store ports.Store, clock ports.Clock, pools ports.PoolMatcher, arbiter DisputeOpener, events ports.EventSink, cfg Config) *Service {
	if cfg.DisputeWindow <= 0 {
		cfg.DisputeWindow = domain.DefaultDisputeWindow
	}
	return &Service{
		store:   store,
		clock:   clock,
		pools:   pools,
		arbiter: arbiter,
		events:  events,
		cfg:     cfg,
	}
}

// CreateBet validates the terms, matches a pool for house bets and stores the
// bet in state Created.
func (s *Service) CreateBet(ctx context.Context, req CreateBetRequest) (domain.Bet, error) {
	now := s.clock.Now()
	terms := domain.Terms{
		Creator:         req.Creator,
		Opponent:        domain.SpecificOpponent(req.Opponent),
		Stake:           req.Stake,
		Description:     req.Description,
		OutcomeCriteria: req.OutcomeCriteria,
		Tags:            req.Tags,
		ExpiresAt:       req.ExpiresAt,
	}

	var match *domain.PoolMatch
	if req.House {
		if req.Opponent != "" {
			return domain.Bet{}, domain.ErrInvalidTerms.WithMsg("a house bet cannot name an opponent")
		}
		m, err := s.matchPool(ctx, terms)
		if err != nil {
			return domain.Bet{}, err
		}
		terms.Opponent = domain.HouseOpponent(m.PoolID)
		match = &m
	}

	bet, err := domain.NewBet(uuid.New().String(), terms, match, now)
	if err != nil {
		return domain.Bet{}, err
	}
	err = s.store.Atomic(ctx, func(repo ports.Repositories) error {
		return repo.SaveBet(ctx, bet)
	})
	if err != nil {
		return domain.Bet{}, errors.Wrap(err, "escrow.CreateBet")
	}

	slog.Info("bet created", "bet", bet.ID, "creator", bet.Creator, "opponent", bet.Opponent.String(),
		"stake", bet.Ledger.Stake.String(), "expires_at", bet.ExpiresAt)
	s.publish(ctx, domain.Event{Type: domain.EventBetCreated, BetID: bet.ID, Actor: bet.Creator,
		State: bet.State, Amount: bet.Ledger.Stake, At: now})
	return bet, nil
}

func (s *Service) matchPool(ctx context.Context, terms domain.Terms) (domain.PoolMatch, error) {
	if s.pools == nil {
		return domain.PoolMatch{}, domain.ErrNoPoolAvailable.WithMsg("house bets are disabled")
	}
	category := terms.Category()
	if category == "" {
		return domain.PoolMatch{}, domain.ErrInvalidTerms.WithMsg("a house bet needs a category tag")
	}
	m, ok, err := s.pools.SelectPool(ctx, category, terms.Stake)
	if err != nil {
		slog.Warn("pool matcher failed", "category", category, "err", err)
		return domain.PoolMatch{}, domain.ErrNoPoolAvailable.WithMsg("pool matcher unavailable")
	}
	if !ok {
		return domain.PoolMatch{}, domain.ErrNoPoolAvailable
	}
	if m.RiskScore > s.cfg.MaxRiskScore {
		return domain.PoolMatch{}, domain.ErrRiskTooHigh
	}
	return m, nil
}

// Fund records caller's deposit of the stake. The second deposit activates
// the bet in the same unit.
func (s *Service) Fund(ctx context.Context, betID string, caller domain.Party) (domain.Bet, error) {
	now := s.clock.Now()
	bet, err := s.mutate(ctx, betID, func(_ ports.Repositories, b *domain.Bet) error {
		return b.Fund(caller, now)
	})
	if err != nil {
		return domain.Bet{}, errors.Wrapf(err, "escrow.Fund %s", betID)
	}

	slog.Info("bet funded", "bet", betID, "by", caller, "state", bet.State)
	evs := []domain.Event{{Type: domain.EventBetFunded, BetID: betID, Actor: caller, State: bet.State, Amount: bet.Ledger.Stake, At: now}}
	if bet.State == domain.StateActive {
		evs = append(evs, domain.Event{Type: domain.EventBetActivated, BetID: betID, State: bet.State, At: now})
	}
	s.publish(ctx, evs...)
	return bet, nil
}

// Cancel cancels a bet that never activated and refunds every deposit.
func (s *Service) Cancel(ctx context.Context, betID string, caller domain.Party) (domain.Bet, error) {
	now := s.clock.Now()
	var refunds []domain.Refund
	bet, err := s.mutate(ctx, betID, func(repo ports.Repositories, b *domain.Bet) error {
		var err error
		if refunds, err = b.Cancel(caller); err != nil {
			return err
		}
		for _, r := range refunds {
			if err := s.savePayout(ctx, repo, *b, r.Side, r.Amount, domain.PayoutRefund, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Bet{}, errors.Wrapf(err, "escrow.Cancel %s", betID)
	}

	slog.Info("bet cancelled", "bet", betID, "by", caller, "refunds", len(refunds))
	s.publish(ctx, domain.Event{Type: domain.EventBetCancelled, BetID: betID, Actor: caller, State: bet.State, At: now})
	return bet, nil
}

// DeclareOutcome records the first declaration after expiry and opens the
// dispute window.
func (s *Service) DeclareOutcome(ctx context.Context, betID string, caller domain.Party, outcome domain.Outcome) (domain.Bet, error) {
	now := s.clock.Now()
	bet, err := s.mutate(ctx, betID, func(_ ports.Repositories, b *domain.Bet) error {
		return b.DeclareOutcome(caller, outcome, now, s.cfg.DisputeWindow)
	})
	if err != nil {
		return domain.Bet{}, errors.Wrapf(err, "escrow.DeclareOutcome %s", betID)
	}

	slog.Info("outcome declared", "bet", betID, "by", caller, "outcome", outcome, "deadline", bet.DisputeDeadline)
	s.publish(ctx, domain.Event{Type: domain.EventOutcomeDeclared, BetID: betID, Actor: caller,
		State: bet.State, Outcome: outcome, At: now})
	return bet, nil
}

// RaiseDispute contests the declaration. The bet transition, the dispute
// record and the judge assignment commit together or not at all.
func (s *Service) RaiseDispute(ctx context.Context, betID string, caller domain.Party, reason string) (domain.Bet, domain.Dispute, error) {
	if s.arbiter == nil {
		return domain.Bet{}, domain.Dispute{}, domain.ErrNoEligibleJudge.WithMsg("no arbiter configured")
	}
	now := s.clock.Now()
	var d domain.Dispute
	bet, err := s.mutate(ctx, betID, func(repo ports.Repositories, b *domain.Bet) error {
		if err := b.RaiseDispute(caller, now); err != nil {
			return err
		}
		var err error
		d, err = s.arbiter.OpenDispute(ctx, repo, *b, caller, reason, now)
		return err
	})
	if err != nil {
		return domain.Bet{}, domain.Dispute{}, errors.Wrapf(err, "escrow.RaiseDispute %s", betID)
	}

	slog.Info("dispute raised", "bet", betID, "by", caller, "judge", d.Judge)
	s.publish(ctx,
		domain.Event{Type: domain.EventDisputeRaised, BetID: betID, Actor: caller, State: bet.State, At: now},
		domain.Event{Type: domain.EventJudgeAssigned, BetID: betID, Judge: d.Judge, At: now},
	)
	return bet, d, nil
}

// FinalizeResolution accepts the declaration after an undisputed window.
func (s *Service) FinalizeResolution(ctx context.Context, betID string, caller domain.Party) (domain.Bet, error) {
	now := s.clock.Now()
	bet, err := s.mutate(ctx, betID, func(_ ports.Repositories, b *domain.Bet) error {
		return b.FinalizeResolution(caller, now)
	})
	if err != nil {
		return domain.Bet{}, errors.Wrapf(err, "escrow.FinalizeResolution %s", betID)
	}

	slog.Info("bet resolved", "bet", betID, "by", caller, "outcome", bet.DeclaredOutcome)
	s.publish(ctx, domain.Event{Type: domain.EventBetResolved, BetID: betID, Actor: caller,
		State: bet.State, Outcome: bet.DeclaredOutcome, At: now})
	return bet, nil
}

// ClaimWinnings releases caller's share of a resolved bet: both stakes for a
// sole winner, the own stake on a draw.
func (s *Service) ClaimWinnings(ctx context.Context, betID string, caller domain.Party) (domain.Amount, error) {
	now := s.clock.Now()
	var amount domain.Amount
	_, err := s.mutate(ctx, betID, func(repo ports.Repositories, b *domain.Bet) error {
		side, amt, err := b.ClaimWinnings(caller)
		if err != nil {
			return err
		}
		amount = amt
		reason := domain.PayoutWinnings
		if b.DeclaredOutcome == domain.OutcomeDraw {
			reason = domain.PayoutDraw
		}
		return s.savePayout(ctx, repo, *b, side, amt, reason, now)
	})
	if err != nil {
		return domain.Zero, errors.Wrapf(err, "escrow.ClaimWinnings %s", betID)
	}

	slog.Info("winnings claimed", "bet", betID, "by", caller, "amount", amount.String())
	s.publish(ctx, domain.Event{Type: domain.EventWinningsClaimed, BetID: betID, Actor: caller, Amount: amount, At: now})
	return amount, nil
}

// GetDetails returns the stored bet.
func (s *Service) GetDetails(ctx context.Context, betID string) (domain.Bet, error) {
	var bet domain.Bet
	err := s.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		bet, err = repo.GetBet(ctx, betID)
		return err
	})
	if err != nil {
		return domain.Bet{}, errors.Wrapf(err, "escrow.GetDetails %s", betID)
	}
	return bet, nil
}

// ListBets returns every bet party takes part in, or all bets when party is
// empty. Newest first.
func (s *Service) ListBets(ctx context.Context, party domain.Party) ([]domain.Bet, error) {
	var out []domain.Bet
	err := s.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		if party == "" {
			out, err = repo.ListBets(ctx)
		} else {
			out, err = repo.ListBetsByParty(ctx, party)
		}
		return err
	})
	return out, errors.Wrap(err, "escrow.ListBets")
}

// Finalizable lists bets whose dispute window has elapsed undisputed. Nothing
// finalizes them automatically; a keeper or a party calls FinalizeResolution.
func (s *Service) Finalizable(ctx context.Context) ([]domain.Bet, error) {
	now := s.clock.Now()
	var candidates []domain.Bet
	err := s.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		candidates, err = repo.ListAwaitingResolution(ctx, now)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "escrow.Finalizable")
	}
	out := candidates[:0]
	for _, b := range candidates {
		if domain.IsFinalizable(b, now) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Payouts returns the custody journal of betID.
func (s *Service) Payouts(ctx context.Context, betID string) ([]domain.Payout, error) {
	var out []domain.Payout
	err := s.store.Atomic(ctx, func(repo ports.Repositories) error {
		if _, err := repo.GetBet(ctx, betID); err != nil {
			return err
		}
		var err error
		out, err = repo.ListPayouts(ctx, betID)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "escrow.Payouts %s", betID)
	}
	return out, nil
}

// mutate loads betID, applies fn and saves the bet in one unit.
func (s *Service) mutate(ctx context.Context, betID string, fn func(repo ports.Repositories, b *domain.Bet) error) (domain.Bet, error) {
	var out domain.Bet
	err := s.store.Atomic(ctx, func(repo ports.Repositories) error {
		b, err := repo.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		if err := fn(repo, &b); err != nil {
			return err
		}
		out = b
		return repo.SaveBet(ctx, b)
	})
	return out, err
}

func (s *Service) savePayout(ctx context.Context, repo ports.Repositories, b domain.Bet, side domain.Side, amount domain.Amount, reason domain.PayoutReason, now time.Time) error {
	return repo.SavePayout(ctx, domain.Payout{
		ID:        uuid.New().String(),
		BetID:     b.ID,
		To:        b.PartyOf(side),
		Side:      side,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: now,
	})
}

func (s *Service) publish(ctx context.Context, evs ...domain.Event) {
	if s.events == nil {
		return
	}
	for _, ev := range evs {
		if err := s.events.Publish(ctx, ev); err != nil {
			slog.Warn("event publish failed", "type", ev.Type, "err", err)
		}
	}
}
