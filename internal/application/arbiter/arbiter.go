// Package arbiter assigns judges to disputed bets and applies their verdicts.
//
// A verdict is final: there is no appeal inside the protocol. This bounds the
// time to resolution at the cost of trusting one judge per case; a judge that
// misses the verdict timeout is slashed and replaced, and operators can slash
// for misconduct discovered off-protocol, but neither reopens a verdict.
package arbiter

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/alejandrodnm/wagerbook/internal/application/judges"
	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

// Config holds the arbiter settings.
type Config struct {
	Seed   uint64         // base seed for judge selection
	Admins []domain.Party // identities allowed to report misconduct
}

// Arbiter is the dispute arbiter.
type Arbiter struct {
	store    ports.Store
	clock    ports.Clock
	registry *judges.Registry
	selector ports.JudgeSelector
	events   ports.EventSink
	cfg      Config
}

// New builds an arbiter. events may be nil; a nil selector means
// ReputationWeighted.
func New(store ports.Store, clock ports.Clock, registry *judges.Registry, selector ports.JudgeSelector, events ports.EventSink, cfg Config) *Arbiter {
	if selector == nil {
		selector = ReputationWeighted{}
	}
	return &Arbiter{
		store:    store,
		clock:    clock,
		registry: registry,
		selector: selector,
		events:   events,
		cfg:      cfg,
	}
}

// OpenDispute creates the dispute record for bet, which the caller has
// already moved to InDispute, and assigns a judge. It runs inside the
// caller's unit: if no eligible judge exists the whole unit fails and the
// bet stays AwaitingResolution.
func (a *Arbiter) OpenDispute(ctx context.Context, repo ports.Repositories, bet domain.Bet, caller domain.Party, reason string, now time.Time) (domain.Dispute, error) {
	if err := domain.ValidateReason(reason); err != nil {
		return domain.Dispute{}, err
	}
	if _, err := repo.GetDispute(ctx, bet.ID); err == nil {
		return domain.Dispute{}, domain.ErrInvalidState.WithMsg("bet already disputed")
	} else if !errors.Is(err, domain.ErrDisputeNotFound) {
		return domain.Dispute{}, err
	}

	d := domain.Dispute{
		ID:              uuid.New().String(),
		BetID:           bet.ID,
		RaisedBy:        caller,
		Reason:          reason,
		OriginalOutcome: bet.DeclaredOutcome,
		RaisedAt:        now,
		Status:          domain.DisputeOpen,
		Verdict:         domain.OutcomePending,
	}
	if err := a.assign(ctx, repo, &d, bet, now); err != nil {
		return domain.Dispute{}, err
	}
	if err := repo.SaveDispute(ctx, d); err != nil {
		return domain.Dispute{}, err
	}
	return d, nil
}

// SubmitVerdict applies judge's ruling. The bet, the dispute and the judge's
// record are written in one unit.
func (a *Arbiter) SubmitVerdict(ctx context.Context, betID string, judge domain.Party, outcome domain.Outcome) (domain.Bet, error) {
	if !outcome.Declarable() {
		return domain.Bet{}, domain.ErrInvalidOutcome
	}
	now := a.clock.Now()
	var (
		bet domain.Bet
		d   domain.Dispute
	)
	err := a.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		if d, err = repo.GetDispute(ctx, betID); err != nil {
			return err
		}
		if d.Status != domain.DisputeOpen {
			return domain.ErrInvalidState.WithMsg("dispute already resolved")
		}
		if d.Judge != judge {
			return domain.ErrNotAssignedJudge
		}
		if bet, err = repo.GetBet(ctx, betID); err != nil {
			return err
		}
		if err := bet.ApplyVerdict(outcome, now); err != nil {
			return err
		}
		d.Status = domain.DisputeResolved
		d.Verdict = outcome
		d.ResolvedAt = now
		if _, err := a.registry.RecordCase(ctx, repo, judge, true); err != nil {
			return err
		}
		if err := repo.SaveDispute(ctx, d); err != nil {
			return err
		}
		return repo.SaveBet(ctx, bet)
	})
	if err != nil {
		return domain.Bet{}, errors.Wrapf(err, "arbiter.SubmitVerdict %s", betID)
	}

	slog.Info("verdict submitted", "bet", betID, "judge", judge, "outcome", outcome,
		"declared", d.OriginalOutcome, "overturned", d.Overturned())
	a.publish(ctx,
		domain.Event{Type: domain.EventVerdictSubmitted, BetID: betID, Judge: judge, Outcome: outcome, At: now},
		domain.Event{Type: domain.EventBetResolved, BetID: betID, State: bet.State, Outcome: outcome, At: now},
	)
	return bet, nil
}

// ReassignJudge replaces a judge that let the verdict timeout pass. The
// absent judge is slashed and charged an unsuccessful case in the same unit
// that assigns its replacement. Either bet party may call it.
func (a *Arbiter) ReassignJudge(ctx context.Context, betID string, caller domain.Party) (domain.Dispute, error) {
	now := a.clock.Now()
	timeout := a.registry.Config().VerdictTimeout
	var (
		d       domain.Dispute
		old     domain.Party
		slashed domain.Amount
	)
	err := a.store.Atomic(ctx, func(repo ports.Repositories) error {
		bet, err := repo.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		if _, ok := bet.SideOf(caller); !ok {
			return domain.ErrNotParty
		}
		if bet.State != domain.StateInDispute {
			return domain.ErrInvalidState.WithMsg("bet is " + string(bet.State))
		}
		if d, err = repo.GetDispute(ctx, betID); err != nil {
			return err
		}
		if !d.Stale(now, timeout) {
			return domain.ErrJudgeNotStale
		}
		old = d.Judge
		if slashed, err = a.registry.Slash(ctx, repo, old, domain.Zero, now); err != nil {
			return err
		}
		if _, err := a.registry.RecordCase(ctx, repo, old, false); err != nil {
			return err
		}
		d.PreviousJudges = append(d.PreviousJudges, old)
		if err := a.assign(ctx, repo, &d, bet, now); err != nil {
			return err
		}
		return repo.SaveDispute(ctx, d)
	})
	if err != nil {
		return domain.Dispute{}, errors.Wrapf(err, "arbiter.ReassignJudge %s", betID)
	}

	slog.Warn("judge replaced after verdict timeout", "bet", betID, "old_judge", old,
		"new_judge", d.Judge, "slashed", slashed.String())
	a.publish(ctx,
		domain.Event{Type: domain.EventJudgeSlashed, BetID: betID, Judge: old, Amount: slashed, At: now},
		domain.Event{Type: domain.EventJudgeAssigned, BetID: betID, Judge: d.Judge, At: now},
	)
	return d, nil
}

// ReportMisconduct slashes judge by amount, or by the configured percentage
// when amount is zero. Only configured admins may call it.
func (a *Arbiter) ReportMisconduct(ctx context.Context, caller, judge domain.Party, amount domain.Amount) (domain.Amount, error) {
	if !slices.Contains(a.cfg.Admins, caller) {
		return domain.Zero, domain.ErrUnauthorized.WithMsg("misconduct reports are restricted to arbiter admins")
	}
	if amount.IsNegative() {
		return domain.Zero, domain.ErrInvalidAmount
	}
	now := a.clock.Now()
	var taken domain.Amount
	err := a.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		taken, err = a.registry.Slash(ctx, repo, judge, amount, now)
		return err
	})
	if err != nil {
		return domain.Zero, errors.Wrapf(err, "arbiter.ReportMisconduct %s", judge)
	}
	slog.Warn("judge slashed for misconduct", "judge", judge, "by", caller, "amount", taken.String())
	a.publish(ctx, domain.Event{Type: domain.EventJudgeSlashed, Actor: caller, Judge: judge, Amount: taken, At: now})
	return taken, nil
}

// GetDispute returns the dispute record of betID.
func (a *Arbiter) GetDispute(ctx context.Context, betID string) (domain.Dispute, error) {
	var d domain.Dispute
	err := a.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		d, err = repo.GetDispute(ctx, betID)
		return err
	})
	if err != nil {
		return domain.Dispute{}, errors.Wrapf(err, "arbiter.GetDispute %s", betID)
	}
	return d, nil
}

// assign picks and books a judge for d. Bet parties, previous judges and
// conflicted judges never reach the selector.
func (a *Arbiter) assign(ctx context.Context, repo ports.Repositories, d *domain.Dispute, bet domain.Bet, now time.Time) error {
	candidates, err := a.registry.Candidates(ctx, repo, bet.Parties(), d.PreviousJudges)
	if err != nil {
		return err
	}
	judge, err := a.selector.Select(candidates, caseSeed(a.cfg.Seed, bet.ID, len(d.PreviousJudges)))
	if err != nil {
		return err
	}
	if err := a.registry.AssignCase(ctx, repo, judge); err != nil {
		return err
	}
	d.Judge = judge
	d.AssignedAt = now
	return nil
}

func (a *Arbiter) publish(ctx context.Context, evs ...domain.Event) {
	if a.events == nil {
		return
	}
	for _, ev := range evs {
		if err := a.events.Publish(ctx, ev); err != nil {
			slog.Warn("event publish failed", "type", ev.Type, "err", err)
		}
	}
}
