// Package judges manages judge stake, reputation, eligibility and timed
// withdrawal.
package judges

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

// Registry is the judge registry. Public methods run in their own atomic
// unit; the methods taking ports.Repositories run inside a caller's unit so
// the arbiter can combine them with bet and dispute writes.
type Registry struct {
	store  ports.Store
	clock  ports.Clock
	events ports.EventSink
	cfg    domain.JudgeConfig
}

// New validates cfg and builds a registry. events may be nil.
func New(store ports.Store, clock ports.Clock, cfg domain.JudgeConfig, events ports.EventSink) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "judges.New")
	}
	return &Registry{store: store, clock: clock, events: events, cfg: cfg}, nil
}

// Config returns the immutable registry configuration.
func (r *Registry) Config() domain.JudgeConfig {
	return r.cfg
}

// RegisterJudge stakes addr into the registry.
func (r *Registry) RegisterJudge(ctx context.Context, addr domain.Party, stake domain.Amount) (domain.JudgeProfile, error) {
	if addr == "" {
		return domain.JudgeProfile{}, domain.ErrInvalidTerms.WithMsg("judge address is required")
	}
	now := r.clock.Now()
	var out domain.JudgeProfile
	err := r.store.Atomic(ctx, func(repo ports.Repositories) error {
		p, err := repo.GetJudge(ctx, addr)
		if errors.Is(err, domain.ErrJudgeNotFound) {
			p = domain.NewJudgeProfile(addr, r.cfg)
		} else if err != nil {
			return err
		}
		if err := p.Register(stake, r.cfg, now); err != nil {
			return err
		}
		out = p
		return repo.SaveJudge(ctx, p)
	})
	if err != nil {
		return domain.JudgeProfile{}, errors.Wrapf(err, "judges.RegisterJudge %s", addr)
	}

	slog.Info("judge registered", "judge", addr, "stake", out.StakedAmount.String(), "reputation", out.ReputationScore)
	r.publish(ctx, domain.Event{Type: domain.EventJudgeRegistered, Judge: addr, Amount: stake, At: now})
	return out, nil
}

// IncreaseStake tops up an active judge.
func (r *Registry) IncreaseStake(ctx context.Context, addr domain.Party, amount domain.Amount) (domain.JudgeProfile, error) {
	now := r.clock.Now()
	out, err := r.mutate(ctx, addr, func(p *domain.JudgeProfile) error {
		return p.IncreaseStake(amount)
	})
	if err != nil {
		return domain.JudgeProfile{}, errors.Wrapf(err, "judges.IncreaseStake %s", addr)
	}
	slog.Info("judge stake increased", "judge", addr, "stake", out.StakedAmount.String())
	r.publish(ctx, domain.Event{Type: domain.EventJudgeStakeIncrease, Judge: addr, Amount: amount, At: now})
	return out, nil
}

// RequestWithdrawal starts the lock period and removes the judge from the
// eligible set.
func (r *Registry) RequestWithdrawal(ctx context.Context, addr domain.Party) (domain.JudgeProfile, error) {
	now := r.clock.Now()
	out, err := r.mutate(ctx, addr, func(p *domain.JudgeProfile) error {
		return p.RequestWithdrawal(now)
	})
	if err != nil {
		return domain.JudgeProfile{}, errors.Wrapf(err, "judges.RequestWithdrawal %s", addr)
	}
	slog.Info("judge withdrawal requested", "judge", addr,
		"unlocks_at", now.Add(r.cfg.LockPeriod), "open_cases", out.OpenCases)
	r.publish(ctx, domain.Event{Type: domain.EventJudgeWithdrawing, Judge: addr, At: now})
	return out, nil
}

// CompleteWithdrawal releases the remaining stake once the lock period has
// elapsed and the judge holds no open case.
func (r *Registry) CompleteWithdrawal(ctx context.Context, addr domain.Party) (domain.Amount, error) {
	now := r.clock.Now()
	var released domain.Amount
	err := r.store.Atomic(ctx, func(repo ports.Repositories) error {
		p, err := repo.GetJudge(ctx, addr)
		if err != nil {
			return err
		}
		if released, err = p.CompleteWithdrawal(now, r.cfg); err != nil {
			return err
		}
		if err := repo.SaveJudge(ctx, p); err != nil {
			return err
		}
		return repo.SavePayout(ctx, domain.Payout{
			ID:        uuid.New().String(),
			To:        addr,
			Amount:    released,
			Reason:    domain.PayoutUnstake,
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Zero, errors.Wrapf(err, "judges.CompleteWithdrawal %s", addr)
	}
	slog.Info("judge withdrawn", "judge", addr, "released", released.String())
	r.publish(ctx, domain.Event{Type: domain.EventJudgeWithdrawn, Judge: addr, Amount: released, At: now})
	return released, nil
}

// DeclareConflict records that addr must not judge bets involving party.
func (r *Registry) DeclareConflict(ctx context.Context, addr, party domain.Party) (domain.JudgeProfile, error) {
	out, err := r.mutate(ctx, addr, func(p *domain.JudgeProfile) error {
		return p.DeclareConflict(party)
	})
	if err != nil {
		return domain.JudgeProfile{}, errors.Wrapf(err, "judges.DeclareConflict %s", addr)
	}
	return out, nil
}

// GetProfile returns the stored profile.
func (r *Registry) GetProfile(ctx context.Context, addr domain.Party) (domain.JudgeProfile, error) {
	var out domain.JudgeProfile
	err := r.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		out, err = repo.GetJudge(ctx, addr)
		return err
	})
	if err != nil {
		return domain.JudgeProfile{}, errors.Wrapf(err, "judges.GetProfile %s", addr)
	}
	return out, nil
}

// IsEligible recomputes eligibility from the stored profile. An unknown
// judge is simply not eligible.
func (r *Registry) IsEligible(ctx context.Context, addr domain.Party) (bool, error) {
	p, err := r.GetProfile(ctx, addr)
	if errors.Is(err, domain.ErrJudgeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Eligible(r.cfg), nil
}

// ListJudges returns every profile, eligible or not.
func (r *Registry) ListJudges(ctx context.Context) ([]domain.JudgeProfile, error) {
	var out []domain.JudgeProfile
	err := r.store.Atomic(ctx, func(repo ports.Repositories) error {
		var err error
		out, err = repo.ListJudges(ctx)
		return err
	})
	return out, errors.Wrap(err, "judges.ListJudges")
}

// --- in-unit operations, called by the dispute arbiter ---

// Candidates returns the currently eligible judges that are neither a bet
// party nor in excluded, and have declared no conflict with a party.
func (r *Registry) Candidates(ctx context.Context, repo ports.Repositories, parties, excluded []domain.Party) ([]domain.JudgeProfile, error) {
	all, err := repo.ListJudges(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.JudgeProfile
	for _, p := range all {
		if !p.Eligible(r.cfg) || slices.Contains(parties, p.Address) || slices.Contains(excluded, p.Address) {
			continue
		}
		if slices.ContainsFunc(parties, p.HasConflict) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// AssignCase gives addr one more open case. The judge must be eligible at
// assignment time.
func (r *Registry) AssignCase(ctx context.Context, repo ports.Repositories, addr domain.Party) error {
	p, err := repo.GetJudge(ctx, addr)
	if err != nil {
		return err
	}
	if !p.Eligible(r.cfg) {
		return domain.ErrNoEligibleJudge.WithMsg("judge " + string(addr) + " is not eligible")
	}
	p.OpenCases++
	return repo.SaveJudge(ctx, p)
}

// RecordCase closes one of addr's open cases and adjusts reputation. It does
// not require eligibility: a judge that asked to withdraw still closes the
// cases it holds.
func (r *Registry) RecordCase(ctx context.Context, repo ports.Repositories, addr domain.Party, successful bool) (domain.JudgeProfile, error) {
	p, err := repo.GetJudge(ctx, addr)
	if err != nil {
		return domain.JudgeProfile{}, err
	}
	if p.OpenCases > 0 {
		p.OpenCases--
	}
	p.RecordCase(successful, r.cfg)
	return p, repo.SaveJudge(ctx, p)
}

// Slash takes amount from addr's stake, or SlashPercentage of it when amount
// is zero, and journals the confiscation.
func (r *Registry) Slash(ctx context.Context, repo ports.Repositories, addr domain.Party, amount domain.Amount, now time.Time) (domain.Amount, error) {
	p, err := repo.GetJudge(ctx, addr)
	if err != nil {
		return domain.Zero, err
	}
	if amount.IsZero() {
		amount = p.DefaultSlashAmount(r.cfg)
	}
	taken, err := p.Slash(amount, r.cfg)
	if err != nil {
		return domain.Zero, err
	}
	if err := repo.SaveJudge(ctx, p); err != nil {
		return domain.Zero, err
	}
	err = repo.SavePayout(ctx, domain.Payout{
		ID:        uuid.New().String(),
		To:        addr,
		Amount:    taken,
		Reason:    domain.PayoutSlash,
		CreatedAt: now,
	})
	return taken, err
}

// --- helpers internos ---

func (r *Registry) mutate(ctx context.Context, addr domain.Party, fn func(p *domain.JudgeProfile) error) (domain.JudgeProfile, error) {
	var out domain.JudgeProfile
	err := r.store.Atomic(ctx, func(repo ports.Repositories) error {
		p, err := repo.GetJudge(ctx, addr)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		out = p
		return repo.SaveJudge(ctx, p)
	})
	return out, err
}

func (r *Registry) publish(ctx context.Context, ev domain.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, ev); err != nil {
		slog.Warn("event publish failed", "type", ev.Type, "err", err)
	}
}
