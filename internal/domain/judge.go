package domain

import (
	"slices"
	"time"
)

// MaxReputation is the reputation ceiling, in basis points.
const MaxReputation = 10000

// JudgeConfig is the registry-wide configuration. It is built once at startup
// and passed by value; nothing mutates it afterwards.
type JudgeConfig struct {
	MinStake               Amount
	MinReputation          int
	InitialReputation      int
	ReputationStep         int
	SlashPercentage        int // percent of the staked amount taken by a default slash
	SlashReputationPenalty int
	LockPeriod             time.Duration
	VerdictTimeout         time.Duration
}

// DefaultJudgeConfig returns the production defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		MinStake:               AmountFromInt(100),
		MinReputation:          3000,
		InitialReputation:      5000,
		ReputationStep:         100,
		SlashPercentage:        10,
		SlashReputationPenalty: 500,
		LockPeriod:             7 * 24 * time.Hour,
		VerdictTimeout:         72 * time.Hour,
	}
}

// Validate rejects configurations that would make eligibility meaningless.
func (c JudgeConfig) Validate() error {
	switch {
	case !c.MinStake.IsPositive():
		return ErrInvalidAmount.WithMsg("min stake must be positive")
	case c.MinReputation < 0 || c.MinReputation > MaxReputation:
		return ErrInvalidTerms.WithMsg("min reputation out of range")
	case c.InitialReputation < 0 || c.InitialReputation > MaxReputation:
		return ErrInvalidTerms.WithMsg("initial reputation out of range")
	case c.ReputationStep < 0 || c.SlashReputationPenalty < 0:
		return ErrInvalidTerms.WithMsg("reputation adjustments must be non-negative")
	case c.SlashPercentage < 0 || c.SlashPercentage > 100:
		return ErrInvalidTerms.WithMsg("slash percentage must be within 0-100")
	case c.LockPeriod <= 0 || c.VerdictTimeout <= 0:
		return ErrInvalidTerms.WithMsg("lock period and verdict timeout must be positive")
	}
	return nil
}

// JudgeProfile is one registered judge. Profiles are never deleted; a fully
// withdrawn judge keeps its counters.
type JudgeProfile struct {
	Address               Party
	StakedAmount          Amount
	ReputationScore       int
	CasesJudged           int
	SuccessfulCases       int
	OpenCases             int
	IsActive              bool
	RegistrationTime      time.Time
	WithdrawalRequestTime time.Time // zero while not withdrawing
	SlashedTotal          Amount
	Conflicts             []Party
}

// NewJudgeProfile returns an unregistered profile at the initial reputation.
func NewJudgeProfile(addr Party, cfg JudgeConfig) JudgeProfile {
	return JudgeProfile{
		Address:         addr,
		StakedAmount:    Zero,
		ReputationScore: cfg.InitialReputation,
		SlashedTotal:    Zero,
	}
}

// Eligible is derived on every read, never stored.
func (p JudgeProfile) Eligible(cfg JudgeConfig) bool {
	return p.IsActive &&
		p.StakedAmount.GreaterThanOrEqual(cfg.MinStake) &&
		p.ReputationScore >= cfg.MinReputation
}

// Withdrawing reports whether a withdrawal was requested and not completed.
func (p JudgeProfile) Withdrawing() bool {
	return !p.WithdrawalRequestTime.IsZero()
}

// HasConflict reports whether the judge declared a conflict with party.
func (p JudgeProfile) HasConflict(party Party) bool {
	return slices.Contains(p.Conflicts, party)
}

// Register activates the profile with stake. A previously withdrawn judge
// may register again and keeps its history.
func (p *JudgeProfile) Register(stake Amount, cfg JudgeConfig, now time.Time) error {
	if p.IsActive {
		return ErrAlreadyRegistered
	}
	if p.Withdrawing() {
		return ErrWithdrawalPending
	}
	if stake.LessThan(cfg.MinStake) {
		return ErrInsufficientStake
	}
	p.StakedAmount = p.StakedAmount.Add(stake)
	p.IsActive = true
	p.RegistrationTime = now
	return nil
}

// IncreaseStake tops up an active judge.
func (p *JudgeProfile) IncreaseStake(amount Amount) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.IsActive {
		return ErrInvalidState.WithMsg("judge is not active")
	}
	p.StakedAmount = p.StakedAmount.Add(amount)
	return nil
}

// RequestWithdrawal starts the lock period. The judge stops being eligible
// immediately; cases it already holds stay assigned.
func (p *JudgeProfile) RequestWithdrawal(now time.Time) error {
	if p.Withdrawing() {
		return ErrWithdrawalPending
	}
	if !p.IsActive {
		return ErrInvalidState.WithMsg("judge is not active")
	}
	p.IsActive = false
	p.WithdrawalRequestTime = now
	return nil
}

// CompleteWithdrawal returns whatever stake survived slashing since the
// request and zeroes it.
func (p *JudgeProfile) CompleteWithdrawal(now time.Time, cfg JudgeConfig) (Amount, error) {
	if !p.Withdrawing() {
		return Zero, ErrInvalidState.WithMsg("no withdrawal requested")
	}
	if now.Before(p.WithdrawalRequestTime.Add(cfg.LockPeriod)) {
		return Zero, ErrWithdrawalLocked
	}
	if p.OpenCases > 0 {
		return Zero, ErrOpenCases
	}
	amt := p.StakedAmount
	p.StakedAmount = Zero
	p.WithdrawalRequestTime = time.Time{}
	return amt, nil
}

// DefaultSlashAmount is SlashPercentage of the current stake.
func (p JudgeProfile) DefaultSlashAmount(cfg JudgeConfig) Amount {
	return p.StakedAmount.Mul(AmountFromInt(int64(cfg.SlashPercentage))).Div(AmountFromInt(100))
}

// Slash removes up to amount from the stake and applies the reputation
// penalty. It returns the amount actually taken.
func (p *JudgeProfile) Slash(amount Amount, cfg JudgeConfig) (Amount, error) {
	if amount.IsNegative() {
		return Zero, ErrInvalidAmount
	}
	taken := amount
	if taken.GreaterThan(p.StakedAmount) {
		taken = p.StakedAmount
	}
	p.StakedAmount = p.StakedAmount.Sub(taken)
	p.SlashedTotal = p.SlashedTotal.Add(taken)
	p.ReputationScore = clampReputation(p.ReputationScore - cfg.SlashReputationPenalty)
	return taken, nil
}

// RecordCase counts a closed case and moves reputation by one step.
func (p *JudgeProfile) RecordCase(successful bool, cfg JudgeConfig) {
	p.CasesJudged++
	if successful {
		p.SuccessfulCases++
		p.ReputationScore = clampReputation(p.ReputationScore + cfg.ReputationStep)
	} else {
		p.ReputationScore = clampReputation(p.ReputationScore - cfg.ReputationStep)
	}
}

// DeclareConflict excludes the judge from cases involving party.
func (p *JudgeProfile) DeclareConflict(party Party) error {
	if party == "" {
		return ErrInvalidTerms.WithMsg("party is required")
	}
	if p.HasConflict(party) {
		return ErrAlreadyDeclared
	}
	p.Conflicts = append(p.Conflicts, party)
	return nil
}

func clampReputation(v int) int {
	return max(0, min(MaxReputation, v))
}
