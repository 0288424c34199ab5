package domain

import (
	"math"
	"strings"
	"time"
)

// DefaultDisputeWindow is how long the non-declaring party has to contest a
// declared outcome.
const DefaultDisputeWindow = 24 * time.Hour

const (
	maxTags      = 10
	maxTagLength = 32
)

// MaxExpiry is the latest expiry a bet may carry; later instants do not fit
// an int64 nanosecond timestamp.
var MaxExpiry = time.Unix(0, math.MaxInt64).UTC()

// Party is a participant identity (a wallet address).
type Party string

// BetState is the lifecycle position of a bet.
type BetState string

const (
	StateCreated            BetState = "CREATED"
	StateActive             BetState = "ACTIVE"
	StateAwaitingResolution BetState = "AWAITING_RESOLUTION"
	StateInDispute          BetState = "IN_DISPUTE"
	StateResolved           BetState = "RESOLVED"
	StateCancelled          BetState = "CANCELLED"
)

// IsTerminal reports whether no further state transition is possible.
func (s BetState) IsTerminal() bool {
	return s == StateResolved || s == StateCancelled
}

// Outcome is a declared or judged result.
type Outcome string

const (
	OutcomePending      Outcome = "PENDING"
	OutcomeCreatorWins  Outcome = "CREATOR_WINS"
	OutcomeOpponentWins Outcome = "OPPONENT_WINS"
	OutcomeDraw         Outcome = "DRAW"
)

// ParseOutcome accepts the three declarable outcomes, case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.Declarable() {
		return OutcomePending, ErrInvalidOutcome
	}
	return o, nil
}

// Declarable reports whether o can be declared or ruled.
func (o Outcome) Declarable() bool {
	return o == OutcomeCreatorWins || o == OutcomeOpponentWins || o == OutcomeDraw
}

// Winner returns the winning side. Meaningless for Draw and Pending.
func (o Outcome) Winner() Side {
	if o == OutcomeOpponentWins {
		return SideOpponent
	}
	return SideCreator
}

// Opponent is either a specific party or pooled liquidity (a house bet).
// The zero value is invalid.
type Opponent struct {
	party Party
	pool  PoolID
}

// SpecificOpponent is a bet against a named party.
func SpecificOpponent(p Party) Opponent { return Opponent{party: p} }

// HouseOpponent is a bet against the liquidity pool id.
func HouseOpponent(id PoolID) Opponent { return Opponent{pool: id} }

// IsHouse reports whether the counterparty is a pool.
func (o Opponent) IsHouse() bool { return o.pool != "" }

// Party returns the specific opponent; empty for house bets.
func (o Opponent) Party() Party { return o.party }

// Pool returns the matched pool; empty for specific opponents.
func (o Opponent) Pool() PoolID { return o.pool }

func (o Opponent) String() string {
	if o.IsHouse() {
		return "pool:" + string(o.pool)
	}
	return string(o.party)
}

// Terms are the immutable inputs to bet creation.
type Terms struct {
	Creator         Party
	Opponent        Opponent
	Stake           Amount
	Description     string
	OutcomeCriteria string
	Tags            []string
	ExpiresAt       time.Time
}

// Category is the pool-category selector of a house bet: its first tag.
func (t Terms) Category() string {
	if len(t.Tags) == 0 {
		return ""
	}
	return t.Tags[0]
}

// Validate checks the creation invariants against the creation time.
func (t Terms) Validate(now time.Time) error {
	switch {
	case t.Creator == "":
		return ErrInvalidTerms.WithMsg("creator is required")
	case t.Opponent.Party() == "" && !t.Opponent.IsHouse():
		return ErrInvalidTerms.WithMsg("opponent is required")
	case t.Opponent.Party() == t.Creator:
		return ErrInvalidTerms.WithMsg("creator cannot bet against itself")
	case !t.Stake.IsPositive():
		return ErrInvalidAmount.WithMsg("stake must be positive")
	case !t.ExpiresAt.After(now):
		return ErrInvalidTerms.WithMsg("expiry must be after creation")
	case t.ExpiresAt.After(MaxExpiry):
		return ErrInvalidTerms.WithMsg("expiry is too far in the future")
	case strings.TrimSpace(t.Description) == "":
		return ErrInvalidTerms.WithMsg("description is required")
	case strings.TrimSpace(t.OutcomeCriteria) == "":
		return ErrInvalidTerms.WithMsg("outcome criteria are required")
	case len(t.Tags) > maxTags:
		return ErrInvalidTerms.WithMsg("too many tags")
	}
	for _, tag := range t.Tags {
		if tag == "" || len(tag) > maxTagLength {
			return ErrInvalidTerms.WithMsg("tags must be 1-32 characters")
		}
	}
	return nil
}

// Bet is one escrow instance. Terms are fixed at creation; only the ledger,
// the state and the declaration fields move afterwards.
type Bet struct {
	ID              string
	Creator         Party
	Opponent        Opponent
	PoolOperator    Party // acts for the pool side of a house bet
	RiskScore       int
	Description     string
	OutcomeCriteria string
	Tags            []string
	CreatedAt       time.Time
	ExpiresAt       time.Time

	Ledger StakeLedger
	State  BetState

	DeclaredOutcome Outcome
	DeclaredBy      Party
	DeclaredAt      time.Time
	DisputeDeadline time.Time
	ResolvedAt      time.Time
}

// NewBet builds a bet in state Created. match must be non-nil exactly when the
// opponent is a pool.
func NewBet(id string, t Terms, match *PoolMatch, now time.Time) (Bet, error) {
	if err := t.Validate(now); err != nil {
		return Bet{}, err
	}
	b := Bet{
		ID:              id,
		Creator:         t.Creator,
		Opponent:        t.Opponent,
		Description:     t.Description,
		OutcomeCriteria: t.OutcomeCriteria,
		Tags:            append([]string(nil), t.Tags...),
		CreatedAt:       now,
		ExpiresAt:       t.ExpiresAt,
		Ledger:          StakeLedger{Stake: t.Stake},
		State:           StateCreated,
		DeclaredOutcome: OutcomePending,
	}
	if t.Opponent.IsHouse() {
		if match == nil || match.PoolID != t.Opponent.Pool() {
			return Bet{}, ErrNoPoolAvailable
		}
		if match.Operator == "" || match.Operator == t.Creator {
			return Bet{}, ErrInvalidTerms.WithMsg("pool operator must be a distinct party")
		}
		b.PoolOperator = match.Operator
		b.RiskScore = match.RiskScore
	}
	return b, nil
}

// IsHouse reports whether the bet is against pooled liquidity.
func (b Bet) IsHouse() bool { return b.Opponent.IsHouse() }

// Parties returns the identities that act for the creator and opponent sides.
func (b Bet) Parties() []Party {
	if b.IsHouse() {
		return []Party{b.Creator, b.PoolOperator}
	}
	return []Party{b.Creator, b.Opponent.Party()}
}

// SideOf maps caller to its side. The pool operator acts for the opponent
// side of a house bet.
func (b Bet) SideOf(caller Party) (Side, bool) {
	switch {
	case caller == "":
		return "", false
	case caller == b.Creator:
		return SideCreator, true
	case !b.IsHouse() && caller == b.Opponent.Party():
		return SideOpponent, true
	case b.IsHouse() && caller == b.PoolOperator:
		return SideOpponent, true
	}
	return "", false
}

// PartyOf returns the identity acting for side.
func (b Bet) PartyOf(side Side) Party {
	if side == SideCreator {
		return b.Creator
	}
	if b.IsHouse() {
		return b.PoolOperator
	}
	return b.Opponent.Party()
}

// Fund records caller's deposit. The transition to Active happens in the
// same call that records the second deposit.
func (b *Bet) Fund(caller Party, now time.Time) error {
	side, ok := b.SideOf(caller)
	if !ok {
		return ErrNotParty
	}
	if b.Ledger.Funded(side) {
		return ErrAlreadyFunded
	}
	if b.State != StateCreated {
		return ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	if !now.Before(b.ExpiresAt) {
		return ErrBetExpired
	}
	if err := b.Ledger.Fund(side); err != nil {
		return err
	}
	if b.Ledger.FullyFunded() {
		b.State = StateActive
	}
	return nil
}

// Refund is a deposit returned by cancellation.
type Refund struct {
	Side   Side
	Amount Amount
}

// Cancel moves a Created bet to Cancelled and refunds every deposit. Only a
// party whose own side is still unfunded may cancel. Expiry does not matter:
// an expired, never-activated bet stays Created until someone cancels it.
func (b *Bet) Cancel(caller Party) ([]Refund, error) {
	side, ok := b.SideOf(caller)
	if !ok {
		return nil, ErrNotParty
	}
	if b.State != StateCreated {
		return nil, ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	if b.Ledger.Funded(side) {
		return nil, ErrInvalidState.WithMsg("own side already funded")
	}
	var refunds []Refund
	for _, s := range []Side{SideCreator, SideOpponent} {
		if !b.Ledger.Funded(s) {
			continue
		}
		amt, err := b.Ledger.Refund(s)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, Refund{Side: s, Amount: amt})
	}
	b.State = StateCancelled
	return refunds, nil
}

// DeclareOutcome records the first declaration after expiry and opens the
// dispute window.
func (b *Bet) DeclareOutcome(caller Party, outcome Outcome, now time.Time, window time.Duration) error {
	side, ok := b.SideOf(caller)
	if !ok {
		return ErrNotParty
	}
	if b.IsHouse() && side == SideOpponent {
		return ErrUnauthorized.WithMsg("the pool side cannot declare outcomes")
	}
	if b.State != StateActive {
		return ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	if now.Before(b.ExpiresAt) {
		return ErrNotExpired
	}
	if !outcome.Declarable() {
		return ErrInvalidOutcome
	}
	b.DeclaredOutcome = outcome
	b.DeclaredBy = caller
	b.DeclaredAt = now
	b.DisputeDeadline = now.Add(window)
	b.State = StateAwaitingResolution
	return nil
}

// RaiseDispute moves the bet to InDispute. Only the non-declaring side may
// contest, and only strictly before the deadline.
func (b *Bet) RaiseDispute(caller Party, now time.Time) error {
	side, ok := b.SideOf(caller)
	if !ok {
		return ErrNotParty
	}
	if b.State != StateAwaitingResolution {
		return ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	if declared, _ := b.SideOf(b.DeclaredBy); declared == side {
		return ErrUnauthorized.WithMsg("the declaring party cannot dispute its own declaration")
	}
	if !now.Before(b.DisputeDeadline) {
		return ErrDisputeWindowClosed
	}
	b.State = StateInDispute
	return nil
}

// FinalizeResolution accepts the declaration once the window has elapsed
// without a dispute.
func (b *Bet) FinalizeResolution(caller Party, now time.Time) error {
	if _, ok := b.SideOf(caller); !ok {
		return ErrNotParty
	}
	if b.State != StateAwaitingResolution {
		return ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	if now.Before(b.DisputeDeadline) {
		return ErrDisputeWindowOpen
	}
	b.State = StateResolved
	b.ResolvedAt = now
	return nil
}

// ApplyVerdict resolves a disputed bet with the judge's outcome, which
// replaces the declaration.
func (b *Bet) ApplyVerdict(outcome Outcome, now time.Time) error {
	if b.State != StateInDispute {
		return ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	if !outcome.Declarable() {
		return ErrInvalidOutcome
	}
	b.DeclaredOutcome = outcome
	b.State = StateResolved
	b.ResolvedAt = now
	return nil
}

// ClaimWinnings releases caller's share of a resolved bet.
func (b *Bet) ClaimWinnings(caller Party) (Side, Amount, error) {
	side, ok := b.SideOf(caller)
	if !ok {
		return "", Zero, ErrNotParty
	}
	if b.State != StateResolved {
		return "", Zero, ErrInvalidState.WithMsg("bet is " + string(b.State))
	}
	amt, err := b.Ledger.release(side, b.DeclaredOutcome)
	if err != nil {
		return "", Zero, err
	}
	return side, amt, nil
}

// IsFinalizable reports whether FinalizeResolution would succeed at now. It
// is the lazy timeout check an external keeper polls.
func IsFinalizable(b Bet, now time.Time) bool {
	return b.State == StateAwaitingResolution && !now.Before(b.DisputeDeadline)
}
