package domain

// Side identifies one half of a bet.
type Side string

const (
	SideCreator  Side = "CREATOR"
	SideOpponent Side = "OPPONENT"
)

// StakeLedger tracks custody for one bet. Both sides deposit exactly Stake,
// so the escrowed total is always 0, Stake or 2×Stake while nothing has been
// paid out. It is owned by its Bet and only mutated through Bet methods, which
// keeps every deposit and payout in the same unit as the state transition.
type StakeLedger struct {
	Stake          Amount
	CreatorFunded  bool
	OpponentFunded bool
	CreatorPaid    bool // creator received its payout or refund
	OpponentPaid   bool
}

// Funded reports whether side has deposited.
func (l StakeLedger) Funded(side Side) bool {
	if side == SideCreator {
		return l.CreatorFunded
	}
	return l.OpponentFunded
}

// FullyFunded reports whether both sides have deposited.
func (l StakeLedger) FullyFunded() bool {
	return l.CreatorFunded && l.OpponentFunded
}

// Fund records side's deposit. Funding is false→true exactly once.
func (l *StakeLedger) Fund(side Side) error {
	if l.Funded(side) {
		return ErrAlreadyFunded
	}
	if side == SideCreator {
		l.CreatorFunded = true
	} else {
		l.OpponentFunded = true
	}
	return nil
}

// Refund returns side's deposit. Used only by cancellation.
func (l *StakeLedger) Refund(side Side) (Amount, error) {
	if !l.Funded(side) || l.paid(side) {
		return Zero, ErrNothingToRefund
	}
	l.markPaid(side)
	return l.Stake, nil
}

// TotalEscrowed is the value currently held in custody.
func (l StakeLedger) TotalEscrowed() Amount {
	total := Zero
	for _, side := range []Side{SideCreator, SideOpponent} {
		if l.Funded(side) && !l.paid(side) {
			total = total.Add(l.Stake)
		}
	}
	return total
}

// release pays out the share owed to side on outcome. A sole winner takes
// both deposits; on a draw each side takes its own stake back.
func (l *StakeLedger) release(side Side, outcome Outcome) (Amount, error) {
	if outcome != OutcomeDraw && outcome.Winner() != side {
		return Zero, ErrNotWinner
	}
	if l.paid(side) {
		return Zero, ErrAlreadyClaimed
	}
	if outcome == OutcomeDraw {
		l.markPaid(side)
		return l.Stake, nil
	}
	l.CreatorPaid = true
	l.OpponentPaid = true
	return l.Stake.Mul(AmountFromInt(2)), nil
}

func (l StakeLedger) paid(side Side) bool {
	if side == SideCreator {
		return l.CreatorPaid
	}
	return l.OpponentPaid
}

func (l *StakeLedger) markPaid(side Side) {
	if side == SideCreator {
		l.CreatorPaid = true
	} else {
		l.OpponentPaid = true
	}
}
