package domain

import "time"

// PayoutReason explains why value left custody.
type PayoutReason string

const (
	PayoutRefund   PayoutReason = "REFUND"   // cancellation
	PayoutWinnings PayoutReason = "WINNINGS" // sole winner takes both stakes
	PayoutDraw     PayoutReason = "DRAW"     // each side takes its stake back
	PayoutSlash    PayoutReason = "SLASH"    // judge stake confiscated
	PayoutUnstake  PayoutReason = "UNSTAKE"  // completed judge withdrawal
)

// Payout is one release of value. Every payout is persisted in the same
// atomic unit as the transition that produced it.
type Payout struct {
	ID        string
	BetID     string // empty for judge stake movements
	To        Party
	Side      Side
	Amount    Amount
	Reason    PayoutReason
	CreatedAt time.Time
}
