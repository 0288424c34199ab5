package domain

import "time"

// DisputeStatus is the lifecycle of a dispute record.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeResolved DisputeStatus = "RESOLVED"
)

const maxReasonLength = 2000

// Dispute holds everything about a contested bet that does not belong in the
// escrow itself: the reason, the assigned judge and the verdict. There is at
// most one dispute per bet and its verdict is final.
type Dispute struct {
	ID              string
	BetID           string
	RaisedBy        Party
	Reason          string
	OriginalOutcome Outcome
	Judge           Party
	PreviousJudges  []Party // judges removed for missing the verdict timeout
	RaisedAt        time.Time
	AssignedAt      time.Time
	Status          DisputeStatus
	Verdict         Outcome
	ResolvedAt      time.Time
}

// ValidateReason checks the free-text reason attached to a dispute.
func ValidateReason(reason string) error {
	if reason == "" {
		return ErrInvalidTerms.WithMsg("dispute reason is required")
	}
	if len(reason) > maxReasonLength {
		return ErrInvalidTerms.WithMsg("dispute reason too long")
	}
	return nil
}

// Stale reports whether the assigned judge let the verdict timeout pass.
func (d Dispute) Stale(now time.Time, timeout time.Duration) bool {
	return d.Status == DisputeOpen && !now.Before(d.AssignedAt.Add(timeout))
}

// Overturned reports whether the verdict differs from the declaration.
func (d Dispute) Overturned() bool {
	return d.Status == DisputeResolved && d.Verdict != d.OriginalOutcome
}
