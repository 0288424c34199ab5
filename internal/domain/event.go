package domain

import "time"

// EventType names a committed transition.
type EventType string

const (
	EventBetCreated         EventType = "bet.created"
	EventBetFunded          EventType = "bet.funded"
	EventBetActivated       EventType = "bet.activated"
	EventBetCancelled       EventType = "bet.cancelled"
	EventOutcomeDeclared    EventType = "bet.outcome_declared"
	EventDisputeRaised      EventType = "bet.dispute_raised"
	EventBetResolved        EventType = "bet.resolved"
	EventWinningsClaimed    EventType = "bet.winnings_claimed"
	EventJudgeRegistered    EventType = "judge.registered"
	EventJudgeStakeIncrease EventType = "judge.stake_increased"
	EventJudgeWithdrawing   EventType = "judge.withdrawal_requested"
	EventJudgeWithdrawn     EventType = "judge.withdrawn"
	EventJudgeAssigned      EventType = "judge.assigned"
	EventJudgeSlashed       EventType = "judge.slashed"
	EventVerdictSubmitted   EventType = "judge.verdict_submitted"
)

// Event is published after the transition it describes has committed.
type Event struct {
	Type    EventType
	BetID   string
	Actor   Party
	Judge   Party
	State   BetState
	Outcome Outcome
	Amount  Amount
	At      time.Time
}
