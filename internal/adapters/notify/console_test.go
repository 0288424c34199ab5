package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/wagerbook/internal/adapters/notify"
	"github.com/alejandrodnm/wagerbook/internal/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func makeBet(id string, state domain.BetState) domain.Bet {
	return domain.Bet{
		ID:              id,
		Creator:         "0xalice",
		Opponent:        domain.SpecificOpponent("0xbob"),
		ExpiresAt:       now.Add(time.Hour),
		Ledger:          domain.StakeLedger{Stake: domain.MustAmount("100"), CreatorFunded: true},
		State:           state,
		DeclaredOutcome: domain.OutcomePending,
	}
}

func TestConsole_Publish(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	err := c.Publish(context.Background(), domain.Event{
		Type:    domain.EventOutcomeDeclared,
		BetID:   "0123456789abcdef",
		Actor:   "0xalice",
		State:   domain.StateAwaitingResolution,
		Outcome: domain.OutcomeCreatorWins,
		At:      now,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "bet.outcome_declared")
	assert.Contains(t, out, "bet=01234567")
	assert.Contains(t, out, "by=0xalice")
	assert.Contains(t, out, "outcome=CREATOR_WINS")
	assert.NotContains(t, out, "amount=")
}

func TestConsole_PrintBets(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	awaiting := makeBet("bet-2", domain.StateAwaitingResolution)
	awaiting.Ledger.OpponentFunded = true
	awaiting.DeclaredOutcome = domain.OutcomeDraw
	awaiting.DisputeDeadline = now.Add(-time.Minute)

	c.PrintBets([]domain.Bet{makeBet("bet-1", domain.StateCreated), awaiting}, now)

	out := buf.String()
	assert.Contains(t, out, "bet-1")
	assert.Contains(t, out, "Y/-")
	assert.Contains(t, out, "finalizable")
	assert.Contains(t, out, "escrowed 300.00")
	assert.Contains(t, out, "CREATED:1")
	assert.Contains(t, out, "AWAITING_RESOLUTION:1")
}

func TestConsole_PrintBets_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf).PrintBets(nil, now)
	assert.Contains(t, buf.String(), "no bets found")
}

func TestConsole_PrintJudges(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)
	cfg := domain.DefaultJudgeConfig()

	c.PrintJudges([]domain.JudgeProfile{
		{Address: "0xjudge1", StakedAmount: domain.MustAmount("150"), ReputationScore: 5000, IsActive: true,
			CasesJudged: 4, SuccessfulCases: 3, SlashedTotal: domain.Zero},
		{Address: "0xjudge2", StakedAmount: domain.MustAmount("150"), ReputationScore: 5000, IsActive: false,
			WithdrawalRequestTime: now, SlashedTotal: domain.Zero},
	}, cfg)

	out := buf.String()
	assert.Contains(t, out, "ELIGIBLE")
	assert.Contains(t, out, "WITHDRAWING")
	assert.Contains(t, out, "75%")
	assert.Contains(t, out, "2 judges | 1 eligible")
}
