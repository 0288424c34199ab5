package httpapi

import (
	"time"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// --- requests ---

type createBetRequest struct {
	Opponent        string    `json:"opponent" validate:"required_without=House,excluded_with=House"`
	House           bool      `json:"house"`
	Stake           string    `json:"stake" validate:"required,numeric"`
	Description     string    `json:"description" validate:"required,max=1000"`
	OutcomeCriteria string    `json:"outcome_criteria" validate:"required,max=1000"`
	Tags            []string  `json:"tags" validate:"max=10,dive,min=1,max=32"`
	ExpiresAt       time.Time `json:"expires_at" validate:"required"`
}

type outcomeRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

type disputeRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type amountRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type optionalAmountRequest struct {
	Amount string `json:"amount" validate:"omitempty,numeric"`
}

type conflictRequest struct {
	Party string `json:"party" validate:"required"`
}

// --- responses ---

type betResponse struct {
	ID              string    `json:"id"`
	Creator         string    `json:"creator"`
	Opponent        string    `json:"opponent,omitempty"`
	Pool            string    `json:"pool,omitempty"`
	PoolOperator    string    `json:"pool_operator,omitempty"`
	RiskScore       int       `json:"risk_score,omitempty"`
	Stake           string    `json:"stake"`
	Description     string    `json:"description"`
	OutcomeCriteria string    `json:"outcome_criteria"`
	Tags            []string  `json:"tags,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatorFunded   bool      `json:"creator_funded"`
	OpponentFunded  bool      `json:"opponent_funded"`
	Escrowed        string    `json:"escrowed"`
	State           string    `json:"state"`
	DeclaredOutcome string    `json:"declared_outcome"`
	DeclaredBy      string    `json:"declared_by,omitempty"`
	DeclaredAt      time.Time `json:"declared_at,omitzero"`
	DisputeDeadline time.Time `json:"dispute_deadline,omitzero"`
	ResolvedAt      time.Time `json:"resolved_at,omitzero"`
}

func toBetResponse(b domain.Bet) betResponse {
	return betResponse{
		ID:              b.ID,
		Creator:         string(b.Creator),
		Opponent:        string(b.Opponent.Party()),
		Pool:            string(b.Opponent.Pool()),
		PoolOperator:    string(b.PoolOperator),
		RiskScore:       b.RiskScore,
		Stake:           b.Ledger.Stake.String(),
		Description:     b.Description,
		OutcomeCriteria: b.OutcomeCriteria,
		Tags:            b.Tags,
		CreatedAt:       b.CreatedAt,
		ExpiresAt:       b.ExpiresAt,
		CreatorFunded:   b.Ledger.CreatorFunded,
		OpponentFunded:  b.Ledger.OpponentFunded,
		Escrowed:        b.Ledger.TotalEscrowed().String(),
		State:           string(b.State),
		DeclaredOutcome: string(b.DeclaredOutcome),
		DeclaredBy:      string(b.DeclaredBy),
		DeclaredAt:      b.DeclaredAt,
		DisputeDeadline: b.DisputeDeadline,
		ResolvedAt:      b.ResolvedAt,
	}
}

func toBetResponses(bets []domain.Bet) []betResponse {
	out := make([]betResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, toBetResponse(b))
	}
	return out
}

type disputeResponse struct {
	ID              string    `json:"id"`
	BetID           string    `json:"bet_id"`
	RaisedBy        string    `json:"raised_by"`
	Reason          string    `json:"reason"`
	OriginalOutcome string    `json:"original_outcome"`
	Judge           string    `json:"judge"`
	PreviousJudges  []string  `json:"previous_judges,omitempty"`
	RaisedAt        time.Time `json:"raised_at"`
	AssignedAt      time.Time `json:"assigned_at"`
	Status          string    `json:"status"`
	Verdict         string    `json:"verdict"`
	ResolvedAt      time.Time `json:"resolved_at,omitzero"`
}

func toDisputeResponse(d domain.Dispute) disputeResponse {
	prev := make([]string, 0, len(d.PreviousJudges))
	for _, p := range d.PreviousJudges {
		prev = append(prev, string(p))
	}
	return disputeResponse{
		ID:              d.ID,
		BetID:           d.BetID,
		RaisedBy:        string(d.RaisedBy),
		Reason:          d.Reason,
		OriginalOutcome: string(d.OriginalOutcome),
		Judge:           string(d.Judge),
		PreviousJudges:  prev,
		RaisedAt:        d.RaisedAt,
		AssignedAt:      d.AssignedAt,
		Status:          string(d.Status),
		Verdict:         string(d.Verdict),
		ResolvedAt:      d.ResolvedAt,
	}
}

type judgeResponse struct {
	Address               string    `json:"address"`
	StakedAmount          string    `json:"staked_amount"`
	ReputationScore       int       `json:"reputation_score"`
	CasesJudged           int       `json:"cases_judged"`
	SuccessfulCases       int       `json:"successful_cases"`
	OpenCases             int       `json:"open_cases"`
	IsActive              bool      `json:"is_active"`
	RegistrationTime      time.Time `json:"registration_time,omitzero"`
	WithdrawalRequestTime time.Time `json:"withdrawal_request_time,omitzero"`
	SlashedTotal          string    `json:"slashed_total"`
	Conflicts             []string  `json:"conflicts,omitempty"`
}

func toJudgeResponse(p domain.JudgeProfile) judgeResponse {
	conflicts := make([]string, 0, len(p.Conflicts))
	for _, c := range p.Conflicts {
		conflicts = append(conflicts, string(c))
	}
	return judgeResponse{
		Address:               string(p.Address),
		StakedAmount:          p.StakedAmount.String(),
		ReputationScore:       p.ReputationScore,
		CasesJudged:           p.CasesJudged,
		SuccessfulCases:       p.SuccessfulCases,
		OpenCases:             p.OpenCases,
		IsActive:              p.IsActive,
		RegistrationTime:      p.RegistrationTime,
		WithdrawalRequestTime: p.WithdrawalRequestTime,
		SlashedTotal:          p.SlashedTotal.String(),
		Conflicts:             conflicts,
	}
}

type judgeConfigResponse struct {
	MinStake               string `json:"min_stake"`
	MinReputation          int    `json:"min_reputation"`
	InitialReputation      int    `json:"initial_reputation"`
	ReputationStep         int    `json:"reputation_step"`
	SlashPercentage        int    `json:"slash_percentage"`
	SlashReputationPenalty int    `json:"slash_reputation_penalty"`
	LockPeriod             string `json:"lock_period"`
	VerdictTimeout         string `json:"verdict_timeout"`
}

func toJudgeConfigResponse(c domain.JudgeConfig) judgeConfigResponse {
	return judgeConfigResponse{
		MinStake:               c.MinStake.String(),
		MinReputation:          c.MinReputation,
		InitialReputation:      c.InitialReputation,
		ReputationStep:         c.ReputationStep,
		SlashPercentage:        c.SlashPercentage,
		SlashReputationPenalty: c.SlashReputationPenalty,
		LockPeriod:             c.LockPeriod.String(),
		VerdictTimeout:         c.VerdictTimeout.String(),
	}
}

type payoutResponse struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Side      string    `json:"side,omitempty"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}
