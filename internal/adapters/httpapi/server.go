// Package httpapi exposes the escrow, the judge registry and the arbiter over
// JSON/HTTP. The caller identity is taken from the X-Caller-Address header;
// authenticating it is the job of whatever sits in front of this server.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/alejandrodnm/wagerbook/internal/application/escrow"
	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// CallerHeader carries the identity every mutating request acts as.
const CallerHeader = "X-Caller-Address"

// Escrow is the part of the escrow service the API serves.
type Escrow interface {
	CreateBet(ctx context.Context, req escrow.CreateBetRequest) (domain.Bet, error)
	Fund(ctx context.Context, betID string, caller domain.Party) (domain.Bet, error)
	Cancel(ctx context.Context, betID string, caller domain.Party) (domain.Bet, error)
	DeclareOutcome(ctx context.Context, betID string, caller domain.Party, outcome domain.Outcome) (domain.Bet, error)
	RaiseDispute(ctx context.Context, betID string, caller domain.Party, reason string) (domain.Bet, domain.Dispute, error)
	FinalizeResolution(ctx context.Context, betID string, caller domain.Party) (domain.Bet, error)
	ClaimWinnings(ctx context.Context, betID string, caller domain.Party) (domain.Amount, error)
	GetDetails(ctx context.Context, betID string) (domain.Bet, error)
	ListBets(ctx context.Context, party domain.Party) ([]domain.Bet, error)
	Finalizable(ctx context.Context) ([]domain.Bet, error)
	Payouts(ctx context.Context, betID string) ([]domain.Payout, error)
}

// Registry is the part of the judge registry the API serves.
type Registry interface {
	RegisterJudge(ctx context.Context, addr domain.Party, stake domain.Amount) (domain.JudgeProfile, error)
	IncreaseStake(ctx context.Context, addr domain.Party, amount domain.Amount) (domain.JudgeProfile, error)
	RequestWithdrawal(ctx context.Context, addr domain.Party) (domain.JudgeProfile, error)
	CompleteWithdrawal(ctx context.Context, addr domain.Party) (domain.Amount, error)
	DeclareConflict(ctx context.Context, addr, party domain.Party) (domain.JudgeProfile, error)
	GetProfile(ctx context.Context, addr domain.Party) (domain.JudgeProfile, error)
	IsEligible(ctx context.Context, addr domain.Party) (bool, error)
	ListJudges(ctx context.Context) ([]domain.JudgeProfile, error)
	Config() domain.JudgeConfig
}

// Arbiter is the part of the dispute arbiter the API serves.
type Arbiter interface {
	SubmitVerdict(ctx context.Context, betID string, judge domain.Party, outcome domain.Outcome) (domain.Bet, error)
	ReassignJudge(ctx context.Context, betID string, caller domain.Party) (domain.Dispute, error)
	ReportMisconduct(ctx context.Context, caller, judge domain.Party, amount domain.Amount) (domain.Amount, error)
	GetDispute(ctx context.Context, betID string) (domain.Dispute, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	escrow   Escrow
	registry Registry
	arbiter  Arbiter
	validate *validator.Validate
}

// New builds a Server.
func New(esc Escrow, registry Registry, arb Arbiter) *Server {
	return &Server{
		escrow:   esc,
		registry: registry,
		arbiter:  arb,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/bets", func(api chi.Router) {
		api.Get("/", s.listBets)
		api.Get("/finalizable", s.finalizable)
		api.Get("/{betID}", s.getBet)
		api.Get("/{betID}/payouts", s.payouts)
		api.Get("/{betID}/dispute", s.getDispute)

		api.Group(func(auth chi.Router) {
			auth.Use(requireCaller)
			auth.Post("/", s.createBet)
			auth.Post("/{betID}/fund", s.fund)
			auth.Post("/{betID}/cancel", s.cancel)
			auth.Post("/{betID}/declare", s.declareOutcome)
			auth.Post("/{betID}/dispute", s.raiseDispute)
			auth.Post("/{betID}/finalize", s.finalize)
			auth.Post("/{betID}/claim", s.claim)
			auth.Post("/{betID}/verdict", s.submitVerdict)
			auth.Post("/{betID}/reassign", s.reassignJudge)
		})
	})

	r.Route("/judges", func(api chi.Router) {
		api.Get("/", s.listJudges)
		api.Get("/config", s.judgeConfig)
		api.Get("/{addr}", s.getJudge)
		api.Get("/{addr}/eligible", s.isEligible)

		api.Group(func(auth chi.Router) {
			auth.Use(requireCaller)
			auth.Post("/", s.registerJudge)
			auth.Post("/stake", s.increaseStake)
			auth.Post("/withdrawal", s.requestWithdrawal)
			auth.Post("/withdrawal/complete", s.completeWithdrawal)
			auth.Post("/conflicts", s.declareConflict)
			auth.Post("/{addr}/misconduct", s.reportMisconduct)
		})
	})

	return r
}
