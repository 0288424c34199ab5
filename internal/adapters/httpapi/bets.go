package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alejandrodnm/wagerbook/internal/application/escrow"
	"github.com/alejandrodnm/wagerbook/internal/domain"
)

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req createBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	stake, err := domain.ParseAmount(req.Stake)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	bet, err := s.escrow.CreateBet(r.Context(), escrow.CreateBetRequest{
		Creator:         callerFrom(r),
		Opponent:        domain.Party(req.Opponent),
		House:           req.House,
		Stake:           stake,
		Description:     req.Description,
		OutcomeCriteria: req.OutcomeCriteria,
		Tags:            req.Tags,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBetResponse(bet))
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.escrow.ListBets(r.Context(), domain.Party(r.URL.Query().Get("party")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": toBetResponses(bets)})
}

func (s *Server) finalizable(w http.ResponseWriter, r *http.Request) {
	bets, err := s.escrow.Finalizable(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": toBetResponses(bets)})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := s.escrow.GetDetails(r.Context(), chi.URLParam(r, "betID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(bet))
}

func (s *Server) payouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.escrow.Payouts(r.Context(), chi.URLParam(r, "betID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, payoutResponse{
			ID:        p.ID,
			To:        string(p.To),
			Side:      string(p.Side),
			Amount:    p.Amount.String(),
			Reason:    string(p.Reason),
			CreatedAt: p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payouts": out})
}

func (s *Server) getDispute(w http.ResponseWriter, r *http.Request) {
	d, err := s.arbiter.GetDispute(r.Context(), chi.URLParam(r, "betID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeResponse(d))
}

func (s *Server) fund(w http.ResponseWriter, r *http.Request) {
	bet, err := s.escrow.Fund(r.Context(), chi.URLParam(r, "betID"), callerFrom(r))
	s.respondBet(w, r, bet, err)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	bet, err := s.escrow.Cancel(r.Context(), chi.URLParam(r, "betID"), callerFrom(r))
	s.respondBet(w, r, bet, err)
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	bet, err := s.escrow.FinalizeResolution(r.Context(), chi.URLParam(r, "betID"), callerFrom(r))
	s.respondBet(w, r, bet, err)
}

func (s *Server) declareOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if !s.decode(w, r, &req) {
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	bet, err := s.escrow.DeclareOutcome(r.Context(), chi.URLParam(r, "betID"), callerFrom(r), outcome)
	s.respondBet(w, r, bet, err)
}

func (s *Server) raiseDispute(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if !s.decode(w, r, &req) {
		return
	}
	bet, d, err := s.escrow.RaiseDispute(r.Context(), chi.URLParam(r, "betID"), callerFrom(r), req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bet":     toBetResponse(bet),
		"dispute": toDisputeResponse(d),
	})
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	amount, err := s.escrow.ClaimWinnings(r.Context(), chi.URLParam(r, "betID"), callerFrom(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.String()})
}

func (s *Server) submitVerdict(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if !s.decode(w, r, &req) {
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	bet, err := s.arbiter.SubmitVerdict(r.Context(), chi.URLParam(r, "betID"), callerFrom(r), outcome)
	s.respondBet(w, r, bet, err)
}

func (s *Server) reassignJudge(w http.ResponseWriter, r *http.Request) {
	d, err := s.arbiter.ReassignJudge(r.Context(), chi.URLParam(r, "betID"), callerFrom(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeResponse(d))
}

func (s *Server) respondBet(w http.ResponseWriter, r *http.Request, bet domain.Bet, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(bet))
}
