package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

func (s *Server) registerJudge(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	stake, err := domain.ParseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := s.registry.RegisterJudge(r.Context(), callerFrom(r), stake)
	s.respondJudge(w, r, http.StatusCreated, p, err)
}

func (s *Server) increaseStake(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := s.registry.IncreaseStake(r.Context(), callerFrom(r), amount)
	s.respondJudge(w, r, http.StatusOK, p, err)
}

func (s *Server) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.RequestWithdrawal(r.Context(), callerFrom(r))
	s.respondJudge(w, r, http.StatusOK, p, err)
}

func (s *Server) completeWithdrawal(w http.ResponseWriter, r *http.Request) {
	released, err := s.registry.CompleteWithdrawal(r.Context(), callerFrom(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: released.String()})
}

func (s *Server) declareConflict(w http.ResponseWriter, r *http.Request) {
	var req conflictRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.registry.DeclareConflict(r.Context(), callerFrom(r), domain.Party(req.Party))
	s.respondJudge(w, r, http.StatusOK, p, err)
}

func (s *Server) reportMisconduct(w http.ResponseWriter, r *http.Request) {
	var req optionalAmountRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount := domain.Zero
	if req.Amount != "" {
		var err error
		if amount, err = domain.ParseAmount(req.Amount); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	taken, err := s.arbiter.ReportMisconduct(r.Context(), callerFrom(r), domain.Party(chi.URLParam(r, "addr")), amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: taken.String()})
}

func (s *Server) listJudges(w http.ResponseWriter, r *http.Request) {
	judges, err := s.registry.ListJudges(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]judgeResponse, 0, len(judges))
	for _, j := range judges {
		out = append(out, toJudgeResponse(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"judges": out})
}

func (s *Server) judgeConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toJudgeConfigResponse(s.registry.Config()))
}

func (s *Server) getJudge(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.GetProfile(r.Context(), domain.Party(chi.URLParam(r, "addr")))
	s.respondJudge(w, r, http.StatusOK, p, err)
}

func (s *Server) isEligible(w http.ResponseWriter, r *http.Request) {
	ok, err := s.registry.IsEligible(r.Context(), domain.Party(chi.URLParam(r, "addr")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"eligible": ok})
}

func (s *Server) respondJudge(w http.ResponseWriter, r *http.Request, status int, p domain.JudgeProfile, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, toJudgeResponse(p))
}
