package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"YieldOptimizer/internal/auth"
	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/recorder"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

type optimizeRequest struct {
	CurrentProtocol string `json:"current_protocol"`
	NewProtocol     string `json:"new_protocol"`
	AssetMint       string `json:"asset_mint"`
	Amount          uint64 `json:"amount"`
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type feeRateRequest struct {
	FeeRate *uint64 `json:"fee_rate"`
}

type eventResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Owner     string          `json:"owner,omitempty"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type healthResponse struct {
	Status    string             `json:"status"`
	Protocols []model.ProtocolID `json:"protocols"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Protocols: []model.ProtocolID{}}
	if s.venues != nil {
		resp.Protocols = s.venues.Protocols()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.fund.Initialize(r.Context(), auth.CallerFrom(r.Context()), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ledger)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if err := (auth.OwnerAuthorizer{}).Authorize(r.Context(), auth.CallerFrom(r.Context()), owner); err != nil {
		s.writeError(w, err)
		return
	}
	ledger, err := s.fund.Ledger(r.Context(), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequest
	if err := decode(w, r, &body); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	res, err := s.fund.OptimizeYield(r.Context(), fund.Request{
		Caller:          auth.CallerFrom(r.Context()),
		Owner:           chi.URLParam(r, "owner"),
		CurrentProtocol: model.ParseProtocol(body.CurrentProtocol),
		NewProtocol:     model.ParseProtocol(body.NewProtocol),
		AssetMint:       body.AssetMint,
		Amount:          body.Amount,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	s.handleBalance(w, r, s.fund.CreditBalance)
}

func (s *Server) handleDebit(w http.ResponseWriter, r *http.Request) {
	s.handleBalance(w, r, s.fund.DebitBalance)
}

type balanceOp func(ctx context.Context, caller, owner, asset string, amount uint64) (*model.FundLedger, error)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, op balanceOp) {
	var body amountRequest
	if err := decode(w, r, &body); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if body.Amount == 0 {
		badRequest(w, "amount must be positive")
		return
	}
	ledger, err := op(r.Context(), auth.CallerFrom(r.Context()), chi.URLParam(r, "owner"), chi.URLParam(r, "asset"), body.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	rec, err := s.gov.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateFeeRate(w http.ResponseWriter, r *http.Request) {
	var body feeRateRequest
	if err := decode(w, r, &body); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if body.FeeRate == nil {
		badRequest(w, "fee_rate is required")
		return
	}
	rec, err := s.gov.UpdateFeeRate(r.Context(), auth.CallerFrom(r.Context()), *body.FeeRate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleEvents lists audit events. Owners see their own events; the
// governance authority sees everything.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	owner := r.URL.Query().Get("owner")
	if owner != caller {
		gov, err := s.gov.Get(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if caller != gov.Authority {
			s.writeError(w, model.ErrUnauthorized)
			return
		}
	}

	filter := recorder.Filter{Owner: owner, Type: model.EventType(r.URL.Query().Get("type"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := s.events.ListEvents(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]eventResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, eventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Owner:     e.Owner,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Payload:   e.Payload,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
