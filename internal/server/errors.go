package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"YieldOptimizer/internal/model"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// A stuck guard outranks everything it is joined with. Adapter failures come
// next: they may wrap an error raised by a nested call.
var errorMappings = []errorMapping{
	{model.ErrGuardReleaseFailed, http.StatusServiceUnavailable, "guard_release_failed"},
	{model.ErrDepositFailed, http.StatusBadGateway, "deposit_failed"},
	{model.ErrWithdrawalFailed, http.StatusBadGateway, "withdrawal_failed"},
	{model.ErrRateUnavailable, http.StatusBadGateway, "rate_unavailable"},
	{model.ErrFeeOverflow, http.StatusInternalServerError, "fee_overflow"},
	{model.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{model.ErrAlreadyInitialized, http.StatusConflict, "already_initialized"},
	{model.ErrNotInitialized, http.StatusNotFound, "not_initialized"},
	{model.ErrReallocationTooFrequent, http.StatusTooManyRequests, "reallocation_too_frequent"},
	{model.ErrReentrancyDetected, http.StatusConflict, "reentrancy_detected"},
	{model.ErrUnsupportedProtocol, http.StatusBadRequest, "unsupported_protocol"},
	{model.ErrSameProtocol, http.StatusBadRequest, "same_protocol"},
	{model.ErrProtocolMismatch, http.StatusConflict, "protocol_mismatch"},
	{model.ErrInvalidFeeRate, http.StatusBadRequest, "invalid_fee_rate"},
	{model.ErrInsufficientFunds, http.StatusConflict, "insufficient_funds"},
	{model.ErrTooManyAssets, http.StatusConflict, "too_many_assets"},
	{model.ErrGovernanceMissing, http.StatusServiceUnavailable, "governance_missing"},
	{model.ErrLowerYieldRate, http.StatusUnprocessableEntity, "lower_yield_rate"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && code == "internal" {
		s.log.Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg, "code": "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
