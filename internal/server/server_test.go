package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"YieldOptimizer/internal/auth"
	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/governance"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/protocol"
	"YieldOptimizer/internal/rates"
	"YieldOptimizer/internal/recorder"
	"YieldOptimizer/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler http.Handler
	tokens  *auth.Tokens
	solend  *protocol.SimVenue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	ctx := context.Background()

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "events.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	sink := recorder.NewRecorderSink(rec, log)

	st := store.NewMemoryStore()
	gov := governance.NewService(st, sink, log)
	_, err = gov.Bootstrap(ctx, "gov", 100)
	require.NoError(t, err)

	solend := protocol.NewSimVenue(model.ProtocolSolend, false, log)
	venues := protocol.NewRegistry(protocol.NewSimVenue(model.ProtocolRaydium, false, log), solend)
	fm, err := fund.NewManager(fund.Config{
		Store:    st,
		Adapters: venues,
		Rates:    rates.NewStaticSource(map[model.ProtocolID]uint64{model.ProtocolRaydium: 5, model.ProtocolSolend: 8}, 5),
		Fees:     gov,
		Events:   sink,
		Log:      log,
	})
	require.NoError(t, err)

	tokens, err := auth.NewTokens("test-secret-0123456789", "yield-optimizer", time.Hour)
	require.NoError(t, err)

	srv := New(Config{Addr: ":0", Log: log, Fund: fm, Governance: gov, Events: rec, Tokens: tokens, Venues: venues})
	return &testEnv{handler: srv.Handler(), tokens: tokens, solend: solend}
}

func (e *testEnv) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		tok, err := e.tokens.Issue(caller)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, []model.ProtocolID{model.ProtocolRaydium, model.ProtocolSolend}, health.Protocols)

	rec = env.do(t, http.MethodGet, "/api/v1/governance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFundLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/funds/alice", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_initialized", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice/balances/USDC/credit", "alice", map[string]uint64{"amount": 1000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice/balances/USDC/debit", "alice", map[string]uint64{"amount": 5000})
	assert.Equal(t, "insufficient_funds", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice/optimize", "alice", map[string]any{
		"current_protocol": "raydium", "new_protocol": "solend", "asset_mint": "USDC", "amount": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res fund.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, uint64(990), res.Net)
	assert.Equal(t, uint64(990), env.solend.Position(protocol.AssetAccount{Owner: "alice", Mint: "USDC"}))

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice/optimize", "alice", map[string]any{
		"current_protocol": "solend", "new_protocol": "raydium", "asset_mint": "USDC", "amount": 990,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lower_yield_rate", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice/optimize", "alice", map[string]any{
		"current_protocol": "solend", "new_protocol": "orca", "asset_mint": "USDC", "amount": 1,
	})
	assert.Equal(t, "unsupported_protocol", errorCode(t, rec))

	rec = env.do(t, http.MethodGet, "/api/v1/funds/alice", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ledger model.FundLedger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ledger))
	assert.Equal(t, model.ProtocolSolend, ledger.CurrentProtocol)
	assert.Equal(t, uint64(1000), ledger.Balance("USDC"))

	rec = env.do(t, http.MethodGet, "/api/v1/funds/alice", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/funds/bob", "bob", nil)
	assert.Equal(t, "not_initialized", errorCode(t, rec))
}

func TestOptimizeRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/funds/alice/optimize", "alice", map[string]any{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/funds/alice/optimize", "alice", map[string]any{"unknown": 1})
	assert.Equal(t, "bad_request", errorCode(t, rec))
}

func TestGovernanceEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/governance", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var g model.GovernanceRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, uint64(100), g.FeeRate)

	rec = env.do(t, http.MethodPut, "/api/v1/governance/fee-rate", "alice", map[string]uint64{"fee_rate": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/governance/fee-rate", "gov", map[string]uint64{"fee_rate": 10001})
	assert.Equal(t, "invalid_fee_rate", errorCode(t, rec))

	rec = env.do(t, http.MethodPut, "/api/v1/governance/fee-rate", "gov", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/governance/fee-rate", "gov", map[string]uint64{"fee_rate": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Zero(t, g.FeeRate)
}

func TestEventsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/funds/alice", "alice", nil)
	env.do(t, http.MethodPost, "/api/v1/funds/bob", "bob", nil)

	rec := env.do(t, http.MethodGet, "/api/v1/events?owner=alice", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []eventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, string(model.EventFundsInitialized), events[0].Type)

	rec = env.do(t, http.MethodGet, "/api/v1/events?owner=bob", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/events?limit=1", "gov", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 1)

	rec = env.do(t, http.MethodGet, "/api/v1/events?limit=zero", "gov", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassify(t *testing.T) {
	status, code := classify(model.ErrDepositFailed)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "deposit_failed", code)

	status, code = classify(model.ErrReallocationTooFrequent)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "reallocation_too_frequent", code)

	_, code = classify(context.Canceled)
	assert.Equal(t, "internal", code)

	stuck := errors.Join(
		fmt.Errorf("%w: solend pays 8, raydium pays 9", model.ErrLowerYieldRate),
		fmt.Errorf("%w: %w", model.ErrGuardReleaseFailed, errors.New("disk full")),
	)
	status, code = classify(stuck)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "guard_release_failed", code)
}
