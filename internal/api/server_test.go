package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/api"
	"github.com/mcauduro0/macro-trading/internal/data"
	"github.com/mcauduro0/macro-trading/internal/registry"
	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/internal/signals"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

type constantStrategy struct{}

func (constantStrategy) ID() string                   { return "const-short" }
func (constantStrategy) AssetClass() types.AssetClass { return types.AssetClassFX }

func (constantStrategy) GenerateSignals(context.Context, types.MarketWindow) (signals.StrategyOutput, error) {
	return signals.WeightMapOutput(types.TargetWeightMap{"USDBRL": -0.10}), nil
}

func newTestServer(t *testing.T) *api.Server {
	t.Helper()

	store := data.NewStore(zap.NewNop())
	points := make([]data.ClosePoint, 10)
	for i := range points {
		points[i] = data.ClosePoint{
			Date:  time.Date(2026, 1, 5+i, 0, 0, 0, 0, time.UTC),
			Close: 5.40,
		}
	}
	require.NoError(t, store.Put(data.Series{Instrument: "USDBRL", AssetClass: types.AssetClassFX, Points: points}))

	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Register(constantStrategy{}))

	riskEngine, err := risk.NewEngine(zap.NewNop(), types.RiskConfig{})
	require.NoError(t, err)

	return api.NewServer(zap.NewNop(), types.ServerConfig{EnableMetrics: true}, store, reg, riskEngine, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := make(map[string]any)
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthAndCatalog(t *testing.T) {
	srv := newTestServer(t)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	_, body = doJSON(t, srv.Router(), http.MethodGet, "/api/v1/strategies", nil)
	assert.Equal(t, []any{"const-short"}, body["strategies"])

	_, body = doJSON(t, srv.Router(), http.MethodGet, "/api/v1/data/instruments", nil)
	assert.Equal(t, []any{"USDBRL"}, body["instruments"])
}

func TestBacktestLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	cfg := map[string]any{
		"id":             "api-run-1",
		"strategyId":     "const-short",
		"startDate":      "2026-01-05T00:00:00Z",
		"endDate":        "2026-01-14T00:00:00Z",
		"initialCapital": "1000000",
	}
	rec, body := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/backtest/run", cfg)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "api-run-1", body["id"])

	// Duplicate IDs are rejected.
	rec, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/v1/backtest/run", cfg)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Eventually(t, func() bool {
		_, body := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/backtest/api-run-1", nil)
		return body["status"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	_, body = doJSON(t, srv.Router(), http.MethodGet, "/api/v1/backtest/api-run-1/trades", nil)
	assert.Equal(t, float64(1), body["count"], "one opening trade on the first date")

	rec, body = doJSON(t, srv.Router(), http.MethodGet, "/api/v1/backtest/api-run-1/attribution?by=strategy", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "breakdown")

	rec, _ = doJSON(t, srv.Router(), http.MethodGet, "/api/v1/backtest/api-run-1/attribution?by=venue", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, srv.Router(), http.MethodGet, "/api/v1/backtest/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRiskEndpoints(t *testing.T) {
	srv := newTestServer(t)

	state := map[string]any{
		"asOf":   "2026-01-14T00:00:00Z",
		"equity": 1_000_000,
		"positions": map[string]any{
			"USDBRL": map[string]any{
				"instrument": "USDBRL",
				"assetClass": "fx",
				"notional":   "-150000",
			},
		},
	}

	rec, body := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/risk/snapshot", state)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "grossLeverage")
	assert.InDelta(t, 0.15, body["grossLeverage"].(float64), 1e-9)

	state["scenario"] = map[string]any{"name": "brl_selloff", "fxPct": -0.08}
	rec, body = doJSON(t, srv.Router(), http.MethodPost, "/api/v1/risk/stress", state)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "brl_selloff", body["scenarioName"])

	delete(state, "scenario")
	rec, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/v1/risk/stress", state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doJSON(t, srv.Router(), http.MethodPost, "/api/v1/risk/limits", state)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "limits")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "macro_breaker_scale")
}
