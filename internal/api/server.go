// Package api exposes the trading engines over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcauduro0/macro-trading/internal/attribution"
	"github.com/mcauduro0/macro-trading/internal/backtester"
	"github.com/mcauduro0/macro-trading/internal/data"
	"github.com/mcauduro0/macro-trading/internal/journal"
	"github.com/mcauduro0/macro-trading/internal/registry"
	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Server is the HTTP/WebSocket API server.
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub
	metrics    *Metrics

	store      *data.Store
	registry   *registry.Registry
	riskEngine *risk.Engine
	journal    *journal.Journal // nil disables persistence

	backtests map[string]*backtestState
}

// backtestState tracks one run through its lifetime.
type backtestState struct {
	ID      string
	Config  *types.BacktestConfig
	Status  string
	Started time.Time
	Result  *types.BacktestResult
	cancel  context.CancelFunc
}

// NewServer wires the API surface over the engines.
func NewServer(
	logger *zap.Logger,
	config types.ServerConfig,
	store *data.Store,
	reg *registry.Registry,
	riskEngine *risk.Engine,
	jnl *journal.Journal,
) *Server {
	s := &Server{
		logger:     logger.Named("api"),
		config:     config,
		router:     mux.NewRouter(),
		hub:        NewHub(logger),
		metrics:    NewMetrics(),
		store:      store,
		registry:   reg,
		riskEngine: riskEngine,
		journal:    jnl,
		backtests:  make(map[string]*backtestState),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/strategies", s.handleListStrategies).Methods("GET")
	s.router.HandleFunc("/api/v1/data/instruments", s.handleListInstruments).Methods("GET")

	s.router.HandleFunc("/api/v1/backtest/run", s.handleRunBacktest).Methods("POST")
	s.router.HandleFunc("/api/v1/backtest/{id}", s.handleGetBacktest).Methods("GET")
	s.router.HandleFunc("/api/v1/backtest/{id}/trades", s.handleGetBacktestTrades).Methods("GET")
	s.router.HandleFunc("/api/v1/backtest/{id}/attribution", s.handleGetAttribution).Methods("GET")
	s.router.HandleFunc("/api/v1/backtest/{id}/cancel", s.handleCancelBacktest).Methods("POST")

	s.router.HandleFunc("/api/v1/risk/snapshot", s.handleRiskSnapshot).Methods("POST")
	s.router.HandleFunc("/api/v1/risk/stress", s.handleRiskStress).Methods("POST")
	s.router.HandleFunc("/api/v1/risk/limits", s.handleRiskLimits).Methods("POST")

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.hub.ServeWS(s.upgrader, w, r)
	})
}

// Start runs the hub and serves HTTP until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting api server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"strategies": s.registry.List()})
}

func (s *Server) handleListInstruments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"instruments": s.store.Instruments()})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var config types.BacktestConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if config.ID == "" {
		config.ID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &backtestState{
		ID:      config.ID,
		Config:  &config,
		Status:  "running",
		Started: time.Now().UTC(),
		cancel:  cancel,
	}

	s.mu.Lock()
	if _, exists := s.backtests[config.ID]; exists {
		s.mu.Unlock()
		cancel()
		http.Error(w, "backtest id already in use", http.StatusConflict)
		return
	}
	s.backtests[config.ID] = state
	s.mu.Unlock()

	s.metrics.BacktestsStarted.Inc()

	go func() {
		defer cancel()
		engine := backtester.NewEngine(s.logger, s.registry, s.store)

		started := time.Now()
		result, err := engine.Run(ctx, &config)
		s.metrics.BacktestDuration.Observe(time.Since(started).Seconds())

		s.mu.Lock()
		if err != nil {
			state.Status = "failed"
			s.logger.Error("backtest failed", zap.String("id", config.ID), zap.Error(err))
		} else {
			state.Status = result.Status
			state.Result = result
		}
		s.mu.Unlock()
		s.metrics.BacktestsCompleted.WithLabelValues(state.Status).Inc()

		if err == nil && s.journal != nil {
			if jerr := s.journal.AppendTrades(context.Background(), config.ID, result.Trades); jerr != nil {
				s.logger.Error("journal trades", zap.String("id", config.ID), zap.Error(jerr))
			}
			if jerr := s.journal.AppendEquity(context.Background(), config.ID, result.EquityCurve); jerr != nil {
				s.logger.Error("journal equity", zap.String("id", config.ID), zap.Error(jerr))
			}
		}

		s.hub.PublishToChannel("backtests", MsgTypeBacktestUpdate, map[string]any{
			"id":     config.ID,
			"status": state.Status,
		})
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"id":      config.ID,
		"status":  "running",
		"started": state.Started.Unix(),
	})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "backtest not found", http.StatusNotFound)
		return
	}

	s.mu.RLock()
	response := map[string]any{
		"id":      state.ID,
		"status":  state.Status,
		"started": state.Started.Unix(),
	}
	if state.Result != nil {
		response["result"] = state.Result
	}
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetBacktestTrades(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "backtest not found", http.StatusNotFound)
		return
	}

	s.mu.RLock()
	result := state.Result
	s.mu.RUnlock()
	if result == nil {
		http.Error(w, "backtest not complete", http.StatusConflict)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":     state.ID,
		"trades": result.Trades,
		"count":  len(result.Trades),
	})
}

func (s *Server) handleGetAttribution(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "backtest not found", http.StatusNotFound)
		return
	}

	s.mu.RLock()
	result := state.Result
	s.mu.RUnlock()
	if result == nil {
		http.Error(w, "backtest not complete", http.StatusConflict)
		return
	}

	var breakdown attribution.PnLBreakdown
	switch by := r.URL.Query().Get("by"); by {
	case "", "strategy":
		breakdown = attribution.ByStrategy(result.Trades)
	case "instrument":
		breakdown = attribution.ByInstrument(result.Trades)
	case "month":
		breakdown = attribution.ByMonth(result.Trades)
	default:
		http.Error(w, fmt.Sprintf("unknown attribution dimension %q", by), http.StatusBadRequest)
		return
	}

	best, worst := attribution.TopContributors(breakdown, 3)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":        state.ID,
		"breakdown": breakdown,
		"best":      best,
		"worst":     worst,
	})
}

func (s *Server) handleCancelBacktest(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "backtest not found", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	running := state.Status == "running"
	s.mu.Unlock()
	if !running {
		http.Error(w, "backtest not running", http.StatusConflict)
		return
	}

	state.cancel()
	s.writeJSON(w, http.StatusOK, map[string]any{"id": state.ID, "status": "cancelling"})
}

// riskStateRequest is the wire form of a portfolio state for risk endpoints.
type riskStateRequest struct {
	AsOf            time.Time                 `json:"asOf"`
	Equity          float64                   `json:"equity"`
	Positions       map[string]types.Position `json:"positions"`
	Returns         map[string][]float64      `json:"returns,omitempty"`
	CurrentDrawdown float64                   `json:"currentDrawdown"`
	MaxDrawdown     float64                   `json:"maxDrawdown"`
	DailyLossPct    float64                   `json:"dailyLossPct"`
	WeeklyLossPct   float64                   `json:"weeklyLossPct"`
	Scenario        *types.ShockScenario      `json:"scenario,omitempty"`
}

func (req *riskStateRequest) portfolioState() risk.PortfolioState {
	return risk.PortfolioState{
		AsOf:            req.AsOf,
		Equity:          decimal.NewFromFloat(req.Equity),
		Positions:       req.Positions,
		Returns:         req.Returns,
		CurrentDrawdown: req.CurrentDrawdown,
		MaxDrawdown:     req.MaxDrawdown,
		DailyLossPct:    req.DailyLossPct,
		WeeklyLossPct:   req.WeeklyLossPct,
	}
}

func (s *Server) handleRiskSnapshot(w http.ResponseWriter, r *http.Request) {
	var req riskStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snapshot := s.riskEngine.Snapshot(req.portfolioState())

	s.metrics.BreakerScale.Set(snapshot.BreakerScale)
	for _, item := range snapshot.Limits {
		s.metrics.LimitUtilization.WithLabelValues(item.Name).Set(item.Utilization)
		if item.Severity != types.SeverityOK {
			s.hub.PublishToChannel("risk", MsgTypeRiskAlert, item)
		}
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleRiskStress(w http.ResponseWriter, r *http.Request) {
	var req riskStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Scenario == nil {
		http.Error(w, "scenario required", http.StatusBadRequest)
		return
	}

	result, err := s.riskEngine.Stress(req.portfolioState(), *req.Scenario)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRiskLimits(w http.ResponseWriter, r *http.Request) {
	var req riskStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"limits": s.riskEngine.Limits(req.portfolioState()),
	})
}

func (s *Server) lookup(id string) (*backtestState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.backtests[id]
	return state, ok
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

// writeEngineError maps engine error taxonomy onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var cfgErr *types.ConfigError
	if errors.As(err, &cfgErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
