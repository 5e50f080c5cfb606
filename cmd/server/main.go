// Package main starts the macro trading desk server: the backtest engine,
// risk engine and journal behind the HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mcauduro0/macro-trading/internal/api"
	"github.com/mcauduro0/macro-trading/internal/config"
	"github.com/mcauduro0/macro-trading/internal/data"
	"github.com/mcauduro0/macro-trading/internal/journal"
	"github.com/mcauduro0/macro-trading/internal/registry"
	"github.com/mcauduro0/macro-trading/internal/risk"
	"github.com/mcauduro0/macro-trading/internal/strategies"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting macro trading server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("dataDir", cfg.DataDir),
	)

	store, err := data.NewStoreFromDir(logger, cfg.DataDir)
	if err != nil {
		logger.Fatal("loading market data", zap.Error(err))
	}

	validator := data.NewValidator(logger)
	for _, inst := range store.Instruments() {
		if series, ok := store.Series(inst); ok {
			validator.Validate(series)
		}
	}

	reg := registry.New(logger)
	for _, s := range []registry.Strategy{
		strategies.NewMomentum(logger, strategies.MomentumConfig{Instruments: store.Instruments()}),
		strategies.NewCarry(logger, strategies.CarryConfig{}),
	} {
		if err := reg.Register(s); err != nil {
			logger.Fatal("registering strategy", zap.Error(err))
		}
	}

	riskEngine, err := risk.NewEngine(logger, cfg.Risk)
	if err != nil {
		logger.Fatal("building risk engine", zap.Error(err))
	}

	jnl, err := journal.Open(logger, cfg.JournalPath)
	if err != nil {
		logger.Fatal("opening journal", zap.Error(err))
	}
	defer jnl.Close()

	server := api.NewServer(logger, cfg.Server, store, reg, riskEngine, jnl)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
