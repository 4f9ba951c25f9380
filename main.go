package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/chainpnl/config"
	"github.com/vadiminshakov/chainpnl/internal"
	"github.com/vadiminshakov/chainpnl/internal/services/report"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter := report.NewReporter(os.Stdout, cfg.QuoteCurrency, cfg.Verbose)
	bot, err := internal.NewPortfolioBot(cfg, reporter, logger)
	if err != nil {
		logger.Fatal("failed to create portfolio bot", zap.Error(err))
	}

	results, err := bot.CalculateAll(ctx)
	if err != nil {
		logger.Fatal("calculation failed", zap.Error(err))
	}

	logger.Info("done", zap.Int("wallets_processed", len(results)))
}
