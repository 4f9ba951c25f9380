package internal

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/chainpnl/config"
	"github.com/vadiminshakov/chainpnl/internal/clients"
	"github.com/vadiminshakov/chainpnl/internal/domain"
	"github.com/vadiminshakov/chainpnl/internal/services/pnl"
	"github.com/vadiminshakov/chainpnl/internal/services/report"
)

// ledgerAPI is the data source the calculator depends on. It must return
// spam-free asset snapshots and transfer lists sorted ascending by timestamp.
type ledgerAPI interface {
	FetchBalances(ctx context.Context, wallet, chain string) (domain.WalletBalances, error)
	FetchTokenTransfers(ctx context.Context, wallet, chain string, token domain.TokenAsset) ([]domain.TokenTransfer, error)
}

// PortfolioBot orchestrates PNL calculation across all configured wallets and
// chains. Each wallet+chain job is independent, jobs run in parallel.
type PortfolioBot struct {
	client   ledgerAPI
	calc     *pnl.Calculator
	reporter *report.Reporter
	exporter *report.Exporter
	cfg      config.Config
	l        *zap.Logger
}

// NewPortfolioBot wires the API client, calculator and reporter from config.
func NewPortfolioBot(cfg config.Config, reporter *report.Reporter, l *zap.Logger) (*PortfolioBot, error) {
	calc, err := pnl.NewCalculator(cfg.PriceTolerance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calculator")
	}

	client := clients.NewCovalentClient(cfg.APIKey, clients.CovalentConfig{
		QuoteCurrency:      cfg.QuoteCurrency,
		IncludeNFTs:        cfg.IncludeNFTs,
		NoSpam:             cfg.NoSpam,
		MaxPages:           cfg.MaxPages,
		RateLimitPause:     cfg.RateLimitPause,
		RateLimitRetryWait: cfg.RateLimitRetryWait,
	}, l)

	return &PortfolioBot{
		client:   client,
		calc:     calc,
		reporter: reporter,
		exporter: report.NewExporter(l),
		cfg:      cfg,
		l:        l,
	}, nil
}

// CalculateWalletPNL runs the full flow for one wallet on one chain: fetch
// balances, fetch transfer history per token, calculate and aggregate.
// A failing token is logged and skipped, the rest of the wallet still reports.
func (b *PortfolioBot) CalculateWalletPNL(ctx context.Context, wallet, chain string) (domain.WalletPNL, error) {
	balances, err := b.client.FetchBalances(ctx, wallet, chain)
	if err != nil {
		return domain.WalletPNL{}, errors.Wrapf(err, "failed to fetch balances for %s on %s", wallet, chain)
	}

	if len(balances.Assets) == 0 {
		b.l.Info("no assets found in wallet",
			zap.String("wallet", wallet), zap.String("chain", chain))
		return pnl.AggregateWalletPNL(wallet, balances.Chain, nil), nil
	}

	tokenPNLs := make([]domain.TokenPNL, 0, len(balances.Assets))
	for _, token := range balances.Assets {
		transfers, err := b.client.FetchTokenTransfers(ctx, wallet, chain, token)
		if err != nil {
			b.l.Error("failed to fetch transfers, skipping token",
				zap.String("ticker", token.Ticker), zap.Error(err))
			continue
		}

		result, err := b.calc.CalculateTokenPNL(token, transfers)
		if err != nil {
			b.l.Error("failed to calculate PNL, skipping token",
				zap.String("ticker", token.Ticker), zap.Error(err))
			continue
		}
		tokenPNLs = append(tokenPNLs, result)
	}

	return pnl.AggregateWalletPNL(wallet, balances.Chain, tokenPNLs), nil
}

// CalculateAll processes every configured wallet on every configured chain in
// parallel and prints the per-wallet and final summaries. A failing wallet is
// logged and excluded without aborting the run.
func (b *PortfolioBot) CalculateAll(ctx context.Context) ([]domain.WalletPNL, error) {
	type job struct {
		wallet string
		chain  string
	}

	var jobs []job
	for _, chain := range b.cfg.Chains {
		for _, wallet := range b.cfg.Wallets {
			jobs = append(jobs, job{wallet: wallet, chain: chain})
		}
	}

	b.reporter.PrintHeader(b.cfg.Chains, b.cfg.Wallets)

	var (
		mu      sync.Mutex
		results []domain.WalletPNL
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			result, err := b.CalculateWalletPNL(gctx, j.wallet, j.chain)
			if err != nil {
				b.l.Error("failed to process wallet",
					zap.String("wallet", report.TruncateAddress(j.wallet)),
					zap.String("chain", j.chain),
					zap.Error(err))
				return nil
			}

			mu.Lock()
			results = append(results, result)
			b.reporter.PrintWallet(result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.reporter.PrintSummary(results)

	if b.cfg.OutDir != "" && len(results) > 0 {
		if _, err := b.exporter.ExportJSON(results, b.cfg.OutDir); err != nil {
			b.l.Error("failed to export results", zap.Error(err))
		}
	}

	return results, nil
}
