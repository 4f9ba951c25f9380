package internal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chainpnl/config"
	"github.com/vadiminshakov/chainpnl/internal/domain"
	"github.com/vadiminshakov/chainpnl/internal/services/pnl"
	"github.com/vadiminshakov/chainpnl/internal/services/report"
)

const (
	walletOne = "0xaaa0000000000000000000000000000000000001"
	walletTwo = "0xbbb0000000000000000000000000000000000002"
)

type fakeLedger struct {
	balances  map[string]domain.WalletBalances
	transfers map[string][]domain.TokenTransfer
	fail      map[string]error
}

func (f *fakeLedger) FetchBalances(_ context.Context, wallet, chain string) (domain.WalletBalances, error) {
	if err, ok := f.fail[wallet]; ok {
		return domain.WalletBalances{}, err
	}
	b, ok := f.balances[wallet]
	if !ok {
		return domain.WalletBalances{Wallet: wallet, Chain: chain}, nil
	}
	return b, nil
}

func (f *fakeLedger) FetchTokenTransfers(_ context.Context, wallet, _ string, token domain.TokenAsset) ([]domain.TokenTransfer, error) {
	return f.transfers[wallet+"/"+token.Ticker], nil
}

func newTestBot(t *testing.T, ledger *fakeLedger, wallets []string) (*PortfolioBot, *bytes.Buffer) {
	t.Helper()

	calc, err := pnl.NewCalculator(decimal.RequireFromString("0.01"))
	require.NoError(t, err)

	var buf bytes.Buffer
	return &PortfolioBot{
		client:   ledger,
		calc:     calc,
		reporter: report.NewReporter(&buf, "USD", false),
		exporter: report.NewExporter(zap.NewNop()),
		cfg: config.Config{
			Chains:  []string{"eth-mainnet"},
			Wallets: wallets,
		},
		l: zap.NewNop(),
	}, &buf
}

func ethAsset(balance int64) domain.TokenAsset {
	b := decimal.NewFromInt(balance)
	price := decimal.NewFromInt(2500)
	return domain.TokenAsset{
		Ticker:       "ETH",
		Balance:      b,
		CurrentPrice: price,
		CurrentValue: b.Mul(price),
		Native:       true,
		Decimals:     18,
	}
}

func TestCalculateWalletPNL(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		balances: map[string]domain.WalletBalances{
			walletOne: {
				Wallet: walletOne,
				Chain:  "eth-mainnet",
				Assets: []domain.TokenAsset{ethAsset(30)},
			},
		},
		transfers: map[string][]domain.TokenTransfer{
			walletOne + "/ETH": {
				{
					TxHash:     "0xbuy1",
					Timestamp:  ts,
					Type:       domain.TransferIn,
					DeltaRaw:   decimal.NewFromInt(100),
					DeltaQuote: decimal.NewFromInt(100000),
				},
				{
					TxHash:     "0xbuy2",
					Timestamp:  ts.Add(time.Hour),
					Type:       domain.TransferIn,
					DeltaRaw:   decimal.NewFromInt(50),
					DeltaQuote: decimal.NewFromInt(75000),
				},
				{
					TxHash:     "0xsell",
					Timestamp:  ts.Add(2 * time.Hour),
					Type:       domain.TransferOut,
					DeltaRaw:   decimal.NewFromInt(120),
					DeltaQuote: decimal.NewFromInt(240000),
				},
			},
		},
	}
	bot, _ := newTestBot(t, ledger, []string{walletOne})

	result, err := bot.CalculateWalletPNL(context.Background(), walletOne, "eth-mainnet")
	require.NoError(t, err)

	require.Len(t, result.Tokens, 1)
	require.True(t, result.TotalRealizedPNL.Equal(decimal.NewFromInt(110000)),
		"realized = %s", result.TotalRealizedPNL)
	require.True(t, result.TotalUnrealizedPNL.Equal(decimal.NewFromInt(30000)),
		"unrealized = %s", result.TotalUnrealizedPNL)
	require.True(t, result.TotalPNL.Equal(decimal.NewFromInt(140000)))
}

func TestCalculateWalletPNL_EmptyWallet(t *testing.T) {
	bot, _ := newTestBot(t, &fakeLedger{}, []string{walletOne})

	result, err := bot.CalculateWalletPNL(context.Background(), walletOne, "eth-mainnet")
	require.NoError(t, err)
	require.Empty(t, result.Tokens)
	require.True(t, result.TotalPNL.IsZero())
}

func TestCalculateAll_FailingWalletDoesNotAbort(t *testing.T) {
	ledger := &fakeLedger{
		balances: map[string]domain.WalletBalances{
			walletTwo: {
				Wallet: walletTwo,
				Chain:  "eth-mainnet",
				Assets: []domain.TokenAsset{ethAsset(10)},
			},
		},
		fail: map[string]error{
			walletOne: errors.New("upstream unavailable"),
		},
	}
	bot, buf := newTestBot(t, ledger, []string{walletOne, walletTwo})

	results, err := bot.CalculateAll(context.Background())
	require.NoError(t, err)

	// the failing wallet is dropped, the healthy one still reports
	require.Len(t, results, 1)
	require.Equal(t, walletTwo, results[0].Wallet)
	require.Contains(t, buf.String(), "FINAL SUMMARY")
}
