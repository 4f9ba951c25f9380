package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

func tokenAsset(ticker, balance, price string) domain.TokenAsset {
	b := decimal.RequireFromString(balance)
	p := decimal.RequireFromString(price)
	return domain.TokenAsset{
		Ticker:       ticker,
		Address:      "0x00000000000000000000000000000000000000aa",
		Balance:      b,
		CurrentPrice: p,
		CurrentValue: b.Mul(p),
		Decimals:     18,
	}
}

func newTestCalculator(t *testing.T, tolerance string) *Calculator {
	t.Helper()
	calc, err := NewCalculator(decimal.RequireFromString(tolerance))
	require.NoError(t, err)
	return calc
}

func TestNewCalculator_ToleranceBounds(t *testing.T) {
	_, err := NewCalculator(decimal.RequireFromString("-0.1"))
	require.Error(t, err)

	_, err = NewCalculator(decimal.RequireFromString("1.5"))
	require.Error(t, err)

	_, err = NewCalculator(decimal.Zero)
	require.NoError(t, err)
}

func TestCalculateTokenPNL_FullScenario(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("ETH", "30", "2500")

	transfers := []domain.TokenTransfer{
		transferAt(0, domain.TransferIn, "100", "100000", "0", 0),
		transferAt(1, domain.TransferIn, "50", "75000", "0", 0),
		transferAt(2, domain.TransferOut, "120", "240000", "0", 0),
	}

	result, err := calc.CalculateTokenPNL(token, transfers)
	require.NoError(t, err)

	requireDecimalEqual(t, "110000", result.RealizedPNL)
	requireDecimalEqual(t, "30000", result.UnrealizedPNL)
	requireDecimalEqual(t, "140000", result.TotalPNL)
	requireDecimalEqual(t, "175000", result.TotalInvested)
	requireDecimalEqual(t, "1500", result.AvgCostBasis)
	requireDecimalEqual(t, "75000", result.CurrentValue)
	// (75000 value + 110000 realized - 175000 invested) / 175000
	requireDecimalEqual(t, "5.71", result.ROIPercent)
	require.Equal(t, 2, result.PositionsOpened)
	require.Equal(t, 1, result.PositionsClosed)
	require.False(t, result.HasWarnings)
}

func TestCalculateTokenPNL_ZeroBalanceIsEmpty(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("DUST", "0", "3")

	// history is irrelevant once the position is fully exited from the
	// wallet's point of view
	transfers := []domain.TokenTransfer{
		transferAt(0, domain.TransferIn, "10", "10", "0", 0),
		transferAt(1, domain.TransferOut, "10", "30", "0", 0),
	}

	result, err := calc.CalculateTokenPNL(token, transfers)
	require.NoError(t, err)

	require.Equal(t, "DUST", result.Ticker)
	require.True(t, result.CurrentBalance.IsZero())
	require.True(t, result.RealizedPNL.IsZero())
	require.True(t, result.UnrealizedPNL.IsZero())
	require.True(t, result.TotalPNL.IsZero())
	require.False(t, result.HasWarnings)
}

func TestCalculateTokenPNL_NoHistoryTreatedAsAirdrop(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("AIR", "10", "2")

	result, err := calc.CalculateTokenPNL(token, nil)
	require.NoError(t, err)

	requireDecimalEqual(t, "0", result.RealizedPNL)
	requireDecimalEqual(t, "20", result.UnrealizedPNL)
	requireDecimalEqual(t, "20", result.TotalPNL)
	requireDecimalEqual(t, "0", result.TotalInvested)
	requireDecimalEqual(t, "0", result.AvgCostBasis)
	requireDecimalEqual(t, "0", result.ROIPercent)

	require.True(t, result.HasWarnings)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, domain.WarnNoHistory, result.Warnings[0].Kind)
}

func TestCalculateTokenPNL_BalanceMismatchTolerance(t *testing.T) {
	// queue reconstructs 9.95 against a reported balance of 10
	transfers := []domain.TokenTransfer{
		transferAt(0, domain.TransferIn, "995", "100", "0", 2),
	}
	token := tokenAsset("TKN", "10", "1")

	t.Run("within tolerance", func(t *testing.T) {
		calc := newTestCalculator(t, "0.01")
		result, err := calc.CalculateTokenPNL(token, transfers)
		require.NoError(t, err)
		require.False(t, result.HasWarnings)
	})

	t.Run("outside tolerance", func(t *testing.T) {
		calc := newTestCalculator(t, "0.001")
		result, err := calc.CalculateTokenPNL(token, transfers)
		require.NoError(t, err)

		require.Len(t, result.Warnings, 1)
		w := result.Warnings[0]
		require.Equal(t, domain.WarnBalanceMismatch, w.Kind)
		requireDecimalEqual(t, "9.95", w.QueueQty)
		requireDecimalEqual(t, "10", w.ActualQty)
		requireDecimalEqual(t, "0.05", w.Diff)
		requireDecimalEqual(t, "0.5", w.DiffPercent)
	})
}

func TestCalculateTokenPNL_UnsortedInput(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("ETH", "30", "2500")

	// sell listed first, buys after: sorting by timestamp must restore
	// chronological order before the engine runs
	transfers := []domain.TokenTransfer{
		transferAt(2, domain.TransferOut, "120", "240000", "0", 0),
		transferAt(1, domain.TransferIn, "50", "75000", "0", 0),
		transferAt(0, domain.TransferIn, "100", "100000", "0", 0),
	}

	result, err := calc.CalculateTokenPNL(token, transfers)
	require.NoError(t, err)

	requireDecimalEqual(t, "110000", result.RealizedPNL)
	require.False(t, result.HasWarnings)
}

func TestCalculateTokenPNL_FallbackInvestedQuirk(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("TKN", "10", "5")

	// acquisition with no recorded spend: the lot is valued at the current
	// price for cost-basis purposes, but invested stays at the recorded zero
	transfers := []domain.TokenTransfer{
		transferAt(0, domain.TransferIn, "10", "0", "0", 0),
	}

	result, err := calc.CalculateTokenPNL(token, transfers)
	require.NoError(t, err)

	requireDecimalEqual(t, "0", result.TotalInvested)
	requireDecimalEqual(t, "5", result.AvgCostBasis)
	requireDecimalEqual(t, "0", result.UnrealizedPNL)
	requireDecimalEqual(t, "0", result.ROIPercent)

	require.Len(t, result.Warnings, 1)
	require.Equal(t, domain.WarnMissingBuyPrice, result.Warnings[0].Kind)
}

func TestCalculateTokenPNL_RoundsOnceAtBoundary(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("TKN", "2", "40")

	// lot cost 100/3 per unit yields repeating decimals everywhere
	transfers := []domain.TokenTransfer{
		transferAt(0, domain.TransferIn, "3", "100", "0", 0),
		transferAt(1, domain.TransferOut, "1", "50", "0", 0),
	}

	result, err := calc.CalculateTokenPNL(token, transfers)
	require.NoError(t, err)

	requireDecimalEqual(t, "16.67", result.RealizedPNL)
	requireDecimalEqual(t, "13.33", result.UnrealizedPNL)
	requireDecimalEqual(t, "33.333333", result.AvgCostBasis)
}

func TestCalculateTokenPNL_InvalidTransferError(t *testing.T) {
	calc := newTestCalculator(t, "0.01")
	token := tokenAsset("TKN", "10", "5")

	transfers := []domain.TokenTransfer{
		{
			TxHash:   "0xbad",
			Type:     domain.TransferIn,
			DeltaRaw: decimal.NewFromInt(10),
		},
	}

	_, err := calc.CalculateTokenPNL(token, transfers)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TKN")
}
