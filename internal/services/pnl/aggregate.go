package pnl

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

// AggregateWalletPNL folds per-token results into wallet-level totals.
// An empty token list yields an all-zero result.
func AggregateWalletPNL(wallet, chain string, tokens []domain.TokenPNL) domain.WalletPNL {
	totalInvested := decimal.Zero
	totalValue := decimal.Zero
	totalRealized := decimal.Zero
	totalUnrealized := decimal.Zero

	for _, t := range tokens {
		totalInvested = totalInvested.Add(t.TotalInvested)
		totalValue = totalValue.Add(t.CurrentValue)
		totalRealized = totalRealized.Add(t.RealizedPNL)
		totalUnrealized = totalUnrealized.Add(t.UnrealizedPNL)
	}

	totalPNL := totalRealized.Add(totalUnrealized)

	roi := decimal.Zero
	if totalInvested.IsPositive() {
		roi = domain.ROIPercent(totalInvested, totalValue.Add(totalRealized))
	}

	return domain.WalletPNL{
		Wallet:             wallet,
		Chain:              chain,
		Tokens:             tokens,
		TotalInvested:      totalInvested.Round(moneyPlaces),
		TotalCurrentValue:  totalValue.Round(moneyPlaces),
		TotalRealizedPNL:   totalRealized.Round(moneyPlaces),
		TotalUnrealizedPNL: totalUnrealized.Round(moneyPlaces),
		TotalPNL:           totalPNL.Round(moneyPlaces),
		TotalROIPercent:    roi.Round(moneyPlaces),
	}
}
