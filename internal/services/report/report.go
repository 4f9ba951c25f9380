// Package report renders calculation results for the console and exports
// them as JSON.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

const separatorWidth = 70

// Reporter writes human-readable PNL summaries.
type Reporter struct {
	w             io.Writer
	quoteCurrency string
	verbose       bool
}

// NewReporter creates a console reporter writing to w.
func NewReporter(w io.Writer, quoteCurrency string, verbose bool) *Reporter {
	return &Reporter{
		w:             w,
		quoteCurrency: quoteCurrency,
		verbose:       verbose,
	}
}

// PrintHeader prints the run banner.
func (r *Reporter) PrintHeader(chains, wallets []string) {
	sep := strings.Repeat("=", separatorWidth)
	fmt.Fprintf(r.w, "\n%s\nBLOCKCHAIN WALLET PNL CALCULATOR\n%s\n", sep, sep)
	fmt.Fprintf(r.w, "Chains: %s\n", strings.Join(chains, ", "))
	fmt.Fprintf(r.w, "Wallets: %d\n", len(wallets))
	fmt.Fprintf(r.w, "Quote Currency: %s\n%s\n", r.quoteCurrency, sep)
}

// PrintWallet prints one wallet's result, with per-token detail in verbose mode.
func (r *Reporter) PrintWallet(result domain.WalletPNL) {
	sep := strings.Repeat("=", separatorWidth)
	fmt.Fprintf(r.w, "\n%s\nWALLET: %s | CHAIN: %s\n%s\n",
		sep, TruncateAddress(result.Wallet), result.Chain, sep)

	if r.verbose {
		for _, t := range result.Tokens {
			r.printToken(t)
		}
	}

	fmt.Fprintf(r.w, "Invested: %s | Value Now: %s\n",
		r.FormatCurrency(result.TotalInvested), r.FormatCurrency(result.TotalCurrentValue))
	fmt.Fprintf(r.w, "Realized: %s | Unrealized: %s | Total PNL: %s (%s)\n",
		r.FormatCurrency(result.TotalRealizedPNL),
		r.FormatCurrency(result.TotalUnrealizedPNL),
		r.FormatCurrency(result.TotalPNL),
		FormatPercentage(result.TotalROIPercent))
}

func (r *Reporter) printToken(t domain.TokenPNL) {
	fmt.Fprintf(r.w, "\n-> %-8s | Balance: %s | Price: %s\n",
		t.Ticker, t.CurrentBalance.StringFixed(6), r.FormatCurrency(t.CurrentPrice))
	fmt.Fprintf(r.w, "   Cost Basis: %s | Invested: %s | Value Now: %s\n",
		r.FormatCurrency(t.AvgCostBasis), r.FormatCurrency(t.TotalInvested), r.FormatCurrency(t.CurrentValue))
	fmt.Fprintf(r.w, "   Realized: %s | Unrealized: %s | Total PNL: %s (%s)\n",
		r.FormatCurrency(t.RealizedPNL), r.FormatCurrency(t.UnrealizedPNL),
		r.FormatCurrency(t.TotalPNL), FormatPercentage(t.ROIPercent))
	fmt.Fprintf(r.w, "   Positions: %d opened, %d closed\n", t.PositionsOpened, t.PositionsClosed)

	if t.HasWarnings {
		fmt.Fprintf(r.w, "   WARNINGS:\n")
		for _, w := range t.Warnings {
			fmt.Fprintf(r.w, "     - %s\n", w.String())
		}
	}
}

// PrintSummary prints the final cross-wallet summary.
func (r *Reporter) PrintSummary(results []domain.WalletPNL) {
	if len(results) == 0 {
		fmt.Fprintln(r.w, "\nNo results to display.")
		return
	}

	sep := strings.Repeat("=", separatorWidth)
	fmt.Fprintf(r.w, "\n%s\nFINAL SUMMARY\n%s\n", sep, sep)

	grandTotal := decimal.Zero
	for _, result := range results {
		fmt.Fprintf(r.w, "%-14s | %-18s | PNL: %-15s | ROI: %s\n",
			TruncateAddress(result.Wallet), result.Chain,
			r.FormatCurrency(result.TotalPNL), FormatPercentage(result.TotalROIPercent))
		grandTotal = grandTotal.Add(result.TotalPNL)
	}

	if len(results) > 1 {
		fmt.Fprintf(r.w, "%s\nGRAND TOTAL PNL: %s\n", strings.Repeat("-", separatorWidth), r.FormatCurrency(grandTotal))
	}
	fmt.Fprintf(r.w, "%s\n", sep)
}

// FormatCurrency renders an amount in the configured quote currency.
func (r *Reporter) FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	abs := amount.Abs().StringFixed(2)
	if r.quoteCurrency == "USD" {
		return fmt.Sprintf("%s$%s", sign, abs)
	}
	return fmt.Sprintf("%s%s %s", sign, abs, r.quoteCurrency)
}

// FormatPercentage renders a signed percentage.
func FormatPercentage(value decimal.Decimal) string {
	if value.IsNegative() {
		return value.StringFixed(2) + "%"
	}
	return "+" + value.StringFixed(2) + "%"
}

// TruncateAddress shortens a chain address for display.
func TruncateAddress(address string) string {
	const prefix, suffix = 6, 4
	if len(address) <= prefix+suffix+2 {
		return address
	}
	return address[:prefix] + "..." + address[len(address)-suffix:]
}
