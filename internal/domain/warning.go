package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WarningKind identifies a class of calculation anomaly.
type WarningKind string

const (
	// WarnMissingBuyPrice: an IN transfer had no recorded quote value, cost
	// basis fell back to the current price.
	WarnMissingBuyPrice WarningKind = "missing_buy_price"
	// WarnMissingSellPrice: an OUT transfer had no recorded quote value,
	// proceeds fell back to quantity at the current price.
	WarnMissingSellPrice WarningKind = "missing_sell_price"
	// WarnSellWithoutBuy: an OUT transfer arrived with an empty lot queue.
	WarnSellWithoutBuy WarningKind = "sell_without_buy"
	// WarnOversold: an OUT transfer exceeded the quantity held in the queue.
	WarnOversold WarningKind = "oversold"
	// WarnBalanceMismatch: the reconstructed queue quantity disagrees with the
	// reported balance beyond the configured tolerance.
	WarnBalanceMismatch WarningKind = "balance_mismatch"
	// WarnNoHistory: the wallet holds a balance but no transfers were found.
	WarnNoHistory WarningKind = "no_transfer_history"
)

// Warning is a structured calculation anomaly. Calculation never stops on a
// warning; the caller decides whether to display, filter or log them.
type Warning struct {
	Kind          WarningKind     `json:"kind"`
	Ticker        string          `json:"ticker,omitempty"`
	TransferIndex int             `json:"transfer_index,omitempty"`
	Timestamp     time.Time       `json:"timestamp,omitempty"`
	FallbackPrice decimal.Decimal `json:"fallback_price,omitempty"`
	Quantity      decimal.Decimal `json:"quantity,omitempty"`
	QueueQty      decimal.Decimal `json:"queue_qty,omitempty"`
	ActualQty     decimal.Decimal `json:"actual_qty,omitempty"`
	Diff          decimal.Decimal `json:"diff,omitempty"`
	DiffPercent   decimal.Decimal `json:"diff_percent,omitempty"`
}

// String renders the warning as a human-readable message.
func (w Warning) String() string {
	switch w.Kind {
	case WarnMissingBuyPrice:
		return fmt.Sprintf("Missing price data for transfer #%d on %s, using current price $%s",
			w.TransferIndex, w.Timestamp.Format(time.RFC3339), w.FallbackPrice.StringFixed(6))
	case WarnMissingSellPrice:
		return fmt.Sprintf("No sale price for transfer #%d, using current price", w.TransferIndex)
	case WarnSellWithoutBuy:
		return fmt.Sprintf("Sell without prior buy detected (transfer #%d). Possible incomplete history.", w.TransferIndex)
	case WarnOversold:
		return fmt.Sprintf("Sold more than bought (%s %s unmatched). History may be incomplete.",
			w.Quantity.StringFixed(6), w.Ticker)
	case WarnBalanceMismatch:
		return fmt.Sprintf("Balance mismatch: Queue=%s, Actual=%s, Diff=%s (%s%%)",
			w.QueueQty.StringFixed(6), w.ActualQty.StringFixed(6), w.Diff.StringFixed(6), w.DiffPercent.StringFixed(2))
	case WarnNoHistory:
		return fmt.Sprintf("No transfer history found but balance exists (%s)", w.Quantity.StringFixed(6))
	}
	return string(w.Kind)
}
