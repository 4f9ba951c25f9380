// Package pnl computes realized and unrealized profit and loss for wallet
// holdings using FIFO cost-basis accounting.
package pnl

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

// lot is a batch of units acquired at a single cost basis. Lots live only in
// the queue of one engine run and are consumed oldest-first.
type lot struct {
	qty         decimal.Decimal
	costPerUnit decimal.Decimal
	gasUSD      decimal.Decimal
}

// fifoOutcome carries everything the engine learned from one transfer stream.
type fifoOutcome struct {
	realizedPNL     decimal.Decimal
	totalInvested   decimal.Decimal
	positionsOpened int
	positionsClosed int
	queue           []lot
	warnings        []domain.Warning
}

// remainingQty sums the unsold quantity left in the queue.
func (o *fifoOutcome) remainingQty() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.queue {
		total = total.Add(l.qty)
	}
	return total
}

// remainingCost sums the cost basis of the unsold quantity left in the queue.
func (o *fifoOutcome) remainingCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.queue {
		total = total.Add(l.qty.Mul(l.costPerUnit))
	}
	return total
}

// runFIFO walks transfers chronologically, matching each disposal against the
// oldest remaining acquisitions. Transfers must already be sorted ascending by
// timestamp. currentPrice is the fallback valuation for transfers with no
// recorded quote value.
//
// Missing prices, sells against an empty queue and oversells degrade to
// warnings; only structurally invalid records abort the run.
func runFIFO(ticker string, transfers []domain.TokenTransfer, currentPrice decimal.Decimal) (fifoOutcome, error) {
	out := fifoOutcome{
		realizedPNL:   decimal.Zero,
		totalInvested: decimal.Zero,
	}

	for i, t := range transfers {
		if err := t.Validate(); err != nil {
			return fifoOutcome{}, errors.Wrapf(err, "invalid transfer #%d for %s", i+1, ticker)
		}

		qty := t.Quantity()
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		quoteValue := t.DeltaQuote.Abs()
		gasUSD := t.GasQuote

		switch t.Type {
		case domain.TransferIn:
			out.positionsOpened++

			costPerUnit := decimal.Zero
			if quoteValue.IsZero() {
				// no historical price, fall back to the current one
				costPerUnit = currentPrice
				out.warnings = append(out.warnings, domain.Warning{
					Kind:          domain.WarnMissingBuyPrice,
					Ticker:        ticker,
					TransferIndex: i + 1,
					Timestamp:     t.Timestamp,
					FallbackPrice: currentPrice,
				})
			} else {
				// gas is capitalized into the cost basis
				costPerUnit = quoteValue.Add(gasUSD).Div(qty)
			}

			out.queue = append(out.queue, lot{
				qty:         qty,
				costPerUnit: costPerUnit,
				gasUSD:      gasUSD,
			})
			// invested reflects the recorded spend, not the fallback valuation
			out.totalInvested = out.totalInvested.Add(quoteValue.Add(gasUSD))

		case domain.TransferOut:
			if len(out.queue) == 0 {
				out.warnings = append(out.warnings, domain.Warning{
					Kind:          domain.WarnSellWithoutBuy,
					Ticker:        ticker,
					TransferIndex: i + 1,
				})
				continue
			}

			out.positionsClosed++

			sellQty := qty
			sellValue := quoteValue
			if sellValue.IsZero() {
				sellValue = sellQty.Mul(currentPrice)
				out.warnings = append(out.warnings, domain.Warning{
					Kind:          domain.WarnMissingSellPrice,
					Ticker:        ticker,
					TransferIndex: i + 1,
				})
			}

			remaining := sellQty
			for remaining.GreaterThan(decimal.Zero) && len(out.queue) > 0 {
				head := &out.queue[0]
				matched := decimal.Min(remaining, head.qty)

				// proceeds and gas allocated proportionally to the matched part
				entryCost := matched.Mul(head.costPerUnit)
				exitValue := matched.Mul(sellValue.Div(sellQty))
				gasPortion := gasUSD.Mul(matched.Div(sellQty))

				out.realizedPNL = out.realizedPNL.Add(exitValue.Sub(entryCost).Sub(gasPortion))

				head.qty = head.qty.Sub(matched)
				remaining = remaining.Sub(matched)
				if head.qty.LessThanOrEqual(decimal.Zero) {
					out.queue = out.queue[1:]
				}
			}

			// the unmatched excess contributes no realized PNL, it is dropped
			// from accounting rather than invented as a cost-free gain
			if remaining.GreaterThan(decimal.Zero) {
				out.warnings = append(out.warnings, domain.Warning{
					Kind:     domain.WarnOversold,
					Ticker:   ticker,
					Quantity: remaining,
				})
			}
		}
	}

	return out, nil
}
