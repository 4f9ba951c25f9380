package pnl

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

const (
	moneyPlaces = 2
	qtyPlaces   = 6
)

// Calculator wraps the FIFO engine into per-token PNL results.
type Calculator struct {
	priceTolerance decimal.Decimal
}

// NewCalculator creates a calculator. priceTolerance is the fraction of the
// reported balance (0.0-1.0) within which the reconstructed queue quantity is
// considered to match it.
func NewCalculator(priceTolerance decimal.Decimal) (*Calculator, error) {
	if priceTolerance.IsNegative() || priceTolerance.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("priceTolerance must be between 0 and 1, got %s", priceTolerance.String())
	}
	return &Calculator{priceTolerance: priceTolerance}, nil
}

// CalculateTokenPNL computes the FIFO cost-basis breakdown for one token.
//
// Transfers are sorted ascending by timestamp before processing; callers that
// already hold a sorted list pay only the verification pass. The returned
// error is reserved for structurally invalid transfers, every monetary
// anomaly degrades to a warning on the result.
func (c *Calculator) CalculateTokenPNL(token domain.TokenAsset, transfers []domain.TokenTransfer) (domain.TokenPNL, error) {
	// a token no longer held has nothing to report, even if transfers exist
	if token.Balance.IsZero() {
		return emptyTokenPNL(token), nil
	}

	if len(transfers) == 0 {
		// balance with no history: treat the whole holding as unrealized gain
		// at zero cost basis (airdrop or unknown origin)
		w := domain.Warning{
			Kind:     domain.WarnNoHistory,
			Ticker:   token.Ticker,
			Quantity: token.Balance,
		}
		return c.assemble(token, fifoOutcome{
			realizedPNL:   decimal.Zero,
			totalInvested: decimal.Zero,
			warnings:      []domain.Warning{w},
		}, decimal.Zero, token.CurrentValue), nil
	}

	sorted := make([]domain.TokenTransfer, len(transfers))
	copy(sorted, transfers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out, err := runFIFO(token.Ticker, sorted, token.CurrentPrice)
	if err != nil {
		return domain.TokenPNL{}, errors.Wrapf(err, "FIFO calculation failed for %s", token.Ticker)
	}

	remainingQty := out.remainingQty()
	remainingCost := out.remainingCost()

	// reconciliation is advisory: a mismatch is reported, never fatal
	tolerance := token.Balance.Mul(c.priceTolerance)
	if !domain.ApproxEqual(remainingQty, token.Balance, tolerance) {
		diff := remainingQty.Sub(token.Balance).Abs()
		diffPct := decimal.Zero
		if token.Balance.IsPositive() {
			diffPct = diff.Div(token.Balance).Mul(decimal.NewFromInt(100))
		}
		out.warnings = append(out.warnings, domain.Warning{
			Kind:        domain.WarnBalanceMismatch,
			Ticker:      token.Ticker,
			QueueQty:    remainingQty,
			ActualQty:   token.Balance,
			Diff:        diff,
			DiffPercent: diffPct,
		})
	}

	avgCostBasis := domain.SafeDiv(remainingCost, remainingQty)
	// unrealized PNL uses the reported balance, not the reconstructed queue
	// quantity, so reconciliation mismatches do not distort the figure
	unrealized := token.CurrentPrice.Sub(avgCostBasis).Mul(token.Balance)

	return c.assemble(token, out, avgCostBasis, unrealized), nil
}

// assemble builds the rounded result. Rounding happens here, at the boundary,
// and nowhere else.
func (c *Calculator) assemble(token domain.TokenAsset, out fifoOutcome, avgCostBasis, unrealized decimal.Decimal) domain.TokenPNL {
	totalPNL := out.realizedPNL.Add(unrealized)

	roi := decimal.Zero
	if out.totalInvested.IsPositive() {
		roi = domain.ROIPercent(out.totalInvested, token.CurrentValue.Add(out.realizedPNL))
	}

	return domain.TokenPNL{
		Ticker:          token.Ticker,
		Address:         token.Address,
		CurrentBalance:  token.Balance.Round(qtyPlaces),
		CurrentPrice:    token.CurrentPrice.Round(qtyPlaces),
		CurrentValue:    token.CurrentValue.Round(moneyPlaces),
		AvgCostBasis:    avgCostBasis.Round(qtyPlaces),
		TotalInvested:   out.totalInvested.Round(moneyPlaces),
		RealizedPNL:     out.realizedPNL.Round(moneyPlaces),
		UnrealizedPNL:   unrealized.Round(moneyPlaces),
		TotalPNL:        totalPNL.Round(moneyPlaces),
		ROIPercent:      roi.Round(moneyPlaces),
		PositionsOpened: out.positionsOpened,
		PositionsClosed: out.positionsClosed,
		HasWarnings:     len(out.warnings) > 0,
		Warnings:        out.warnings,
	}
}

// emptyTokenPNL is the all-zero result for a token with no balance.
func emptyTokenPNL(token domain.TokenAsset) domain.TokenPNL {
	return domain.TokenPNL{
		Ticker:         token.Ticker,
		Address:        token.Address,
		CurrentBalance: decimal.Zero,
		CurrentPrice:   token.CurrentPrice.Round(qtyPlaces),
		CurrentValue:   decimal.Zero,
		AvgCostBasis:   decimal.Zero,
		TotalInvested:  decimal.Zero,
		RealizedPNL:    decimal.Zero,
		UnrealizedPNL:  decimal.Zero,
		TotalPNL:       decimal.Zero,
		ROIPercent:     decimal.Zero,
	}
}
