package domain

import "github.com/shopspring/decimal"

// TokenPNL is the per-token profit and loss breakdown. Monetary figures are
// rounded to 2 decimal places, quantities and prices to 6; rounding happens
// once when the result is assembled, never during calculation.
type TokenPNL struct {
	Ticker          string          `json:"ticker"`
	Address         string          `json:"address"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	AvgCostBasis    decimal.Decimal `json:"avg_cost_basis"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
	RealizedPNL     decimal.Decimal `json:"realized_pnl"`
	UnrealizedPNL   decimal.Decimal `json:"unrealized_pnl"`
	TotalPNL        decimal.Decimal `json:"total_pnl"`
	ROIPercent      decimal.Decimal `json:"roi_percent"`
	PositionsOpened int             `json:"positions_opened"`
	PositionsClosed int             `json:"positions_closed"`
	HasWarnings     bool            `json:"has_warnings"`
	Warnings        []Warning       `json:"warnings"`
}

// WalletPNL aggregates token results for one wallet on one chain.
type WalletPNL struct {
	Wallet             string          `json:"wallet"`
	Chain              string          `json:"chain"`
	Tokens             []TokenPNL      `json:"tokens"`
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalCurrentValue  decimal.Decimal `json:"total_current_value"`
	TotalRealizedPNL   decimal.Decimal `json:"total_realized_pnl"`
	TotalUnrealizedPNL decimal.Decimal `json:"total_unrealized_pnl"`
	TotalPNL           decimal.Decimal `json:"total_pnl"`
	TotalROIPercent    decimal.Decimal `json:"total_roi_percent"`
}
