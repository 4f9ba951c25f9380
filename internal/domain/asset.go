package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenAsset is a snapshot of one token held by a wallet, as reported by the
// balances endpoint. Balance is human-scaled, CurrentValue = Balance * CurrentPrice.
type TokenAsset struct {
	Ticker       string          `json:"ticker"`
	Address      string          `json:"address"`
	Balance      decimal.Decimal `json:"balance"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Native       bool            `json:"native"`
	Decimals     int             `json:"decimals"`
}

// WalletBalances is the result of a balance fetch for one wallet on one chain.
type WalletBalances struct {
	Wallet    string       `json:"wallet"`
	Chain     string       `json:"chain"`
	UpdatedAt time.Time    `json:"updated_at"`
	Assets    []TokenAsset `json:"assets"`
}
