package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferType marks the direction of a transfer relative to the wallet.
type TransferType string

const (
	TransferIn  TransferType = "IN"
	TransferOut TransferType = "OUT"
)

// Validate checks that the transfer type is one of the known values.
func (t TransferType) Validate() error {
	switch t {
	case TransferIn, TransferOut:
		return nil
	}
	return fmt.Errorf("unknown transfer type %q", string(t))
}

// TokenTransfer is a single ledger event affecting one token of a wallet.
//
// DeltaRaw is the smallest-unit magnitude of the transfer; its sign carries no
// meaning (direction is Type), consumers must take the absolute value.
// DeltaQuote is the quote-currency value of the magnitude at transfer time and
// may be zero, meaning the price is unknown.
type TokenTransfer struct {
	TxHash     string          `json:"tx_hash"`
	Timestamp  time.Time       `json:"timestamp"`
	Type       TransferType    `json:"transfer_type"`
	DeltaRaw   decimal.Decimal `json:"delta_raw"`
	DeltaQuote decimal.Decimal `json:"delta_quote"`
	GasQuote   decimal.Decimal `json:"gas_quote"`
	Decimals   int             `json:"decimals"`
}

// Validate reports structural defects that make the record unusable.
// Monetary anomalies (zero quote, zero quantity) are not errors, they are
// degraded during calculation.
func (t TokenTransfer) Validate() error {
	if t.Timestamp.IsZero() {
		return fmt.Errorf("transfer %s has no timestamp", t.TxHash)
	}
	if err := t.Type.Validate(); err != nil {
		return fmt.Errorf("transfer %s: %w", t.TxHash, err)
	}
	if t.Decimals < 0 {
		return fmt.Errorf("transfer %s has negative decimals %d", t.TxHash, t.Decimals)
	}
	return nil
}

// Quantity returns the human-scaled magnitude of the transfer.
func (t TokenTransfer) Quantity() decimal.Decimal {
	return ScaleRawAmount(t.DeltaRaw, t.Decimals)
}
