// Package clients contains typed wrappers over external data APIs.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

const (
	defaultBaseURL     = "https://api.covalenthq.com/v1"
	defaultHTTPTimeout = 30 * time.Second
	erc20PageSize      = 1000
	nativeDecimals     = 18
	maxRetryTries      = 5
	pagePauseEvery     = 10
)

// CovalentConfig tunes the client. Zero values fall back to sane defaults.
type CovalentConfig struct {
	BaseURL            string
	QuoteCurrency      string
	IncludeNFTs        bool
	NoSpam             bool
	MaxPages           int
	RateLimitPause     time.Duration
	RateLimitRetryWait time.Duration
}

// CovalentClient is a typed wrapper around a Covalent-style ledger-indexing
// REST API. It produces asset snapshots and chronologically ordered transfer
// lists ready for FIFO processing.
type CovalentClient struct {
	cfg        CovalentConfig
	apiKey     string
	httpClient *http.Client
	l          *zap.Logger
}

// NewCovalentClient creates the API client.
func NewCovalentClient(apiKey string, cfg CovalentConfig, l *zap.Logger) *CovalentClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USD"
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.RateLimitRetryWait == 0 {
		cfg.RateLimitRetryWait = 60 * time.Second
	}

	return &CovalentClient{
		cfg:    cfg,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		l: l,
	}
}

type balancesEnvelope struct {
	Data         balancesData `json:"data"`
	Error        bool         `json:"error"`
	ErrorMessage string       `json:"error_message"`
	ErrorCode    int          `json:"error_code"`
}

type balancesData struct {
	Address   string        `json:"address"`
	ChainName string        `json:"chain_name"`
	UpdatedAt time.Time     `json:"updated_at"`
	Items     []balanceItem `json:"items"`
}

type balanceItem struct {
	ContractDecimals     int     `json:"contract_decimals"`
	ContractTickerSymbol string  `json:"contract_ticker_symbol"`
	ContractAddress      string  `json:"contract_address"`
	NativeToken          bool    `json:"native_token"`
	IsSpam               bool    `json:"is_spam"`
	Balance              string  `json:"balance"`
	QuoteRate            float64 `json:"quote_rate"`
	Quote                float64 `json:"quote"`
}

type transactionsEnvelope struct {
	Data         transactionsData `json:"data"`
	Error        bool             `json:"error"`
	ErrorMessage string           `json:"error_message"`
	ErrorCode    int              `json:"error_code"`
}

type transactionsData struct {
	ChainName   string            `json:"chain_name"`
	CurrentPage int               `json:"current_page"`
	Links       paginationLinks   `json:"links"`
	Items       []transactionItem `json:"items"`
}

type paginationLinks struct {
	Prev *string `json:"prev"`
	Next *string `json:"next"`
}

type transactionItem struct {
	BlockSignedAt time.Time `json:"block_signed_at"`
	TxHash        string    `json:"tx_hash"`
	FromAddress   string    `json:"from_address"`
	ToAddress     string    `json:"to_address"`
	Value         string    `json:"value"`
	ValueQuote    float64   `json:"value_quote"`
	GasQuote      float64   `json:"gas_quote"`
	Successful    bool      `json:"successful"`
}

type transfersEnvelope struct {
	Data         transfersData `json:"data"`
	Error        bool          `json:"error"`
	ErrorMessage string        `json:"error_message"`
	ErrorCode    int           `json:"error_code"`
}

type transfersData struct {
	UpdatedAt  time.Time          `json:"updated_at"`
	Items      []transferBlockTx  `json:"items"`
	Pagination *transfersPageInfo `json:"pagination"`
}

type transfersPageInfo struct {
	HasMore    bool `json:"has_more"`
	PageNumber int  `json:"page_number"`
	PageSize   int  `json:"page_size"`
}

type transferBlockTx struct {
	BlockSignedAt time.Time      `json:"block_signed_at"`
	TxHash        string         `json:"tx_hash"`
	Successful    bool           `json:"successful"`
	GasQuote      float64        `json:"gas_quote"`
	Transfers     []transferItem `json:"transfers"`
}

type transferItem struct {
	TxHash           string    `json:"tx_hash"`
	BlockSignedAt    time.Time `json:"block_signed_at"`
	FromAddress      string    `json:"from_address"`
	ToAddress        string    `json:"to_address"`
	Delta            string    `json:"delta"`
	DeltaQuote       float64   `json:"delta_quote"`
	ContractDecimals int       `json:"contract_decimals"`
}

// FetchBalances returns the current token balances for a wallet. Zero-balance
// and (when configured) spam entries are filtered out here so downstream
// calculation never sees them.
func (c *CovalentClient) FetchBalances(ctx context.Context, wallet, chain string) (domain.WalletBalances, error) {
	url := fmt.Sprintf("%s/%s/address/%s/balances_v2/?quote-currency=%s&nft=%t&no-spam=%t",
		c.cfg.BaseURL, chain, wallet, c.cfg.QuoteCurrency, c.cfg.IncludeNFTs, c.cfg.NoSpam)

	var envelope balancesEnvelope
	if err := c.getJSON(ctx, url, &envelope); err != nil {
		return domain.WalletBalances{}, errors.Wrap(err, "failed to fetch balances")
	}
	if envelope.Error {
		return domain.WalletBalances{}, fmt.Errorf("error fetching balances: %s", envelope.ErrorMessage)
	}

	assets := make([]domain.TokenAsset, 0, len(envelope.Data.Items))
	for _, item := range envelope.Data.Items {
		rawBalance, err := decimal.NewFromString(item.Balance)
		if err != nil || rawBalance.IsZero() {
			continue
		}
		if item.IsSpam && c.cfg.NoSpam {
			continue
		}

		ticker := item.ContractTickerSymbol
		if ticker == "" {
			ticker = "UNKNOWN"
		}
		assets = append(assets, domain.TokenAsset{
			Ticker:       ticker,
			Address:      item.ContractAddress,
			Balance:      domain.ScaleRawAmount(rawBalance, item.ContractDecimals),
			CurrentPrice: decimal.NewFromFloat(item.QuoteRate),
			CurrentValue: decimal.NewFromFloat(item.Quote),
			Native:       item.NativeToken,
			Decimals:     item.ContractDecimals,
		})
	}

	chainName := envelope.Data.ChainName
	if chainName == "" {
		chainName = chain
	}

	return domain.WalletBalances{
		Wallet:    wallet,
		Chain:     chainName,
		UpdatedAt: envelope.Data.UpdatedAt,
		Assets:    assets,
	}, nil
}

// FetchTokenTransfers returns every transfer of the given token for the
// wallet, sorted ascending by timestamp.
func (c *CovalentClient) FetchTokenTransfers(ctx context.Context, wallet, chain string, token domain.TokenAsset) ([]domain.TokenTransfer, error) {
	var (
		transfers []domain.TokenTransfer
		err       error
	)
	if token.Native {
		transfers, err = c.fetchNativeTransfers(ctx, wallet, chain)
	} else {
		transfers, err = c.fetchERC20Transfers(ctx, wallet, chain, token.Address)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.Before(transfers[j].Timestamp)
	})
	return transfers, nil
}

// fetchNativeTransfers walks the paginated transactions endpoint and keeps
// only value-bearing successful transactions that involve the wallet.
// Direction is inferred from both the from and to addresses.
func (c *CovalentClient) fetchNativeTransfers(ctx context.Context, wallet, chain string) ([]domain.TokenTransfer, error) {
	var transfers []domain.TokenTransfer

	for page := 0; page < c.cfg.MaxPages; page++ {
		url := fmt.Sprintf("%s/%s/address/%s/transactions_v3/page/%d/?quote-currency=%s&no-logs=true",
			c.cfg.BaseURL, chain, wallet, page, c.cfg.QuoteCurrency)

		var envelope transactionsEnvelope
		if err := c.getJSON(ctx, url, &envelope); err != nil {
			if page == 0 {
				return nil, errors.Wrap(err, "failed to fetch native transfers")
			}
			// degrade to what was gathered so far
			c.l.Warn("native transfer page failed, stopping pagination",
				zap.Int("page", page), zap.Error(err))
			break
		}
		if envelope.Error {
			if page == 0 {
				return nil, fmt.Errorf("error fetching native transfers: %s", envelope.ErrorMessage)
			}
			c.l.Warn("native transfer page failed, stopping pagination",
				zap.Int("page", page), zap.String("error", envelope.ErrorMessage))
			break
		}

		added := 0
		for _, tx := range envelope.Data.Items {
			transfer, ok := c.nativeTransferFromTx(tx, wallet)
			if !ok {
				continue
			}
			transfers = append(transfers, transfer)
			added++
		}
		c.l.Debug("fetched native transfer page",
			zap.Int("page", page), zap.Int("added", added))

		if envelope.Data.Links.Next == nil {
			break
		}
		if (page+1)%pagePauseEvery == 0 && c.cfg.RateLimitPause > 0 {
			time.Sleep(c.cfg.RateLimitPause)
		}
	}

	return transfers, nil
}

func (c *CovalentClient) nativeTransferFromTx(tx transactionItem, wallet string) (domain.TokenTransfer, bool) {
	if !tx.Successful {
		return domain.TokenTransfer{}, false
	}
	value, err := decimal.NewFromString(tx.Value)
	if err != nil || value.LessThanOrEqual(decimal.Zero) {
		return domain.TokenTransfer{}, false
	}

	isIncoming := addressEqual(tx.ToAddress, wallet)
	isOutgoing := addressEqual(tx.FromAddress, wallet)
	if !isIncoming && !isOutgoing {
		return domain.TokenTransfer{}, false
	}

	transferType := domain.TransferOut
	if isIncoming {
		transferType = domain.TransferIn
	}

	return domain.TokenTransfer{
		TxHash:     tx.TxHash,
		Timestamp:  tx.BlockSignedAt,
		Type:       transferType,
		DeltaRaw:   value,
		DeltaQuote: decimal.NewFromFloat(tx.ValueQuote),
		GasQuote:   decimal.NewFromFloat(tx.GasQuote),
		Decimals:   nativeDecimals,
	}, true
}

// fetchERC20Transfers walks the per-token paginated transfers endpoint.
func (c *CovalentClient) fetchERC20Transfers(ctx context.Context, wallet, chain, tokenAddress string) ([]domain.TokenTransfer, error) {
	var transfers []domain.TokenTransfer

	for page := 0; page < c.cfg.MaxPages; page++ {
		url := fmt.Sprintf("%s/%s/address/%s/transfers_v2/?contract-address=%s&quote-currency=%s&page-size=%d&page-number=%d",
			c.cfg.BaseURL, chain, wallet, tokenAddress, c.cfg.QuoteCurrency, erc20PageSize, page)

		var envelope transfersEnvelope
		if err := c.getJSON(ctx, url, &envelope); err != nil {
			if page == 0 {
				return nil, errors.Wrap(err, "failed to fetch token transfers")
			}
			c.l.Warn("token transfer page failed, stopping pagination",
				zap.Int("page", page), zap.Error(err))
			break
		}
		if envelope.Error {
			if page == 0 {
				return nil, fmt.Errorf("error fetching token transfers: %s", envelope.ErrorMessage)
			}
			c.l.Warn("token transfer page failed, stopping pagination",
				zap.Int("page", page), zap.String("error", envelope.ErrorMessage))
			break
		}

		added := 0
		for _, tx := range envelope.Data.Items {
			if !tx.Successful {
				continue
			}
			for _, t := range tx.Transfers {
				delta, err := decimal.NewFromString(t.Delta)
				if err != nil {
					continue
				}

				transferType := domain.TransferOut
				if addressEqual(t.ToAddress, wallet) {
					transferType = domain.TransferIn
				}

				transfers = append(transfers, domain.TokenTransfer{
					TxHash:     t.TxHash,
					Timestamp:  t.BlockSignedAt,
					Type:       transferType,
					DeltaRaw:   delta,
					DeltaQuote: decimal.NewFromFloat(t.DeltaQuote),
					GasQuote:   decimal.NewFromFloat(tx.GasQuote),
					Decimals:   t.ContractDecimals,
				})
				added++
			}
		}
		c.l.Debug("fetched token transfer page",
			zap.Int("page", page), zap.Int("added", added))

		if envelope.Data.Pagination == nil || !envelope.Data.Pagination.HasMore {
			break
		}
	}

	return transfers, nil
}

// getJSON executes a GET with bearer auth, retrying rate-limited requests with
// exponential backoff. Any other failure is permanent.
func (c *CovalentClient) getJSON(ctx context.Context, url string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RateLimitRetryWait
	policy.MaxInterval = c.cfg.RateLimitRetryWait * 10

	notify := func(err error, wait time.Duration) {
		c.l.Info("rate limited, retrying", zap.Error(err), zap.Duration("backoff", wait))
	}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limited (429)")
		case resp.StatusCode != http.StatusOK:
			return nil, backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxRetryTries),
		backoff.WithNotify(notify))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to decode API response")
	}
	return nil
}

// addressEqual compares chain addresses case-insensitively.
func addressEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
