package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultQuoteCurrency      = "USD"
	defaultChain              = "eth-mainnet"
	defaultMaxPages           = 1000
	defaultPriceTolerance     = "0.01"
	defaultRateLimitPause     = 1 * time.Second
	defaultRateLimitRetryWait = 60 * time.Second
	apiKeyPrefix              = "cqt_"
	walletAddressLen          = 42
)

// SupportedChains lists the networks the indexing API accepts.
var SupportedChains = []string{
	"eth-mainnet",
	"matic-mainnet",
	"bsc-mainnet",
	"avalanche-mainnet",
	"arbitrum-mainnet",
	"optimism-mainnet",
	"base-mainnet",
	"polygon-zkevm-mainnet",
}

// Config holds everything the calculator needs: API access, the wallets and
// chains to analyze, fetch behavior and the reconciliation tolerance.
type Config struct {
	APIKey             string
	QuoteCurrency      string
	Chains             []string
	Wallets            []string
	IncludeNFTs        bool
	NoSpam             bool
	Verbose            bool
	MaxPages           int
	PriceTolerance     decimal.Decimal
	RateLimitPause     time.Duration
	RateLimitRetryWait time.Duration
	OutDir             string
}

type configTmp struct {
	APIKey             string        `yaml:"api_key"`
	QuoteCurrency      string        `yaml:"quote_currency"`
	Chains             []string      `yaml:"chains"`
	Wallets            []string      `yaml:"wallets"`
	IncludeNFTs        bool          `yaml:"include_nfts"`
	NoSpam             *bool         `yaml:"no_spam"`
	Verbose            bool          `yaml:"verbose"`
	MaxPages           int           `yaml:"max_pages,omitempty"`
	PriceToleranceStr  string        `yaml:"price_tolerance,omitempty"`
	RateLimitPause     time.Duration `yaml:"rate_limit_pause,omitempty"`
	RateLimitRetryWait time.Duration `yaml:"rate_limit_retry_wait,omitempty"`
	OutDir             string        `yaml:"out_dir,omitempty"`
}

// Get loads configuration from the yaml file given via -config, falling back
// to environment variables when no file is provided.
func Get() (Config, error) {
	path := flag.String("config", "", "path to yaml config")
	flag.Parse()

	if *path != "" {
		return getYaml(*path)
	}
	return fromEnv()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIKey:             tmp.APIKey,
		QuoteCurrency:      tmp.QuoteCurrency,
		Chains:             tmp.Chains,
		Wallets:            tmp.Wallets,
		IncludeNFTs:        tmp.IncludeNFTs,
		NoSpam:             true,
		Verbose:            tmp.Verbose,
		MaxPages:           tmp.MaxPages,
		RateLimitPause:     tmp.RateLimitPause,
		RateLimitRetryWait: tmp.RateLimitRetryWait,
		OutDir:             tmp.OutDir,
	}
	if tmp.NoSpam != nil {
		cfg.NoSpam = *tmp.NoSpam
	}

	if tmp.PriceToleranceStr == "" {
		tmp.PriceToleranceStr = defaultPriceTolerance
	}
	tolerance, err := decimal.NewFromString(tmp.PriceToleranceStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'price_tolerance' param in yaml config (must be a decimal), error: %w", err)
	}
	cfg.PriceTolerance = tolerance

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fromEnv builds the config from environment variables:
// COVALENT_API_KEY (required), PNL_CHAINS, PNL_WALLETS (comma-separated),
// PNL_QUOTE_CURRENCY, PNL_INCLUDE_NFTS, PNL_NO_SPAM, PNL_VERBOSE.
func fromEnv() (Config, error) {
	apiKey := os.Getenv("COVALENT_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("COVALENT_API_KEY environment variable is required")
	}

	cfg := Config{
		APIKey:         apiKey,
		QuoteCurrency:  os.Getenv("PNL_QUOTE_CURRENCY"),
		Chains:         splitList(os.Getenv("PNL_CHAINS")),
		Wallets:        splitList(os.Getenv("PNL_WALLETS")),
		IncludeNFTs:    strings.EqualFold(os.Getenv("PNL_INCLUDE_NFTS"), "true"),
		NoSpam:         os.Getenv("PNL_NO_SPAM") == "" || strings.EqualFold(os.Getenv("PNL_NO_SPAM"), "true"),
		Verbose:        strings.EqualFold(os.Getenv("PNL_VERBOSE"), "true"),
		PriceTolerance: decimal.RequireFromString(defaultPriceTolerance),
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = defaultQuoteCurrency
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = []string{defaultChain}
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.RateLimitPause == 0 {
		cfg.RateLimitPause = defaultRateLimitPause
	}
	if cfg.RateLimitRetryWait == 0 {
		cfg.RateLimitRetryWait = defaultRateLimitRetryWait
	}
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if !strings.HasPrefix(c.APIKey, apiKeyPrefix) {
		return fmt.Errorf("invalid API key format (should start with %q)", apiKeyPrefix)
	}
	if len(c.Wallets) == 0 {
		return fmt.Errorf("at least one wallet address is required")
	}
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain is required")
	}
	if c.PriceTolerance.IsNegative() || c.PriceTolerance.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("price_tolerance must be between 0 and 1, got %s", c.PriceTolerance.String())
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1, got %d", c.MaxPages)
	}
	for _, w := range c.Wallets {
		if !strings.HasPrefix(w, "0x") || len(w) != walletAddressLen {
			return fmt.Errorf("invalid wallet address format: %s", w)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
