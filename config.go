package collector

import (
	"os"
	"strconv"
	"strings"
)

// Per-broker settings. Values come from the environment (the entrypoint loads
// a .env file first); adapters receive their config explicitly, there is no
// ambient lookup inside adapter logic.

// TinkoffConfig configures the securities broker adapter.
type TinkoffConfig struct {
	Token   string
	BaseURL string
	// AccountIDs restricts the fetch to these accounts. When empty the
	// adapter discovers all open accounts visible to the token.
	AccountIDs []string
}

func (c TinkoffConfig) IsConfigured() bool { return c.Token != "" }

// BinanceConfig configures the Binance exchange adapter.
type BinanceConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

func (c BinanceConfig) IsConfigured() bool { return c.APIKey != "" && c.APISecret != "" }

// BybitConfig configures the Bybit exchange adapter.
type BybitConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	// RecvWindow is the request validity window in milliseconds, part of the
	// signed payload.
	RecvWindow int
}

func (c BybitConfig) IsConfigured() bool { return c.APIKey != "" && c.APISecret != "" }

// IBGatewayConfig configures the session-based international brokerage
// adapter. The gateway itself holds the brokerage credentials; the adapter
// only needs to reach it and identify itself.
type IBGatewayConfig struct {
	Host       string
	Port       int
	ClientID   string
	AccountIDs []string
}

func (c IBGatewayConfig) IsConfigured() bool { return c.Host != "" && c.Port != 0 }

// Settings holds the configuration of every known broker. A broker with
// incomplete settings is simply not aggregated.
type Settings struct {
	Tinkoff   TinkoffConfig
	Binance   BinanceConfig
	Bybit     BybitConfig
	IBGateway IBGatewayConfig
}

// LoadSettings reads per-broker credentials and connection parameters from
// the environment.
func LoadSettings() Settings {
	return Settings{
		Tinkoff: TinkoffConfig{
			Token:      os.Getenv("TINKOFF_TOKEN"),
			BaseURL:    envOr("TINKOFF_BASE_URL", "https://invest-public-api.tinkoff.ru/rest"),
			AccountIDs: splitIDs(os.Getenv("TINKOFF_ACCOUNT_IDS")),
		},
		Binance: BinanceConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			APISecret: os.Getenv("BINANCE_API_SECRET"),
			BaseURL:   envOr("BINANCE_BASE_URL", "https://api.binance.com"),
		},
		Bybit: BybitConfig{
			APIKey:     os.Getenv("BYBIT_API_KEY"),
			APISecret:  os.Getenv("BYBIT_API_SECRET"),
			BaseURL:    envOr("BYBIT_BASE_URL", "https://api.bybit.com"),
			RecvWindow: envInt("BYBIT_RECV_WINDOW", 5000),
		},
		IBGateway: IBGatewayConfig{
			Host:       os.Getenv("IB_GATEWAY_HOST"),
			Port:       envInt("IB_GATEWAY_PORT", 0),
			ClientID:   envOr("IB_CLIENT_ID", "psc"),
			AccountIDs: splitIDs(os.Getenv("IB_ACCOUNT_IDS")),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// splitIDs parses a comma-separated account-id list from the environment.
func splitIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
