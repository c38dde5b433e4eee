// Package binance fetches wallet and simple-earn balances from the Binance
// exchange, using HMAC-SHA256 request signing.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/etnz/collector"
)

const (
	pathAccount      = "/api/v3/account"
	pathEarnFlexible = "/sapi/v1/simple-earn/flexible/position"
	pathEarnLocked   = "/sapi/v1/simple-earn/locked/position"
	pathFunding      = "/sapi/v1/asset/get-funding-asset"
)

// Adapter implements collector.Adapter for the Binance exchange.
//
// Earn balances (flexible and locked products) are folded into the spot
// balance as Locked cash entries under the same asset code, kept separate
// from the liquid entries rather than merged. See DESIGN.md.
type Adapter struct {
	cfg    collector.BinanceConfig
	client *collector.Client
	now    func() time.Time
}

func New(cfg collector.BinanceConfig) (*Adapter, error) {
	if !cfg.IsConfigured() {
		return nil, collector.Errf(collector.Binance, "configure", "missing api key or secret: %w", collector.ErrConfig)
	}
	a := &Adapter{cfg: cfg, client: collector.NewClient(cfg.BaseURL), now: time.Now}
	a.client.Sign = a.sign
	return a, nil
}

func (a *Adapter) Broker() collector.Broker { return collector.Binance }

// sign stamps the query, signs it with the secret and sets the key header.
// The signature covers the canonical (sorted) encoding of the query, which is
// also the encoding the transport sends.
func (a *Adapter) sign(method, path string, query url.Values, body []byte, header http.Header) error {
	query.Set("timestamp", strconv.FormatInt(a.now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(a.cfg.APISecret))
	mac.Write([]byte(query.Encode()))
	query.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	header.Set("X-MBX-APIKEY", a.cfg.APIKey)
	return nil
}

// --- wire shapes ---

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

type earnResponse struct {
	Rows []struct {
		Asset       string `json:"asset"`
		TotalAmount string `json:"totalAmount"`
		Amount      string `json:"amount"`
	} `json:"rows"`
}

type fundingAsset struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
	Frozen string `json:"frozen"`
}

// FetchBalances returns the spot balance (with earn products folded in as
// locked entries) and the funding wallet balance. Binance exposes a single
// account per API key, so accountIDs is ignored.
func (a *Adapter) FetchBalances(ctx context.Context, accountIDs []string) ([]collector.Balance, error) {
	spot, err := a.spotBalance(ctx)
	if err != nil {
		return nil, err
	}
	funding, err := a.fundingBalance(ctx)
	if err != nil {
		return nil, err
	}
	balances := []collector.Balance{spot}
	if len(funding.Cash) > 0 {
		balances = append(balances, funding)
	}
	return balances, nil
}

func (a *Adapter) spotBalance(ctx context.Context) (collector.Balance, error) {
	balance := collector.Balance{Broker: collector.Binance, AccountID: "spot"}

	var account accountResponse
	if err := a.client.GetJSON(ctx, pathAccount, nil, &account); err != nil {
		return balance, &collector.BrokerError{Broker: collector.Binance, Op: "get account", Err: err}
	}
	for _, entry := range account.Balances {
		if err := appendCash(&balance, entry.Asset, entry.Free, collector.Liquid); err != nil {
			return balance, err
		}
		if err := appendCash(&balance, entry.Asset, entry.Locked, collector.Locked); err != nil {
			return balance, err
		}
	}

	for _, path := range []string{pathEarnFlexible, pathEarnLocked} {
		var earn earnResponse
		if err := a.client.GetJSON(ctx, path, nil, &earn); err != nil {
			return balance, &collector.BrokerError{Broker: collector.Binance, Op: "get earn positions", Err: err}
		}
		for _, row := range earn.Rows {
			amount := row.TotalAmount
			if amount == "" {
				amount = row.Amount
			}
			if err := appendCash(&balance, row.Asset, amount, collector.Locked); err != nil {
				return balance, err
			}
		}
	}
	return balance, nil
}

func (a *Adapter) fundingBalance(ctx context.Context) (collector.Balance, error) {
	balance := collector.Balance{Broker: collector.Binance, AccountID: "funding"}

	var assets []fundingAsset
	query := url.Values{"needBtcValuation": {"false"}}
	if err := a.client.PostForm(ctx, pathFunding, query, &assets); err != nil {
		return balance, &collector.BrokerError{Broker: collector.Binance, Op: "get funding assets", Err: err}
	}
	for _, entry := range assets {
		if err := appendCash(&balance, entry.Asset, entry.Free, collector.Liquid); err != nil {
			return balance, err
		}
		if err := appendCash(&balance, entry.Asset, entry.Locked, collector.Locked); err != nil {
			return balance, err
		}
		if err := appendCash(&balance, entry.Asset, entry.Frozen, collector.Locked); err != nil {
			return balance, err
		}
	}
	return balance, nil
}

// appendCash normalizes one raw amount into the balance, skipping zero or
// absent amounts.
func appendCash(balance *collector.Balance, asset, amount string, kind collector.CashKind) error {
	if amount == "" {
		return nil
	}
	money, err := collector.ParseMoney(amount, asset)
	if err != nil {
		return collector.Errf(collector.Binance, "normalize",
			"asset %q: %v: %w", asset, err, collector.ErrProtocol)
	}
	if money.IsZero() {
		return nil
	}
	balance.Cash = append(balance.Cash, collector.CashEntry{Amount: money, Kind: kind})
	return nil
}
