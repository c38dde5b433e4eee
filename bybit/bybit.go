// Package bybit fetches wallet balances from the Bybit exchange, using the
// X-BAPI header signing scheme.
package bybit

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
	pathWalletBalance   = "/v5/account/wallet-balance"
	pathTransferBalance = "/v5/asset/transfer/query-account-coin-balance"
)

// Bybit API result codes that map onto the shared taxonomy.
const (
	retOK           = 0
	retInvalidKey   = 10003
	retInvalidSign  = 10004
	retTooManyVisit = 10006
)

// Adapter implements collector.Adapter for the Bybit exchange. It reads the
// unified trading wallet and the funding account.
type Adapter struct {
	cfg    collector.BybitConfig
	client *collector.Client
	now    func() time.Time
}

func New(cfg collector.BybitConfig) (*Adapter, error) {
	if !cfg.IsConfigured() {
		return nil, collector.Errf(collector.Bybit, "configure", "missing api key or secret: %w", collector.ErrConfig)
	}
	a := &Adapter{cfg: cfg, client: collector.NewClient(cfg.BaseURL), now: time.Now}
	a.client.Sign = a.sign
	return a, nil
}

func (a *Adapter) Broker() collector.Broker { return collector.Bybit }

// sign computes the X-BAPI headers. The signed payload is
// timestamp + apiKey + recvWindow + queryString per the v5 signing rules.
func (a *Adapter) sign(method, path string, query url.Values, body []byte, header http.Header) error {
	timestamp := strconv.FormatInt(a.now().UnixMilli(), 10)
	recvWindow := strconv.Itoa(a.cfg.RecvWindow)
	mac := hmac.New(sha256.New, []byte(a.cfg.APISecret))
	mac.Write([]byte(timestamp + a.cfg.APIKey + recvWindow + query.Encode()))
	header.Set("X-BAPI-API-KEY", a.cfg.APIKey)
	header.Set("X-BAPI-SIGN", hex.EncodeToString(mac.Sum(nil)))
	header.Set("X-BAPI-SIGN-TYPE", "2")
	header.Set("X-BAPI-TIMESTAMP", timestamp)
	header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	return nil
}

// --- wire shapes ---

// envelope is the common v5 response wrapper. A 200 status with a non-zero
// retCode is still a failure.
type envelope struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
}

func (e envelope) err(op string) error {
	switch e.RetCode {
	case retOK:
		return nil
	case retInvalidKey, retInvalidSign:
		return collector.Errf(collector.Bybit, op, "retCode %d %q: %w", e.RetCode, e.RetMsg, collector.ErrAuth)
	case retTooManyVisit:
		return collector.Errf(collector.Bybit, op, "retCode %d %q: %w", e.RetCode, e.RetMsg, collector.ErrRateLimited)
	default:
		return collector.Errf(collector.Bybit, op, "retCode %d %q: %w", e.RetCode, e.RetMsg, collector.ErrProtocol)
	}
}

type walletResponse struct {
	envelope
	Result struct {
		List []struct {
			AccountType string `json:"accountType"`
			Coin        []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
				Equity        string `json:"equity"`
				Locked        string `json:"locked"`
			} `json:"coin"`
		} `json:"list"`
	} `json:"result"`
}

type transferResponse struct {
	envelope
	Result struct {
		Balance []struct {
			Coin            string `json:"coin"`
			TransferBalance string `json:"transferBalance"`
			WalletBalance   string `json:"walletBalance"`
			Balance         string `json:"balance"`
		} `json:"balance"`
	} `json:"result"`
}

// FetchBalances returns the unified trading wallet and the funding account.
// Bybit exposes a single account per API key, so accountIDs is ignored.
func (a *Adapter) FetchBalances(ctx context.Context, accountIDs []string) ([]collector.Balance, error) {
	unified, err := a.unifiedBalance(ctx)
	if err != nil {
		return nil, err
	}
	funding, err := a.fundingBalance(ctx)
	if err != nil {
		return nil, err
	}
	balances := []collector.Balance{unified}
	if len(funding.Cash) > 0 {
		balances = append(balances, funding)
	}
	return balances, nil
}

func (a *Adapter) unifiedBalance(ctx context.Context) (collector.Balance, error) {
	balance := collector.Balance{Broker: collector.Bybit, AccountID: "unified"}

	var resp walletResponse
	query := url.Values{"accountType": {"UNIFIED"}}
	if err := a.client.GetJSON(ctx, pathWalletBalance, query, &resp); err != nil {
		return balance, &collector.BrokerError{Broker: collector.Bybit, Op: "get wallet balance", Err: err}
	}
	if err := resp.err("get wallet balance"); err != nil {
		return balance, err
	}
	for _, account := range resp.Result.List {
		for _, coin := range account.Coin {
			// unified accounts may report the amount only under equity
			amount := coin.WalletBalance
			if amount == "" {
				amount = coin.Equity
			}
			if err := appendCash(&balance, coin.Coin, amount, collector.Liquid); err != nil {
				return balance, err
			}
			if err := appendCash(&balance, coin.Coin, coin.Locked, collector.Locked); err != nil {
				return balance, err
			}
		}
	}
	return balance, nil
}

func (a *Adapter) fundingBalance(ctx context.Context) (collector.Balance, error) {
	balance := collector.Balance{Broker: collector.Bybit, AccountID: "funding"}

	var resp transferResponse
	query := url.Values{"accountType": {"FUND"}}
	if err := a.client.GetJSON(ctx, pathTransferBalance, query, &resp); err != nil {
		return balance, &collector.BrokerError{Broker: collector.Bybit, Op: "get funding balance", Err: err}
	}
	if err := resp.err("get funding balance"); err != nil {
		return balance, err
	}
	for _, coin := range resp.Result.Balance {
		// the funding endpoint reports the amount under transferBalance,
		// older gateways under walletBalance or balance
		amount := coin.TransferBalance
		if amount == "" {
			amount = coin.WalletBalance
		}
		if amount == "" {
			amount = coin.Balance
		}
		if err := appendCash(&balance, coin.Coin, amount, collector.Liquid); err != nil {
			return balance, err
		}
	}
	return balance, nil
}

func appendCash(balance *collector.Balance, coin, amount string, kind collector.CashKind) error {
	if amount == "" {
		return nil
	}
	money, err := collector.ParseMoney(amount, coin)
	if err != nil {
		return collector.Errf(collector.Bybit, "normalize",
			"coin %q: %v: %w", coin, err, collector.ErrProtocol)
	}
	if money.IsZero() {
		return nil
	}
	balance.Cash = append(balance.Cash, collector.CashEntry{Amount: money, Kind: kind})
	return nil
}
