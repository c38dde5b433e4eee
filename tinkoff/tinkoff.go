// Package tinkoff fetches balances and positions from the Tinkoff Invest
// REST API, authenticated with a static bearer token.
package tinkoff

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/etnz/collector"
	"github.com/shopspring/decimal"
)

const (
	pathAccounts  = "/tinkoff.public.invest.api.contract.v1.UsersService/GetAccounts"
	pathPositions = "/tinkoff.public.invest.api.contract.v1.OperationsService/GetPositions"
	pathPortfolio = "/tinkoff.public.invest.api.contract.v1.OperationsService/GetPortfolio"
)

// Adapter implements collector.Adapter for the securities broker.
type Adapter struct {
	cfg    collector.TinkoffConfig
	client *collector.Client
}

// New validates the configuration and builds the adapter. No network call is
// made here.
func New(cfg collector.TinkoffConfig) (*Adapter, error) {
	if !cfg.IsConfigured() {
		return nil, collector.Errf(collector.Tinkoff, "configure", "missing token: %w", collector.ErrConfig)
	}
	client := collector.NewClient(cfg.BaseURL)
	token := cfg.Token
	client.Sign = func(method, path string, query url.Values, body []byte, header http.Header) error {
		header.Set("Authorization", "Bearer "+token)
		return nil
	}
	return &Adapter{cfg: cfg, client: client}, nil
}

func (a *Adapter) Broker() collector.Broker { return collector.Tinkoff }

// --- wire shapes, decoded on receipt and never passed further ---

// quotation is the REST transcription of the API's units+nano number: units
// is a stringified int64, nano counts billionths of a unit.
type quotation struct {
	Units string `json:"units"`
	Nano  int64  `json:"nano"`
}

func (q quotation) decimal() (decimal.Decimal, error) {
	s := q.Units
	if s == "" {
		s = "0"
	}
	units, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(units).Add(decimal.New(q.Nano, -9)), nil
}

type moneyValue struct {
	Currency string `json:"currency"`
	Units    string `json:"units"`
	Nano     int64  `json:"nano"`
}

func (m moneyValue) money() (collector.Money, error) {
	value, err := quotation{Units: m.Units, Nano: m.Nano}.decimal()
	if err != nil {
		return collector.Money{}, err
	}
	return collector.ParseMoney(value.String(), m.Currency)
}

type accountsResponse struct {
	Accounts []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"accounts"`
}

type positionsResponse struct {
	Money   []moneyValue `json:"money"`
	Blocked []moneyValue `json:"blocked"`
}

type portfolioResponse struct {
	Positions []struct {
		Figi         string     `json:"figi"`
		Quantity     quotation  `json:"quantity"`
		CurrentPrice moneyValue `json:"currentPrice"`
	} `json:"positions"`
}

// FetchBalances returns one Balance per account. When no account ids are
// given (neither here nor in the configuration), all open accounts visible to
// the token are discovered and targeted.
func (a *Adapter) FetchBalances(ctx context.Context, accountIDs []string) ([]collector.Balance, error) {
	ids := accountIDs
	if len(ids) == 0 {
		ids = a.cfg.AccountIDs
	}
	if len(ids) == 0 {
		discovered, err := a.discoverAccounts(ctx)
		if err != nil {
			return nil, err
		}
		ids = discovered
	}

	var balances []collector.Balance
	for _, id := range ids {
		balance, err := a.accountBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

func (a *Adapter) discoverAccounts(ctx context.Context) ([]string, error) {
	var resp accountsResponse
	if err := a.client.PostJSON(ctx, pathAccounts, struct{}{}, &resp); err != nil {
		return nil, &collector.BrokerError{Broker: collector.Tinkoff, Op: "discover accounts", Err: err}
	}
	var ids []string
	for _, account := range resp.Accounts {
		if account.Status == "ACCOUNT_STATUS_OPEN" && account.ID != "" {
			ids = append(ids, account.ID)
		}
	}
	return ids, nil
}

func (a *Adapter) accountBalance(ctx context.Context, accountID string) (collector.Balance, error) {
	balance := collector.Balance{Broker: collector.Tinkoff, AccountID: accountID}
	payload := struct {
		AccountID string `json:"accountId"`
	}{AccountID: accountID}

	var positions positionsResponse
	if err := a.client.PostJSON(ctx, pathPositions, payload, &positions); err != nil {
		return balance, &collector.BrokerError{Broker: collector.Tinkoff, Op: "get positions", Err: err}
	}
	for _, raw := range positions.Money {
		entry, err := cashEntry(raw, collector.Liquid)
		if err != nil {
			return balance, err
		}
		if entry != nil {
			balance.Cash = append(balance.Cash, *entry)
		}
	}
	for _, raw := range positions.Blocked {
		entry, err := cashEntry(raw, collector.Locked)
		if err != nil {
			return balance, err
		}
		if entry != nil {
			balance.Cash = append(balance.Cash, *entry)
		}
	}

	var portfolio portfolioResponse
	if err := a.client.PostJSON(ctx, pathPortfolio, payload, &portfolio); err != nil {
		return balance, &collector.BrokerError{Broker: collector.Tinkoff, Op: "get portfolio", Err: err}
	}
	for _, raw := range portfolio.Positions {
		quantity, err := raw.Quantity.decimal()
		if err != nil {
			return balance, collector.Errf(collector.Tinkoff, "get portfolio",
				"position %q has a malformed quantity: %v: %w", raw.Figi, err, collector.ErrProtocol)
		}
		if quantity.IsZero() {
			continue
		}
		price, err := raw.CurrentPrice.money()
		if err != nil {
			return balance, collector.Errf(collector.Tinkoff, "get portfolio",
				"position %q has a malformed currentPrice: %v: %w", raw.Figi, err, collector.ErrProtocol)
		}
		value := price.Mul(collector.Q(quantity))
		balance.Positions = append(balance.Positions, collector.Position{
			Symbol:      raw.Figi,
			Quantity:    collector.Q(quantity),
			Currency:    price.Currency(),
			MarketValue: &value,
		})
	}
	return balance, nil
}

// cashEntry normalizes one money block, skipping zero amounts.
func cashEntry(raw moneyValue, kind collector.CashKind) (*collector.CashEntry, error) {
	amount, err := raw.money()
	if err != nil {
		return nil, collector.Errf(collector.Tinkoff, "get positions",
			"money block %q is malformed: %v: %w", raw.Currency, err, collector.ErrProtocol)
	}
	if amount.IsZero() {
		return nil, nil
	}
	return &collector.CashEntry{Amount: amount, Kind: kind}, nil
}
