// Package ibgw fetches balances from the international brokerage through its
// local gateway. Unlike the REST brokers, the gateway speaks a stateful
// socket protocol: login handshake, asynchronous callback frames, explicit
// logout. The session lifecycle is modeled as an explicit state machine (see
// session.go).
package ibgw

import (
	"context"
	"slices"
	"time"

	"github.com/etnz/collector"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultAwaitTimeout     = 10 * time.Second
)

// Adapter implements collector.Adapter for the session-based brokerage.
type Adapter struct {
	cfg collector.IBGatewayConfig

	// HandshakeTimeout bounds the websocket dial, AwaitTimeout bounds each
	// wait for a callback frame. Overridable in tests.
	HandshakeTimeout time.Duration
	AwaitTimeout     time.Duration

	// lastSession is kept for observability of the teardown guarantee.
	lastSession *session
}

func New(cfg collector.IBGatewayConfig) (*Adapter, error) {
	if !cfg.IsConfigured() {
		return nil, collector.Errf(collector.IBGateway, "configure", "missing gateway host or port: %w", collector.ErrConfig)
	}
	return &Adapter{
		cfg:              cfg,
		HandshakeTimeout: defaultHandshakeTimeout,
		AwaitTimeout:     defaultAwaitTimeout,
	}, nil
}

func (a *Adapter) Broker() collector.Broker { return collector.IBGateway }

// FetchBalances establishes a session, logs in, requests the cash ledger and
// positions of every targeted account, and tears the session down. Teardown
// runs on every exit path, including timeouts and cancellation.
func (a *Adapter) FetchBalances(ctx context.Context, accountIDs []string) ([]collector.Balance, error) {
	ids := accountIDs
	if len(ids) == 0 {
		ids = a.cfg.AccountIDs
	}

	s, err := dial(ctx, a.cfg.Host, a.cfg.Port, a.HandshakeTimeout)
	if err != nil {
		return nil, &collector.BrokerError{Broker: collector.IBGateway, Op: "connect", Err: err}
	}
	a.lastSession = s
	defer s.teardown()

	accounts, err := a.login(ctx, s)
	if err != nil {
		return nil, err
	}
	// An explicit account-id list filters the gateway's account set.
	if len(ids) > 0 {
		var filtered []string
		for _, id := range accounts {
			if slices.Contains(ids, id) {
				filtered = append(filtered, id)
			}
		}
		accounts = filtered
	}

	var balances []collector.Balance
	for _, account := range accounts {
		balance, err := a.accountBalance(ctx, s, account)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

// login sends the login frame and awaits the authenticated callback carrying
// the account list.
func (a *Adapter) login(ctx context.Context, s *session) ([]string, error) {
	if err := s.send(frame{Type: "login", ClientID: a.cfg.ClientID}); err != nil {
		return nil, &collector.BrokerError{Broker: collector.IBGateway, Op: "login", Err: err}
	}
	reply, err := s.await(ctx, a.AwaitTimeout)
	if err != nil {
		return nil, &collector.BrokerError{Broker: collector.IBGateway, Op: "login", Err: err}
	}
	switch reply.Type {
	case "authenticated":
		return reply.Accounts, nil
	case "error":
		return nil, collector.Errf(collector.IBGateway, "login", "gateway rejected client %q: %s: %w",
			a.cfg.ClientID, reply.Error, collector.ErrAuth)
	default:
		return nil, collector.Errf(collector.IBGateway, "login", "unexpected %q frame: %w",
			reply.Type, collector.ErrProtocol)
	}
}

// accountBalance subscribes to one account and awaits its ledger and
// positions callbacks, in whichever order the gateway sends them.
func (a *Adapter) accountBalance(ctx context.Context, s *session, accountID string) (collector.Balance, error) {
	balance := collector.Balance{Broker: collector.IBGateway, AccountID: accountID}
	if err := s.send(frame{Type: "subscribe", AccountID: accountID}); err != nil {
		return balance, &collector.BrokerError{Broker: collector.IBGateway, Op: "subscribe", Err: err}
	}

	var gotLedger, gotPositions bool
	for !gotLedger || !gotPositions {
		reply, err := s.await(ctx, a.AwaitTimeout)
		if err != nil {
			return balance, &collector.BrokerError{Broker: collector.IBGateway, Op: "await data", Err: err}
		}
		switch reply.Type {
		case "ledger":
			for _, entry := range reply.Ledger {
				cash := entry.CashBalance
				if cash == "" {
					cash = entry.SettledCash
				}
				money, err := collector.ParseMoney(cash, entry.Currency)
				if err != nil {
					return balance, collector.Errf(collector.IBGateway, "await data",
						"ledger entry %q for account %q: %v: %w", entry.Currency, accountID, err, collector.ErrProtocol)
				}
				if money.IsZero() {
					continue
				}
				balance.Cash = append(balance.Cash, collector.CashEntry{Amount: money, Kind: collector.Liquid})
			}
			gotLedger = true
		case "positions":
			for _, entry := range reply.Positions {
				position, err := a.position(entry, accountID)
				if err != nil {
					return balance, err
				}
				if position != nil {
					balance.Positions = append(balance.Positions, *position)
				}
			}
			gotPositions = true
		case "error":
			return balance, collector.Errf(collector.IBGateway, "await data",
				"gateway error for account %q: %s: %w", accountID, reply.Error, collector.ErrProtocol)
		default:
			// heartbeat or unrelated callback, keep waiting
		}
	}
	return balance, nil
}

func (a *Adapter) position(entry positionEntry, accountID string) (*collector.Position, error) {
	quantity, err := collector.ParseQuantity(entry.Position)
	if err != nil {
		return nil, collector.Errf(collector.IBGateway, "await data",
			"position %q for account %q has a malformed quantity %q: %w",
			entry.Symbol, accountID, entry.Position, collector.ErrProtocol)
	}
	if quantity.IsZero() {
		return nil, nil
	}
	position := &collector.Position{
		Symbol:   entry.Symbol,
		Quantity: quantity,
		Currency: entry.Currency,
	}
	if entry.MarketValue != "" {
		value, err := collector.ParseMoney(entry.MarketValue, entry.Currency)
		if err != nil {
			return nil, collector.Errf(collector.IBGateway, "await data",
				"position %q for account %q has a malformed market value: %v: %w",
				entry.Symbol, accountID, err, collector.ErrProtocol)
		}
		position.MarketValue = &value
	}
	return position, nil
}

// SessionState reports the state of the most recent session, Disconnected
// when none was ever opened. This is how callers (and tests) verify the
// teardown guarantee.
func (a *Adapter) SessionState() State {
	if a.lastSession == nil {
		return Disconnected
	}
	return a.lastSession.State()
}
