package collector

import "fmt"

// Broker identifies one of the supported brokers.
type Broker int

const (
	// Tinkoff is the securities broker, authenticated with a static token.
	Tinkoff Broker = iota
	// Binance is a crypto exchange, authenticated with HMAC request signing.
	Binance
	// Bybit is a crypto exchange, authenticated with HMAC request signing.
	Bybit
	// IBGateway is the international brokerage, reached through a stateful
	// gateway session rather than signed REST calls.
	IBGateway
)

func (b Broker) String() string {
	switch b {
	case Tinkoff:
		return "tinkoff"
	case Binance:
		return "binance"
	case Bybit:
		return "bybit"
	case IBGateway:
		return "ibkr"
	default:
		return "unknown"
	}
}

// ParseBroker parses a string into a Broker.
func ParseBroker(s string) (Broker, error) {
	switch s {
	case "tinkoff":
		return Tinkoff, nil
	case "binance":
		return Binance, nil
	case "bybit":
		return Bybit, nil
	case "ibkr":
		return IBGateway, nil
	default:
		return 0, fmt.Errorf("unknown broker: %q", s)
	}
}

func (b Broker) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Broker) UnmarshalText(text []byte) error {
	parsed, err := ParseBroker(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// CashKind distinguishes freely available cash from value locked in yield or
// savings products. Locked entries are kept separate from liquid ones instead
// of being merged, so the distinction survives aggregation; both kinds count
// toward currency totals.
type CashKind int

const (
	Liquid CashKind = iota
	Locked
)

func (k CashKind) String() string {
	switch k {
	case Liquid:
		return "liquid"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

func (k CashKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// CashEntry is one cash amount held in a broker account.
type CashEntry struct {
	Amount Money
	Kind   CashKind
}

func (e CashEntry) Equal(o CashEntry) bool {
	return e.Kind == o.Kind && e.Amount.Equal(o.Amount)
}

// Position is a held instrument or asset. MarketValue is nil when the broker
// does not expose a live valuation.
type Position struct {
	Symbol      string
	Quantity    Quantity
	Currency    string
	MarketValue *Money
}

func (p Position) Equal(o Position) bool {
	if p.Symbol != o.Symbol || p.Currency != o.Currency || !p.Quantity.Equal(o.Quantity) {
		return false
	}
	if (p.MarketValue == nil) != (o.MarketValue == nil) {
		return false
	}
	return p.MarketValue == nil || p.MarketValue.Equal(*o.MarketValue)
}

// Balance is the normalized cash and positions of one (broker, account) pair.
type Balance struct {
	Broker    Broker
	AccountID string
	Cash      []CashEntry
	Positions []Position
}

func (b Balance) Equal(o Balance) bool {
	if b.Broker != o.Broker || b.AccountID != o.AccountID ||
		len(b.Cash) != len(o.Cash) || len(b.Positions) != len(o.Positions) {
		return false
	}
	for i := range b.Cash {
		if !b.Cash[i].Equal(o.Cash[i]) {
			return false
		}
	}
	for i := range b.Positions {
		if !b.Positions[i].Equal(o.Positions[i]) {
			return false
		}
	}
	return true
}

func (e CashEntry) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("kind", e.Kind.String())
	w.Append("amount", e.Amount)
	return w.MarshalJSON()
}

func (p Position) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbol", p.Symbol)
	w.Append("quantity", p.Quantity)
	w.Optional("currency", p.Currency)
	if p.MarketValue != nil {
		w.Append("marketValue", *p.MarketValue)
	}
	return w.MarshalJSON()
}

func (b Balance) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("broker", b.Broker.String())
	w.Append("accountId", b.AccountID)
	w.Append("cash", b.Cash)
	w.Optional("positions", b.Positions)
	return w.MarshalJSON()
}
