package collector

import (
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the combined result of one aggregation run. It is immutable
// after construction; totals are computed once and never recomputed.
type Snapshot struct {
	on       time.Time
	balances []Balance
	totals   map[string]decimal.Decimal
}

// NewSnapshot assembles balances into a snapshot. It fails fast on any cash
// entry or valued position missing a currency code rather than silently
// summing unattributed amounts.
//
// Totals group cash (liquid and locked alike) plus position market values by
// currency code. Currencies are deliberately kept separate: no exchange rate
// is guessed here.
func NewSnapshot(on time.Time, balances []Balance) (*Snapshot, error) {
	totals := make(map[string]decimal.Decimal)
	for _, b := range balances {
		for _, entry := range b.Cash {
			code := entry.Amount.Currency()
			if code == "" {
				return nil, Errf(b.Broker, "snapshot", "cash entry in account %q has no currency code", b.AccountID)
			}
			totals[code] = totals[code].Add(entry.Amount.Amount())
		}
		for _, pos := range b.Positions {
			if pos.MarketValue == nil {
				continue
			}
			code := pos.MarketValue.Currency()
			if code == "" {
				return nil, Errf(b.Broker, "snapshot", "market value of %q has no currency code", pos.Symbol)
			}
			totals[code] = totals[code].Add(pos.MarketValue.Amount())
		}
	}
	return &Snapshot{on: on, balances: balances, totals: totals}, nil
}

// On returns the time of the snapshot.
func (s *Snapshot) On() time.Time { return s.on }

// Balances returns the balances in adapter configuration order. The returned
// slice is a copy, the snapshot does not change after construction.
func (s *Snapshot) Balances() []Balance { return slices.Clone(s.balances) }

// Total returns the summed amount for one currency code.
func (s *Snapshot) Total(currency string) decimal.Decimal { return s.totals[currency] }

// Currencies returns the currency codes present in the totals, sorted.
func (s *Snapshot) Currencies() []string {
	codes := make([]string, 0, len(s.totals))
	for code := range s.totals {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("time", s.on.UTC().Format(time.RFC3339))
	w.Append("balances", s.balances)
	totals := make(map[string]decimal.Decimal, len(s.totals))
	for code, total := range s.totals {
		totals[code] = total
	}
	w.Append("totalsByCurrency", totals)
	return w.MarshalJSON()
}
