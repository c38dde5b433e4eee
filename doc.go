// Package collector aggregates account balances and positions from
// heterogeneous brokers behind one query interface.
//
// Each broker adapter (tinkoff, binance, bybit, ibgw) authenticates against
// its broker, fetches raw balance data, and normalizes it into the shared
// Balance model. The Service fans out over the configured adapters and
// assembles their results into one immutable Snapshot per run, keeping
// per-currency totals separate rather than guessing exchange rates.
//
// All amounts use exact decimal arithmetic; nothing is persisted.
package collector
