package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Adapter is the capability set every broker adapter implements. An adapter
// returns one Balance per (broker, account) pair; passing nil accountIDs lets
// the adapter use its configured accounts, or discover them.
//
// Adapters share no state with each other, so the Service is free to invoke
// them concurrently.
type Adapter interface {
	Broker() Broker
	FetchBalances(ctx context.Context, accountIDs []string) ([]Balance, error)
}

// Options control one aggregation run.
type Options struct {
	// Strict aborts the whole run on any adapter failure instead of
	// collecting partial results.
	Strict bool
	// Timeout bounds the whole run. Adapters still pending when it expires
	// are cancelled and reported as transient failures.
	Timeout time.Duration
}

// Service invokes the configured adapters and assembles their balances into
// one Snapshot per run.
type Service struct {
	adapters []Adapter
	opts     Options
}

// NewService builds a service over the given adapters. The adapter order is
// the output order of the snapshot's balances.
func NewService(opts Options, adapters ...Adapter) *Service {
	return &Service{adapters: adapters, opts: opts}
}

// Brokers returns the configured brokers in invocation order.
func (s *Service) Brokers() []Broker {
	brokers := make([]Broker, len(s.adapters))
	for i, a := range s.adapters {
		brokers[i] = a.Broker()
	}
	return brokers
}

// Run performs one aggregation. Adapters are invoked concurrently and results
// are reassembled in configuration order, so the output is deterministic
// regardless of completion order.
//
// In non-strict mode a failed broker does not abort the run: its error is
// reported in the failures map alongside a snapshot built from the brokers
// that succeeded. In strict mode any adapter failure aborts the run and no
// snapshot is returned.
func (s *Service) Run(ctx context.Context) (*Snapshot, map[Broker]error, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	type result struct {
		balances []Balance
		err      error
	}
	results := make([]result, len(s.adapters))
	var wg sync.WaitGroup
	for i, a := range s.adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			balances, err := a.FetchBalances(ctx, nil)
			results[i] = result{balances: balances, err: err}
		}(i, a)
	}
	wg.Wait()

	failures := make(map[Broker]error)
	var balances []Balance
	for i, a := range s.adapters {
		if err := results[i].err; err != nil {
			// Adapters cancelled by the run timeout may report the bare
			// context error; that is a transient condition for the caller.
			if (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) && !IsTransient(err) {
				err = &BrokerError{Broker: a.Broker(), Op: "fetch balances", Err: fmt.Errorf("%v: %w", err, ErrTransient)}
			}
			failures[a.Broker()] = err
			continue
		}
		balances = append(balances, results[i].balances...)
	}

	if s.opts.Strict && len(failures) > 0 {
		return nil, failures, fmt.Errorf("strict mode: %d of %d brokers failed", len(failures), len(s.adapters))
	}
	snapshot, err := NewSnapshot(time.Now(), balances)
	if err != nil {
		return nil, failures, err
	}
	return snapshot, failures, nil
}
