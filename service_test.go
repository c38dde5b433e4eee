package collector

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeAdapter is a deterministic Adapter double.
type fakeAdapter struct {
	broker   Broker
	balances []Balance
	err      error
	delay    time.Duration
}

func (f *fakeAdapter) Broker() Broker { return f.broker }

func (f *fakeAdapter) FetchBalances(ctx context.Context, _ []string) ([]Balance, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.balances, f.err
}

func TestService_Run_PartialFailure(t *testing.T) {
	failure := Errf(Binance, "get account", "boom: %w", ErrAuth)
	service := NewService(Options{},
		&fakeAdapter{broker: Tinkoff, balances: []Balance{securitiesFixture()}},
		&fakeAdapter{broker: Binance, err: failure},
		&fakeAdapter{broker: Bybit, balances: []Balance{{Broker: Bybit, AccountID: "unified"}}},
	)

	snapshot, failures, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(snapshot.Balances()) != 2 {
		t.Errorf("got %d balances, want 2", len(snapshot.Balances()))
	}
	if len(failures) != 1 || !errors.Is(failures[Binance], ErrAuth) {
		t.Errorf("failures = %v, want auth failure for binance", failures)
	}
}

func TestService_Run_Strict(t *testing.T) {
	service := NewService(Options{Strict: true},
		&fakeAdapter{broker: Tinkoff, balances: []Balance{securitiesFixture()}},
		&fakeAdapter{broker: Binance, err: Errf(Binance, "get account", "boom: %w", ErrAuth)},
	)

	snapshot, failures, err := service.Run(context.Background())
	if err == nil {
		t.Fatal("Run() in strict mode did not fail")
	}
	if snapshot != nil {
		t.Error("Run() in strict mode returned a snapshot")
	}
	if len(failures) != 1 {
		t.Errorf("failures = %v, want a single entry for binance", failures)
	}
}

func TestService_Run_OrderDeterministic(t *testing.T) {
	// the slowest adapter is configured first, completion order is reversed
	service := NewService(Options{},
		&fakeAdapter{broker: Tinkoff, delay: 50 * time.Millisecond, balances: []Balance{{Broker: Tinkoff, AccountID: "acc-1"}}},
		&fakeAdapter{broker: Binance, balances: []Balance{{Broker: Binance, AccountID: "spot"}}},
	)

	snapshot, _, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	balances := snapshot.Balances()
	if len(balances) != 2 || balances[0].Broker != Tinkoff || balances[1].Broker != Binance {
		t.Errorf("balances are not in configuration order: %v", balances)
	}
}

func TestService_Run_TimeoutCancelsPending(t *testing.T) {
	service := NewService(Options{Timeout: 50 * time.Millisecond},
		&fakeAdapter{broker: Tinkoff, balances: []Balance{{Broker: Tinkoff, AccountID: "acc-1"}}},
		&fakeAdapter{broker: IBGateway, delay: 5 * time.Second},
	)

	start := time.Now()
	snapshot, failures, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Run() hung for %v instead of honoring the timeout", elapsed)
	}
	if len(snapshot.Balances()) != 1 {
		t.Errorf("got %d balances, want the one from the fast adapter", len(snapshot.Balances()))
	}
	if !IsTransient(failures[IBGateway]) {
		t.Errorf("timed-out adapter error = %v, want a transient error", failures[IBGateway])
	}
}

func TestService_Brokers(t *testing.T) {
	service := NewService(Options{},
		&fakeAdapter{broker: Tinkoff},
		&fakeAdapter{broker: IBGateway},
	)
	got := service.Brokers()
	if len(got) != 2 || got[0] != Tinkoff || got[1] != IBGateway {
		t.Errorf("Brokers() = %v, want [tinkoff ibkr]", got)
	}
}
