package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/etnz/collector"
	"github.com/etnz/collector/binance"
	"github.com/etnz/collector/bybit"
	"github.com/etnz/collector/ibgw"
	"github.com/etnz/collector/tinkoff"
)

// buildService assembles an adapter for every configured broker, in the
// canonical order tinkoff, binance, bybit, ibkr. That order is also the
// output order of the snapshot.
func buildService(strict bool, timeout time.Duration) (*collector.Service, error) {
	settings := collector.LoadSettings()
	var adapters []collector.Adapter

	if settings.Tinkoff.IsConfigured() {
		a, err := tinkoff.New(settings.Tinkoff)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	} else {
		log.Println("skipping tinkoff: no token configured")
	}

	if settings.Binance.IsConfigured() {
		a, err := binance.New(settings.Binance)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	} else {
		log.Println("skipping binance: missing credentials")
	}

	if settings.Bybit.IsConfigured() {
		a, err := bybit.New(settings.Bybit)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	} else {
		log.Println("skipping bybit: missing credentials")
	}

	if settings.IBGateway.IsConfigured() {
		a, err := ibgw.New(settings.IBGateway)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	} else {
		log.Println("skipping ibkr: no gateway configured")
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no broker configured, set credentials in the environment or a .env file: %w", collector.ErrConfig)
	}
	return collector.NewService(collector.Options{Strict: strict, Timeout: timeout}, adapters...), nil
}
