package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/collector"
	"github.com/google/subcommands"
)

// brokersCmd lists the known brokers and their configuration state.
type brokersCmd struct{}

func (*brokersCmd) Name() string     { return "brokers" }
func (*brokersCmd) Synopsis() string { return "list known brokers and whether they are configured" }
func (*brokersCmd) Usage() string {
	return `psc brokers

  Lists every known broker and whether credentials for it are present in the
  environment. No network call is made.
`
}

func (*brokersCmd) SetFlags(*flag.FlagSet) {}

func (*brokersCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	settings := collector.LoadSettings()
	status := func(configured bool) string {
		if configured {
			return "configured"
		}
		return "not configured"
	}
	fmt.Printf("%-10s %s\n", collector.Tinkoff, status(settings.Tinkoff.IsConfigured()))
	fmt.Printf("%-10s %s\n", collector.Binance, status(settings.Binance.IsConfigured()))
	fmt.Printf("%-10s %s\n", collector.Bybit, status(settings.Bybit.IsConfigured()))
	fmt.Printf("%-10s %s\n", collector.IBGateway, status(settings.IBGateway.IsConfigured()))
	return subcommands.ExitSuccess
}
