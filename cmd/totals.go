package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
)

// totalsCmd holds the flags for the 'totals' subcommand.
type totalsCmd struct {
	strict  bool
	timeout time.Duration
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "display aggregated totals by currency" }
func (*totalsCmd) Usage() string {
	return `psc totals [-strict] [-timeout <duration>]

  Runs one aggregation and displays only the per-currency totals. Currencies
  are kept separate; no exchange rate is applied.
`
}

func (c *totalsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.strict, "strict", false, "Abort the whole run on any broker failure.")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "Overall run timeout; pending brokers are cancelled.")
}

func (c *totalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	service, err := buildService(c.strict, c.timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	snapshot, failures, err := service.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Totals on %s\n\n", snapshot.On().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "| Currency | Total |\n|---|---:|\n")
	for _, code := range snapshot.Currencies() {
		fmt.Fprintf(&b, "| %s | %s |\n", code, snapshot.Total(code))
	}
	for broker, ferr := range failures {
		fmt.Fprintf(&b, "\n**%s unavailable**: %v\n", broker, ferr)
	}
	printMarkdown(b.String())

	if len(failures) > 0 && len(snapshot.Balances()) == 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
