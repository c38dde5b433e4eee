package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/collector/renderer"
	"github.com/google/subcommands"
)

// balancesCmd holds the flags for the 'balances' subcommand.
type balancesCmd struct {
	positions bool
	strict    bool
	timeout   time.Duration
	format    string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "fetch and display balances across all configured brokers" }
func (*balancesCmd) Usage() string {
	return `psc balances [-positions] [-strict] [-timeout <duration>] [-format <format>]

  Runs one aggregation across all configured brokers and displays the
  combined holdings. A broker that fails is reported as unavailable while
  the others still display, unless -strict is set.

Usage Examples:
# Show cash balances only.
$ psc balances

# Include position-level detail, fail on any broker error.
$ psc balances -positions -strict

`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.positions, "positions", false, "Include position-level detail.")
	f.BoolVar(&c.strict, "strict", false, "Abort the whole run on any broker failure.")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "Overall run timeout; pending brokers are cancelled.")
	f.StringVar(&c.format, "format", "table", "Output format: table, markdown or json.")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	service, err := buildService(c.strict, c.timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	snapshot, failures, err := service.Run(ctx)
	if err != nil {
		for broker, ferr := range failures {
			fmt.Fprintf(os.Stderr, "%s: %v\n", broker, ferr)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	switch c.format {
	case "json":
		out, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Println(string(out))
	case "markdown":
		// raw markdown, suitable for piping into a file
		fmt.Println(renderer.SnapshotMarkdown(renderer.Report{
			Snapshot:  snapshot,
			Failures:  failures,
			Positions: c.positions,
		}))
	default:
		printMarkdown(renderer.SnapshotMarkdown(renderer.Report{
			Snapshot:  snapshot,
			Failures:  failures,
			Positions: c.positions,
		}))
	}

	// every single broker failing is a failed run even without -strict
	if len(failures) > 0 && len(snapshot.Balances()) == 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
