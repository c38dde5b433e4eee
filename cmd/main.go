package cmd

import (
	"github.com/google/subcommands"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&balancesCmd{}, "portfolio")
	c.Register(&totalsCmd{}, "portfolio")
	c.Register(&brokersCmd{}, "portfolio")
}
