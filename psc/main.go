package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/collector/cmd"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// credentials may live in a .env file; real environment variables win
	godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
