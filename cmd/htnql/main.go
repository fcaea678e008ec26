// Command htnql is the CLI entrypoint: run, explain, agent validate, schema
// describe, and version subcommands over an in-process query engine.
package main

import (
	"os"

	"github.com/htnql/htnql/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New().Execute())
}
