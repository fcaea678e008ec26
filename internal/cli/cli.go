// Package cli provides the command-line interface for htnql: the "run",
// "explain", "agent validate", "schema describe", and "version" commands
// described in the design, driven directly against an in-process
// queryengine.Engine rather than a remote control plane.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/htnql/htnql/internal/config"
	"github.com/htnql/htnql/internal/htnerrors"
)

// ExitSuccess is the process exit code for a successful command. Every
// other exit code is an htnerrors.ErrorCode value, so a caller can
// distinguish failure kinds from the process exit status alone.
const ExitSuccess = 0

// Version information (set at build time via -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// CLI holds command-line interface state shared across subcommands.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config

	configPath string
	agent      string
	jsonOutput bool
	quiet      bool
}

// New creates a new CLI instance.
func New() *CLI {
	c := &CLI{}
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the CLI and returns a process exit code.
func (c *CLI) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		if code, ok := exitCodeFor(err); ok {
			return code
		}
		return int(htnerrors.CodeExecution)
	}
	return ExitSuccess
}

// exitCodeFor walks err's Unwrap chain looking for a typed htnql error,
// whose Code maps 1:1 to the process exit code.
func exitCodeFor(err error) (int, bool) {
	for err != nil {
		switch e := err.(type) {
		case *htnerrors.SpecError:
			return int(e.Code), true
		case *htnerrors.SchemaError:
			return int(e.Code), true
		case *htnerrors.JoinError:
			return int(e.Code), true
		case *htnerrors.AgentError:
			return int(e.Code), true
		case *htnerrors.PlannerError:
			return int(e.Code), true
		case *htnerrors.PrimitiveError:
			return int(e.Code), true
		case *htnerrors.CancelledError:
			return int(e.Code), true
		case *htnerrors.ExecutionError:
			return int(e.Code), true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "htnql",
		Short: "HTNQL - HTN-planned SQL reporting",
		Long: `htnql turns a declarative report description into executable SQL
using a hierarchical task network planner that infers joins from a
schema's foreign-key graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.htnql/config.yaml)")
	cmd.PersistentFlags().StringVar(&c.agent, "agent", "", "agent name (overrides config)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")

	cmd.AddCommand(c.newRunCmd())
	cmd.AddCommand(c.newExplainCmd())
	cmd.AddCommand(c.newAgentCmd())
	cmd.AddCommand(c.newSchemaCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Printf(format, args...)
	}
}

func (c *CLI) print(args ...interface{}) {
	if !c.quiet {
		fmt.Print(args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Println(args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
