package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/htnql/htnql/internal/agentdsl"
	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/primitive"
)

func (c *CLI) newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Agent DSL commands",
		Long:  `Validate agent configuration documents against the primitive registry.`,
	}
	cmd.AddCommand(c.newAgentValidateCmd())
	return cmd
}

func (c *CLI) newAgentValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <agent.yaml>",
		Short: "Validate an agent configuration document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAgentValidate(args[0])
		},
	}
}

func (c *CLI) runAgentValidate(path string) error {
	catalogs, err := loadAgentCatalogs(path)
	if err != nil {
		c.errorf("invalid: %v\n", err)
		return err
	}
	var tasks []string
	for _, catalog := range catalogs {
		for name := range catalog {
			tasks = append(tasks, name)
		}
	}
	if c.jsonOutput {
		return c.outputJSON(map[string]any{"valid": true, "tasks": tasks})
	}
	c.printf("agent document is valid: %d task(s)\n", len(tasks))
	for _, name := range tasks {
		c.printf("  - %s\n", name)
	}
	return nil
}

// loadAgentCatalogs parses an agentdsl document into a single-entry catalog
// map keyed by the document's file name, for merging into a queryengine's
// agent set.
func loadAgentCatalogs(path string) (map[string]htn.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: reading agent document %s: %w", path, err)
	}
	catalog, err := agentdsl.Parse(data, primitive.Names())
	if err != nil {
		return nil, err
	}
	return map[string]htn.Catalog{agentNameFromPath(path): catalog}, nil
}

func agentNameFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func catalogNames(m map[string]htn.Catalog) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
