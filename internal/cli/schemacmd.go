package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/htnql/htnql/internal/schema"
)

func (c *CLI) newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Schema graph commands",
	}
	cmd.AddCommand(c.newSchemaDescribeCmd())
	return cmd
}

func (c *CLI) newSchemaDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <schema.yaml>",
		Short: "Load a schema document and print its tables and foreign keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSchemaDescribe(args[0])
		},
	}
}

func (c *CLI) runSchemaDescribe(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		c.errorf("%v\n", err)
		return err
	}
	g, err := schema.Load(data)
	if err != nil {
		c.errorf("invalid schema: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]any{"tables": g.Tables()})
	}

	c.print(schema.Describe(g))
	return nil
}
