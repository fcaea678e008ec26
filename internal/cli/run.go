package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/htnql/htnql/internal/reportspec"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <spec.yaml>",
		Short: "Plan and execute a report",
		Long: `Load a report spec, plan it under the configured agent, execute the
resulting SQL against the configured executor, and print the rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(args[0])
		},
	}
}

func (c *CLI) runRun(path string) error {
	spec, err := loadReportSpec(path)
	if err != nil {
		c.errorf("%v\n", err)
		return err
	}

	engine, err := c.buildEngine(c.cfg)
	if err != nil {
		c.errorf("%v\n", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rows, err := engine.RunReport(ctx, spec, c.agentOrDefault())
	if err != nil {
		c.errorf("run failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]any{"row_count": len(rows), "rows": rows})
	}

	c.printf("rows: %d\n", len(rows))
	for _, row := range rows {
		c.println(row)
	}
	return nil
}

func loadReportSpec(path string) (reportspec.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reportspec.Spec{}, fmt.Errorf("cli: reading report spec %s: %w", path, err)
	}
	var spec reportspec.Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return reportspec.Spec{}, fmt.Errorf("cli: parsing report spec %s: %w", path, err)
	}
	return spec, nil
}

func (c *CLI) agentOrDefault() string {
	if c.agent != "" {
		return c.agent
	}
	if c.cfg != nil && c.cfg.Agent != "" {
		return c.cfg.Agent
	}
	return "default"
}
