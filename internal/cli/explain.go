package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/pkg/models"
)

func (c *CLI) newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <spec.yaml>",
		Short: "Plan a report without executing it",
		Long: `Load a report spec, plan it under the configured agent, and print the
emitted SQL, bound values, and the full kernel trace. The SQL is never
executed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplain(args[0])
		},
	}
}

func (c *CLI) runExplain(path string) error {
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

	// explain never executes: the planner runs against a capturing
	// executor that records the emitted SQL/bound values instead of
	// sending them anywhere.
	capture := &capturingExecutor{}
	dryEngine := *engine
	dryEngine.Executor = capture

	_, trace, err := dryEngine.RunReportWithTrace(ctx, spec, c.agentOrDefault())
	if err != nil {
		c.errorf("explain failed: %v\n", err)
		return err
	}

	resp := models.ExplainResponse{
		SQL:         capture.sql,
		BoundValues: capture.boundValues,
		Trace:       traceToModels(trace),
	}
	if c.jsonOutput {
		return c.outputJSON(resp)
	}

	c.printf("sql: %s\n", resp.SQL)
	c.printf("bound values: %v\n", resp.BoundValues)
	for _, step := range trace {
		c.printf("%*s%s via %s (changed: %v)\n", step.Depth*2, "", step.TaskName, step.MethodName, step.StateKeysChanged)
	}
	return nil
}

func traceToModels(trace []htn.TraceStep) []models.TraceStep {
	out := make([]models.TraceStep, len(trace))
	for i, t := range trace {
		out[i] = models.TraceStep{TaskName: t.TaskName, MethodName: t.MethodName, Depth: t.Depth, StateKeysChanged: t.StateKeysChanged}
	}
	return out
}

// capturingExecutor stands in for the real database boundary during
// "explain": it never touches a network or file, it just records what it
// would have run.
type capturingExecutor struct {
	sql         string
	boundValues []any
}

func (c *capturingExecutor) Execute(ctx context.Context, sql string, boundValues []any) ([]map[string]any, error) {
	c.sql = sql
	c.boundValues = boundValues
	return nil, nil
}
