package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cuemby/zerocon/pkg/actions"
	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/health"
	"github.com/cuemby/zerocon/pkg/types"
	"github.com/spf13/cobra"
)

var errProbeFailed = errors.New("probe failed")

var checkProbeCmd = &cobra.Command{
	Use:   "probe ID",
	Short: "Run a check against its targets from this machine",
	Long: `Run a check against its targets from this machine.

With --count above 1 the check is repeated every --interval, and a target
is reported unhealthy after --retries consecutive failures.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		interval, _ := cmd.Flags().GetDuration("interval")
		retries, _ := cmd.Flags().GetInt("retries")
		if count < 1 {
			return fmt.Errorf("count must be at least 1, got %d", count)
		}

		return withConsole(cmd, func(ctx context.Context, c *console.Console) error {
			check, err := findCheck(ctx, c.Checks, args[0])
			if err != nil {
				return err
			}
			checkers, err := health.ForCheck(check, nil)
			if err != nil {
				return err
			}
			if len(checkers) == 0 {
				return fmt.Errorf("check %s has no targets", check.ID)
			}
			return runProbe(ctx, cmd.OutOrStdout(), checkers, count, interval, retries)
		})
	},
}

func init() {
	checkProbeCmd.Flags().Int("count", 1, "Number of probe rounds")
	checkProbeCmd.Flags().Duration("interval", 10*time.Second, "Time between rounds")
	checkProbeCmd.Flags().Int("retries", 1, "Consecutive failures before a target is unhealthy")
}

// findCheck looks for id on every page of the check store
func findCheck(ctx context.Context, checks *actions.Resource[types.Check], id string) (types.Check, error) {
	if err := checks.Sync(ctx); err != nil {
		return types.Check{}, err
	}
	st := checks.Store()
	if check, ok := st.Get(id); ok {
		return check, nil
	}
	for page := 1; st.Paginated() && page < st.Pages(); page++ {
		if err := checks.Traverse(ctx, page); err != nil {
			return types.Check{}, err
		}
		if check, ok := st.Get(id); ok {
			return check, nil
		}
	}
	return types.Check{}, fmt.Errorf("check %s not found", id)
}

func runProbe(ctx context.Context, w io.Writer, checkers []health.Checker, count int,
	interval time.Duration, retries int) error {

	statuses := make([]*health.Status, len(checkers))
	for i := range statuses {
		statuses[i] = health.NewStatus()
	}

	for round := 1; ; round++ {
		for i, r := range health.Probe(ctx, checkers) {
			statuses[i].Update(r, retries)
			mark := "✓"
			if !r.Healthy {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s %s (%s)\n", mark, r.Target, r.Message, r.Duration.Round(time.Millisecond))
		}
		if round == count {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	for _, s := range statuses {
		if !s.Healthy {
			return errProbeFailed
		}
	}
	return nil
}
