package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/zerocon/pkg/console"
	"github.com/cuemby/zerocon/pkg/events"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror the console and print changes",
	Long: `Connect to the event channel, sync every resource and keep them in step
with the server until interrupted. One line is printed per change.

Saved views (filter and page) are restored from state_file when set, and
metrics are served on metrics_addr when set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := console.New(cfg)
		if err != nil {
			return err
		}

		sub := c.Events.Subscribe()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			printEvents(cmd.OutOrStdout(), sub)
		}()

		err = withSignals(cmd.Context(), c.Watch)
		c.Events.Unsubscribe(sub)
		wg.Wait()

		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func printEvents(w io.Writer, sub events.Subscriber) {
	for e := range sub {
		fmt.Fprintln(w, formatEvent(e))
	}
}

func formatEvent(e *events.Event) string {
	line := e.Timestamp.Format("15:04:05") + " " + string(e.Type)
	if e.Resource != "" {
		line += " " + e.Resource
	}
	if e.Message != "" {
		line += ": " + e.Message
	}
	if msg, ok := e.Metadata["error"]; ok {
		line += " (" + msg + ")"
	}
	return line
}
