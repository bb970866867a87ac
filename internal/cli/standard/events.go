package standard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teople1/teople1/internal/cli/client"
	"github.com/teople1/teople1/internal/cli/tui"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream route and plugin events from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = api.WatchEvents(cmd.Context(), func(ev client.HostEvent) {
				fmt.Fprintln(out, formatEvent(ev))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func formatEvent(ev client.HostEvent) string {
	line := fmt.Sprintf("%s %-22s", ev.Timestamp.Format(time.RFC3339), ev.Type)
	if ev.Plugin != "" {
		line += " plugin=" + ev.Plugin
	}
	if ev.RouteCount > 0 {
		line += fmt.Sprintf(" routes=%d", ev.RouteCount)
	}
	if ev.Message != "" {
		line += " " + ev.Message
	}
	return line
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive route dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			return tui.Run(api)
		},
	}
}
