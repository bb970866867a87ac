package standard

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Execute runs the Cobra-based CLI entry point.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teople1",
		Short: "teople1 route plugin command-line interface",
		Long:  "teople1 inspects the plugin's route table offline and manages a running teople1d host.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("api", "a", envOrDefault("TEOPLE1_API_BASE", defaultAPIBase), "teople1d base URL")
	cmd.PersistentFlags().String("api-key", envOrDefault("TEOPLE1_API_KEY", ""), "teople1d API key")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRoutesCmd())
	cmd.AddCommand(newPluginsCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newDashboardCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the teople1 client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "teople1 CLI %s\n", Version)
		},
	}
}
