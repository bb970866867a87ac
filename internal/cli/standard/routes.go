package standard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teople1/teople1/internal/cli/client"
	"github.com/teople1/teople1/internal/routes"
	"github.com/teople1/teople1/internal/teople1"
)

const defaultModuleDir = "modules/teople1"

// offlineOptions select the table and resolver for commands that run the
// registrar locally instead of asking the daemon.
type offlineOptions struct {
	moduleDir string
	tablePath string
	resolver  string
	repeat    int
}

func (o *offlineOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.moduleDir, "module-dir", defaultModuleDir, "Directory components resolve against")
	cmd.Flags().StringVar(&o.tablePath, "table", "", "Route table file (.hcl or .json); defaults to the built-in table")
	cmd.Flags().StringVar(&o.resolver, "resolver", "join", "Component resolver: join or slash")
	cmd.Flags().IntVar(&o.repeat, "repeat", 1, "Number of times to run registration")
}

func (o offlineOptions) collection() ([]routes.Route, error) {
	table, err := loadTable(o.tablePath)
	if err != nil {
		return nil, err
	}
	resolve, err := resolverByName(o.resolver)
	if err != nil {
		return nil, err
	}
	if o.repeat < 1 {
		return nil, fmt.Errorf("--repeat must be at least 1")
	}
	var collection []routes.Route
	for i := 0; i < o.repeat; i++ {
		collection, err = routes.Extend(collection, table, o.moduleDir, resolve)
		if err != nil {
			return nil, err
		}
	}
	return collection, nil
}

func loadTable(path string) (routes.Table, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return teople1.Table, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return routes.LoadTableHCL(path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return routes.Table{}, err
		}
		var descriptors []routes.Descriptor
		if err := json.Unmarshal(data, &descriptors); err != nil {
			return routes.Table{}, fmt.Errorf("decode route table %s: %w", path, err)
		}
		return routes.NewTable(descriptors...), nil
	default:
		return routes.Table{}, fmt.Errorf("unsupported route table format %q", filepath.Ext(path))
	}
}

func resolverByName(name string) (routes.Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "join":
		return routes.JoinResolver, nil
	case "slash":
		return routes.SlashResolver, nil
	default:
		return nil, fmt.Errorf("unknown resolver %q", name)
	}
}

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect route registration",
	}

	cmd.AddCommand(newRoutesListCmd())
	cmd.AddCommand(newRoutesCheckCmd())
	cmd.AddCommand(newRoutesExportCmd())
	cmd.AddCommand(newRoutesRemoteCmd())
	cmd.AddCommand(newRoutesHistoryCmd())
	return cmd
}

func newRoutesListCmd() *cobra.Command {
	var opts offlineOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Register the route table locally and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := opts.collection()
			if err != nil {
				return err
			}
			printRoutes(cmd.OutOrStdout(), collection)
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newRoutesCheckCmd() *cobra.Command {
	var (
		opts   offlineOptions
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report duplicate route names and paths",
		Long:  "Duplicates are reported, never rejected: the host decides which entry wins.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report routes.DuplicateReport
			if remote {
				err := withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
					remoteReport, err := api.CheckRoutes(ctx)
					if err != nil {
						return err
					}
					report = *remoteReport
					return nil
				})
				if err != nil {
					return err
				}
			} else {
				collection, err := opts.collection()
				if err != nil {
					return err
				}
				report = routes.Duplicates(collection)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&remote, "remote", false, "Check the daemon's collection instead of a local registration")
	return cmd
}

func newRoutesExportCmd() *cobra.Command {
	var (
		opts offlineOptions
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the registered routes as a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(out) == "" {
				return fmt.Errorf("--out path required")
			}
			collection, err := opts.collection()
			if err != nil {
				return err
			}
			store, err := routes.NewFileStore(out)
			if err != nil {
				return err
			}
			if err := store.Save(cmd.Context(), collection); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d routes to %s\n", len(collection), store.Path())
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Snapshot output path")
	return cmd
}

func newRoutesRemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "List the daemon's current route collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
				collection, err := api.ListRoutes(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generation %d\n", collection.Generation)
				printRoutes(cmd.OutOrStdout(), collection.Routes)
				return nil
			})
		},
	}
}

func newRoutesHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent route reloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
				reloads, err := api.ReloadHistory(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(reloads) == 0 {
					fmt.Fprintln(out, "No reloads recorded")
					return nil
				}
				printHeader(out, "%-6s %-25s %-7s %s", "ID", "RELOADED", "ROUTES", "PLUGINS")
				for _, r := range reloads {
					fmt.Fprintf(out, "%-6d %-25s %-7d %s\n", r.ID, r.ReloadedAt.Format(time.RFC3339), r.RouteCount, strings.Join(r.Plugins, ","))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum reloads to show")
	return cmd
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rerun route registration on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, 15*time.Second, func(ctx context.Context, api *client.Client) error {
				collection, err := api.ReloadRoutes(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d routes (generation %d)\n", len(collection.Routes), collection.Generation)
				return nil
			})
		},
	}
}

func printRoutes(out io.Writer, collection []routes.Route) {
	if len(collection) == 0 {
		fmt.Fprintln(out, "No routes registered")
		return
	}
	printHeader(out, "%-16s %-24s %-6s %s", "NAME", "PATH", "PROPS", "COMPONENT")
	for _, r := range collection {
		fmt.Fprintf(out, "%-16s %-24s %-6t %s\n", r.Name, r.Path, r.Props, r.Component)
	}
}

func printReport(out io.Writer, report routes.DuplicateReport) {
	if report.Empty() {
		fmt.Fprintln(out, "No duplicate names or paths")
		return
	}
	printHeader(out, "%-6s %-24s %s", "KIND", "KEY", "POSITIONS")
	for _, c := range report.Names {
		fmt.Fprintf(out, "%-6s %-24s %v\n", "name", c.Key, c.Indexes)
	}
	for _, c := range report.Paths {
		fmt.Fprintf(out, "%-6s %-24s %v\n", "path", c.Key, c.Indexes)
	}
}
