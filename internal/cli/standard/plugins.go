package standard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teople1/teople1/internal/cli/client"
	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/server/plugins"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage route-contributing plugins",
	}
	cmd.AddCommand(
		newPluginsListCmd(),
		newPluginsShowCmd(),
		newPluginToggleCmd(true),
		newPluginToggleCmd(false),
		newPluginsInstallCmd(),
		newPluginsRemoveCmd(),
		newPluginsEncodeCmd(),
	)
	return cmd
}

func newPluginsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
				installed, err := api.ListPlugins(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(installed) == 0 {
					fmt.Fprintln(out, "No plugins installed")
					return nil
				}
				printHeader(out, "%-20s %-10s %-8s %-7s %s", "NAME", "VERSION", "ENABLED", "ROUTES", "MODULE DIR")
				for _, p := range installed {
					fmt.Fprintf(out, "%-20s %-10s %-8t %-7d %s\n", p.Name, p.Version, p.Enabled, p.RouteCount, p.ModuleDir)
				}
				return nil
			})
		},
	}
}

func newPluginsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a plugin's manifest as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
				manifest, err := api.GetPlugin(ctx, args[0])
				if err != nil {
					return err
				}
				if manifest == nil {
					return fmt.Errorf("plugin %s not found", args[0])
				}
				return encodeAsJSON(cmd.OutOrStdout(), manifest)
			})
		},
	}
}

func newPluginToggleCmd(enabled bool) *cobra.Command {
	verb, state := "disable", "disabled"
	if enabled {
		verb, state = "enable", "enabled"
	}
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a plugin and reload routes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
				if err := api.SetPluginEnabled(ctx, args[0], enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Plugin %s %s\n", args[0], state)
				return nil
			})
		},
	}
}

// loadManifestFile reads a .json or .hcl manifest the same way the daemon
// reads its plugins directory.
func loadManifestFile(path string) (pluginspec.Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return pluginspec.Manifest{}, fmt.Errorf("--manifest path required")
	}
	manifest, err := plugins.FileLoader{}.Load(path)
	if err != nil {
		return pluginspec.Manifest{}, err
	}
	manifest.Normalize()
	return manifest, manifest.Validate()
}

func newPluginsInstallCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a plugin from a manifest file (.json or .hcl)",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadManifestFile(manifestPath)
			if err != nil {
				return err
			}
			return withDaemon(cmd, 15*time.Second, func(ctx context.Context, api *client.Client) error {
				installed, err := api.InstallPlugin(ctx, manifest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Plugin %s %s installed (%d routes)\n", installed.Name, installed.Version, installed.RouteCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to plugin manifest")
	return cmd
}

func newPluginsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an installed plugin and reload routes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, requestTimeout, func(ctx context.Context, api *client.Client) error {
				if err := api.RemovePlugin(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Plugin %s removed\n", args[0])
				return nil
			})
		},
	}
}

func newPluginsEncodeCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print a manifest encoded for TEOPLE1_PLUGIN_MANIFESTS",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadManifestFile(manifestPath)
			if err != nil {
				return err
			}
			encoded, err := pluginspec.Encode(manifest)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to plugin manifest")
	return cmd
}
