package standard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teople1/teople1/internal/cli/client"
)

const defaultAPIBase = client.DefaultBaseURL

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func encodeAsJSON(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func clientFromCmd(cmd *cobra.Command) (*client.Client, error) {
	base, err := cmd.Root().PersistentFlags().GetString("api")
	if err != nil {
		base = envOrDefault("TEOPLE1_API_BASE", defaultAPIBase)
	}
	apiKey, err := cmd.Root().PersistentFlags().GetString("api-key")
	if err != nil {
		apiKey = os.Getenv("TEOPLE1_API_KEY")
	}
	return client.New(base, apiKey)
}

const requestTimeout = 10 * time.Second

// withDaemon runs fn against the configured daemon under a request deadline.
func withDaemon(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, api *client.Client) error) error {
	api, err := clientFromCmd(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, api)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printHeader writes a table header line, styled only on a terminal.
func printHeader(out io.Writer, format string, columns ...any) {
	line := strings.TrimRight(fmt.Sprintf(format, columns...), " ")
	if isTerminal(out) {
		line = headerStyle.Render(line)
	}
	fmt.Fprintln(out, line)
}
