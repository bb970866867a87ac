package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teople1/teople1/internal/cli/client"
	"github.com/teople1/teople1/internal/routes"
)

const (
	refreshInterval = 5 * time.Second
	maxLogLines     = 100
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// API is the subset of the daemon client the dashboard uses.
type API interface {
	ListRoutes(ctx context.Context) (*client.Collection, error)
	ReloadRoutes(ctx context.Context) (*client.Collection, error)
	WatchEvents(ctx context.Context, handler func(client.HostEvent)) error
}

type collectionMsg struct {
	collection *client.Collection
}

type hostEventMsg struct {
	event client.HostEvent
}

type errMsg struct {
	err error
}

type eventsClosedMsg struct{}

type tickMsg struct{}

// Run launches the Bubble Tea route dashboard.
func Run(api API) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newModel(ctx, cancel, api)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		cancel()
		return err
	}
	return nil
}

type model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	api        API
	table      table.Model
	generation uint64
	routeCount int
	logs       []string
	err        error
	eventCh    chan client.HostEvent
	streamEOF  bool
}

func newModel(ctx context.Context, cancel context.CancelFunc, api API) model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "NAME", Width: 16},
			{Title: "PATH", Width: 24},
			{Title: "PROPS", Width: 6},
			{Title: "COMPONENT", Width: 48},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return model{
		ctx:     ctx,
		cancel:  cancel,
		api:     api,
		table:   t,
		eventCh: make(chan client.HostEvent, 16),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchRoutesCmd(m.api, m.ctx),
		watchEventsCmd(m.api, m.ctx, m.eventCh),
		waitEventCmd(m.eventCh),
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "r":
			return m, reloadRoutesCmd(m.api, m.ctx)
		}
	case collectionMsg:
		m.generation = msg.collection.Generation
		m.routeCount = len(msg.collection.Routes)
		m.table.SetRows(rowsFor(msg.collection.Routes))
		m.err = nil
		return m, nil
	case hostEventMsg:
		m.logs = append([]string{formatEvent(msg.event)}, m.logs...)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[:maxLogLines]
		}
		return m, tea.Batch(fetchRoutesCmd(m.api, m.ctx), waitEventCmd(m.eventCh))
	case errMsg:
		m.err = msg.err
		return m, nil
	case eventsClosedMsg:
		m.streamEOF = true
		return m, nil
	case tickMsg:
		return m, tea.Batch(tickCmd(), fetchRoutesCmd(m.api, m.ctx))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TEOPLE1 :: Route Dashboard"))
	b.WriteString(dimStyle.Render("  (r reload, q quit)"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Generation %d, %d routes\n", m.generation, m.routeCount)
	b.WriteString(m.table.View())
	b.WriteString("\n\nEvents:\n")
	if len(m.logs) == 0 {
		b.WriteString(dimStyle.Render("  (waiting for events)") + "\n")
	} else {
		for i, line := range m.logs {
			if i >= 10 {
				break
			}
			b.WriteString("  " + line + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.streamEOF {
		b.WriteString("\nEvent stream closed.\n")
	}
	return b.String()
}

func rowsFor(collection []routes.Route) []table.Row {
	rows := make([]table.Row, 0, len(collection))
	for _, r := range collection {
		rows = append(rows, table.Row{r.Name, r.Path, fmt.Sprintf("%t", r.Props), r.Component})
	}
	return rows
}

func formatEvent(ev client.HostEvent) string {
	line := fmt.Sprintf("%s %-22s", ev.Timestamp.Format(time.RFC3339), ev.Type)
	if ev.Plugin != "" {
		line += " " + ev.Plugin
	}
	if ev.Message != "" {
		line += " " + ev.Message
	}
	return line
}

func fetchRoutesCmd(api API, parent context.Context) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		collection, err := api.ListRoutes(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return collectionMsg{collection: collection}
	}
}

func reloadRoutesCmd(api API, parent context.Context) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()
		collection, err := api.ReloadRoutes(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return collectionMsg{collection: collection}
	}
}

func watchEventsCmd(api API, ctx context.Context, ch chan<- client.HostEvent) tea.Cmd {
	return func() tea.Msg {
		go func() {
			err := api.WatchEvents(ctx, func(ev client.HostEvent) {
				select {
				case ch <- ev:
				case <-ctx.Done():
				}
			})
			if err != nil && ctx.Err() == nil {
				select {
				case ch <- client.HostEvent{Type: "ERROR", Message: err.Error(), Timestamp: time.Now().UTC()}:
				default:
				}
			}
			close(ch)
		}()
		return nil
	}
}

func waitEventCmd(ch <-chan client.HostEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return hostEventMsg{event: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}
