package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teople1/teople1/internal/cli/client"
	"github.com/teople1/teople1/internal/routes"
)

type fakeAPI struct {
	collection *client.Collection
	err        error
}

func (f fakeAPI) ListRoutes(context.Context) (*client.Collection, error) {
	return f.collection, f.err
}

func (f fakeAPI) ReloadRoutes(context.Context) (*client.Collection, error) {
	return f.collection, f.err
}

func (f fakeAPI) WatchEvents(ctx context.Context, _ func(client.HostEvent)) error {
	<-ctx.Done()
	return ctx.Err()
}

func testModel(api API) model {
	ctx, cancel := context.WithCancel(context.Background())
	return newModel(ctx, cancel, api)
}

func TestCollectionMsgPopulatesTable(t *testing.T) {
	collection := &client.Collection{Generation: 3, Routes: []routes.Route{
		{Name: "index", Path: "/demo/index", Component: "/mod/pages/demo/index.vue"},
		{Name: "index", Path: "/demo/index", Component: "/mod/pages/demo/index.vue"},
	}}
	m := testModel(fakeAPI{collection: collection})

	next, _ := m.Update(collectionMsg{collection: collection})
	updated := next.(model)
	if updated.generation != 3 || updated.routeCount != 2 {
		t.Fatalf("unexpected state: generation=%d routes=%d", updated.generation, updated.routeCount)
	}
	if rows := updated.table.Rows(); len(rows) != 2 || rows[1][0] != "index" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if !strings.Contains(updated.View(), "Generation 3, 2 routes") {
		t.Fatalf("view missing summary:\n%s", updated.View())
	}
}

func TestEventMsgPrependsLog(t *testing.T) {
	m := testModel(fakeAPI{collection: &client.Collection{}})
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	next, cmd := m.Update(hostEventMsg{event: client.HostEvent{Type: "PLUGIN_DISABLED", Plugin: "teople1", Timestamp: ts}})
	updated := next.(model)
	if cmd == nil {
		t.Fatalf("expected refresh command")
	}
	if len(updated.logs) != 1 || !strings.Contains(updated.logs[0], "PLUGIN_DISABLED") || !strings.Contains(updated.logs[0], "teople1") {
		t.Fatalf("unexpected logs: %v", updated.logs)
	}
}

func TestErrMsgShownInView(t *testing.T) {
	m := testModel(fakeAPI{})
	next, _ := m.Update(errMsg{err: errors.New("connection refused")})
	if !strings.Contains(next.View(), "connection refused") {
		t.Fatalf("error not rendered")
	}
}

func TestQuitKeyCancels(t *testing.T) {
	m := testModel(fakeAPI{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if m.ctx.Err() == nil {
		t.Fatalf("context should be cancelled")
	}
}

func TestFetchRoutesCmd(t *testing.T) {
	want := &client.Collection{Generation: 1}
	msg := fetchRoutesCmd(fakeAPI{collection: want}, context.Background())()
	got, ok := msg.(collectionMsg)
	if !ok || got.collection != want {
		t.Fatalf("unexpected msg: %#v", msg)
	}

	msg = fetchRoutesCmd(fakeAPI{err: errors.New("down")}, context.Background())()
	if _, ok := msg.(errMsg); !ok {
		t.Fatalf("expected errMsg, got %#v", msg)
	}
}
