package plugins

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/routes"
	"github.com/teople1/teople1/internal/server/db"
	"github.com/teople1/teople1/internal/server/db/sqlite"
)

func manifest(name string, enabled bool) pluginspec.Manifest {
	return pluginspec.Manifest{
		Name:      name,
		Version:   "1.0.0",
		ModuleDir: "/srv/" + name,
		Routes:    []routes.Descriptor{{Name: name, Path: "/" + name, Component: "pages/index.vue", Enabled: true}},
		Enabled:   enabled,
	}
}

func TestRegistryInMemory(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil, manifest("zeta", true), manifest("alpha", true), manifest("mid", false))

	if got := r.List(); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	var enabled []string
	for _, m := range r.EnabledManifests() {
		enabled = append(enabled, m.Name)
	}
	if !reflect.DeepEqual(enabled, []string{"alpha", "zeta"}) {
		t.Fatalf("unexpected enabled: %v", enabled)
	}

	if err := r.SetEnabled(ctx, "mid", true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !r.Enabled("mid") {
		t.Fatalf("mid should be enabled")
	}
	if err := r.SetEnabled(ctx, "ghost", true); !errors.Is(err, ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
	if err := r.Remove(ctx, "zeta"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := r.Get("zeta"); ok {
		t.Fatalf("zeta still registered")
	}
	if err := r.Install(ctx, pluginspec.Manifest{Name: "broken"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRegistrySyncWithSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })
	repo := store.Queries().Plugins()

	first := NewRegistry(repo, manifest("teople1", true))
	if err := first.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := first.SetEnabled(ctx, "teople1", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := first.Install(ctx, manifest("extra", true)); err != nil {
		t.Fatalf("install: %v", err)
	}

	// A restart registers the built-in with its default flag again.
	second := NewRegistry(repo, manifest("teople1", true))
	if err := second.Sync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if second.Enabled("teople1") {
		t.Fatalf("persisted disabled flag should win over default")
	}
	extra, ok := second.Get("extra")
	if !ok || !extra.Enabled || len(extra.Routes) != 1 {
		t.Fatalf("installed plugin not restored: %+v", extra)
	}

	row, err := repo.GetByName(ctx, "teople1")
	if err != nil || row == nil {
		t.Fatalf("get row: %v %v", row, err)
	}
	if row.Enabled {
		t.Fatalf("row should stay disabled")
	}

	if err := second.Remove(ctx, "extra"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	gone, err := repo.GetByName(ctx, "extra")
	if err != nil {
		t.Fatalf("get removed: %v", err)
	}
	if gone != nil {
		t.Fatalf("row still present: %+v", gone)
	}
}

type failingRepo struct{ db.PluginRepository }

func (failingRepo) SetEnabled(context.Context, string, bool) error { return errors.New("disk full") }

func TestRegistrySetEnabledKeepsMemoryOnBackendFailure(t *testing.T) {
	r := NewRegistry(failingRepo{}, manifest("teople1", true))
	if err := r.SetEnabled(context.Background(), "teople1", false); err == nil {
		t.Fatalf("expected backend error")
	}
	if !r.Enabled("teople1") {
		t.Fatalf("memory state changed despite backend failure")
	}
}
