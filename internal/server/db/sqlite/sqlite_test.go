package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/teople1/teople1/internal/server/db"
)

func TestPluginRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	repo := store.Queries().Plugins()

	if err := repo.Upsert(ctx, db.Plugin{Name: "teople1", Version: "1.0.0", Enabled: true, ModuleDir: "/srv/teople1", Manifest: []byte(`{"name":"teople1"}`)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	fetched, err := repo.GetByName(ctx, "teople1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched == nil || !fetched.Enabled || fetched.Version != "1.0.0" {
		t.Fatalf("unexpected plugin: %+v", fetched)
	}
	if string(fetched.Manifest) != `{"name":"teople1"}` || fetched.ModuleDir != "/srv/teople1" {
		t.Fatalf("manifest not stored: %s %q", fetched.Manifest, fetched.ModuleDir)
	}
	if fetched.InstalledAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not populated: %+v", fetched)
	}

	if err := repo.SetEnabled(ctx, "teople1", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	disabled, err := repo.GetByName(ctx, "teople1")
	if err != nil {
		t.Fatalf("get disabled: %v", err)
	}
	if disabled.Enabled {
		t.Fatalf("plugin still enabled")
	}

	if err := repo.Upsert(ctx, db.Plugin{Name: "teople1", Version: "1.1.0", Enabled: false}); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Version != "1.1.0" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := repo.Delete(ctx, "teople1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	missing, err := repo.GetByName(ctx, "teople1")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil after delete, got %+v", missing)
	}
}

func TestPluginRepositoryUnknownName(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Queries().Plugins()

	if err := repo.SetEnabled(ctx, "ghost", true); !errors.Is(err, db.ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "ghost"); !errors.Is(err, db.ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestReloadRepository(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.WithTx(ctx, func(q db.Queries) error {
		if _, err := q.Reloads().Record(ctx, db.Reload{RouteCount: 5, Plugins: []string{"teople1"}}); err != nil {
			return err
		}
		_, err := q.Reloads().Record(ctx, db.Reload{RouteCount: 0})
		return err
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	recent, err := store.Queries().Reloads().Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 reloads, got %d", len(recent))
	}
	if recent[0].RouteCount != 0 || len(recent[0].Plugins) != 0 {
		t.Fatalf("newest reload first: %+v", recent[0])
	}
	if recent[1].RouteCount != 5 || len(recent[1].Plugins) != 1 || recent[1].Plugins[0] != "teople1" {
		t.Fatalf("unexpected reload: %+v", recent[1])
	}
	if recent[1].ReloadedAt.IsZero() {
		t.Fatalf("timestamp missing")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(q db.Queries) error {
		if err := q.Plugins().Upsert(ctx, db.Plugin{Name: "temp", Version: "0.0.1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	plugin, err := store.Queries().Plugins().GetByName(ctx, "temp")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if plugin != nil {
		t.Fatalf("transaction not rolled back: %+v", plugin)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = second.Close(ctx)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })
	return store
}
