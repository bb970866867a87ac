package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teople1/teople1/internal/routes"
	"github.com/teople1/teople1/internal/server/db"
	"github.com/teople1/teople1/internal/server/eventbus"
	"github.com/teople1/teople1/internal/server/events"
	"github.com/teople1/teople1/internal/server/plugins"
)

// Params bundles the collaborators of a Host. Only Registry is required.
type Params struct {
	Registry *plugins.Registry
	Resolver routes.Resolver
	Store    routes.Store
	Reloads  db.ReloadRepository
	Bus      eventbus.Bus
	Logger   *slog.Logger
	// Base holds routes the host owns before any plugin contributes.
	Base []routes.Route
}

// Host owns the route collection and runs the route-extension phase.
type Host struct {
	registry *plugins.Registry
	resolve  routes.Resolver
	store    routes.Store
	reloads  db.ReloadRepository
	bus      eventbus.Bus
	logger   *slog.Logger
	base     []routes.Route

	reloadMu   sync.Mutex
	mu         sync.RWMutex
	collection []routes.Route
	generation uint64
	listeners  []func([]routes.Route)
}

// New constructs a Host with an empty collection. Call Reload to populate it.
func New(p Params) (*Host, error) {
	if p.Registry == nil {
		return nil, errors.New("host: plugin registry required")
	}
	if p.Resolver == nil {
		p.Resolver = routes.JoinResolver
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	base := make([]routes.Route, len(p.Base))
	copy(base, p.Base)
	return &Host{
		registry: p.Registry,
		resolve:  p.Resolver,
		store:    p.Store,
		reloads:  p.Reloads,
		bus:      p.Bus,
		logger:   p.Logger,
		base:     base,
	}, nil
}

// Reload rebuilds the collection from a fresh copy of the base routes,
// running each enabled plugin's registration once, in plugin name order. If
// any registration fails the previous collection stays in place.
func (h *Host) Reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	collection := make([]routes.Route, len(h.base))
	copy(collection, h.base)

	var contributed []string
	for _, manifest := range h.registry.EnabledManifests() {
		next, err := routes.Extend(collection, manifest.Table(), manifest.ModuleDir, h.resolve)
		if err != nil {
			err = fmt.Errorf("host: extend routes for plugin %s: %w", manifest.Name, err)
			h.publish(ctx, events.HostEvent{Type: events.TypeReloadFailed, Plugin: manifest.Name, Message: err.Error()})
			return err
		}
		collection = next
		contributed = append(contributed, manifest.Name)
	}

	h.mu.Lock()
	h.collection = collection
	h.generation++
	generation := h.generation
	listeners := append([]func([]routes.Route){}, h.listeners...)
	h.mu.Unlock()

	h.logger.Info("routes reloaded", "routes", len(collection), "plugins", contributed, "generation", generation)
	if report := routes.Duplicates(collection); !report.Empty() {
		h.logger.Warn("ambiguous routes in collection", "names", report.Names, "paths", report.Paths)
	}

	for _, listener := range listeners {
		listener(cloneRoutes(collection))
	}

	if h.store != nil {
		if err := h.store.Save(ctx, collection); err != nil {
			h.logger.Error("save route snapshot", "error", err)
		}
	}
	if h.reloads != nil {
		if _, err := h.reloads.Record(ctx, db.Reload{RouteCount: len(collection), Plugins: contributed}); err != nil {
			h.logger.Error("record reload", "error", err)
		}
	}
	h.publish(ctx, events.HostEvent{Type: events.TypeRoutesReloaded, Plugins: contributed, RouteCount: len(collection)})
	return nil
}

// Routes returns a copy of the current collection.
func (h *Host) Routes() []routes.Route {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return cloneRoutes(h.collection)
}

// Generation counts successful reloads.
func (h *Host) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generation
}

// Lookup returns the first route registered under name. When several routes
// share a name, the earliest in the collection wins.
func (h *Host) Lookup(name string) (routes.Route, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, route := range h.collection {
		if route.Name == name {
			return route, nil
		}
	}
	return routes.Route{}, fmt.Errorf("%w: %s", routes.ErrNotFound, name)
}

// OnReload registers fn to receive every new collection. fn runs
// synchronously inside Reload.
func (h *Host) OnReload(fn func([]routes.Route)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Registry exposes the plugin registry backing the host.
func (h *Host) Registry() *plugins.Registry { return h.registry }

// SetPluginEnabled toggles a plugin and reloads the collection.
func (h *Host) SetPluginEnabled(ctx context.Context, name string, enabled bool) error {
	if err := h.registry.SetEnabled(ctx, name, enabled); err != nil {
		return err
	}
	eventType := events.TypePluginDisabled
	if enabled {
		eventType = events.TypePluginEnabled
	}
	h.logger.Info("plugin toggled", "plugin", name, "enabled", enabled)
	h.publish(ctx, events.HostEvent{Type: eventType, Plugin: name})
	return h.Reload(ctx)
}

func (h *Host) publish(ctx context.Context, event events.HostEvent) {
	if h.bus == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := h.bus.Publish(ctx, events.TopicHost, event); err != nil {
		h.logger.Warn("publish host event", "type", event.Type, "error", err)
	}
}

func cloneRoutes(in []routes.Route) []routes.Route {
	out := make([]routes.Route, len(in))
	copy(out, in)
	return out
}
