package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/server/db"
)

// ErrPluginNotFound is returned for names the registry does not know.
var ErrPluginNotFound = errors.New("plugin registry: plugin not found")

// Registry holds plugin manifests in memory and mirrors their enabled state
// into an optional persistent backend.
type Registry struct {
	mu        sync.RWMutex
	backend   db.PluginRepository
	manifests map[string]pluginspec.Manifest
}

// NewRegistry constructs a registry populated with the given manifests.
// repo may be nil, in which case state lives only in memory.
func NewRegistry(repo db.PluginRepository, manifests ...pluginspec.Manifest) *Registry {
	r := &Registry{backend: repo, manifests: make(map[string]pluginspec.Manifest)}
	for _, manifest := range manifests {
		r.Register(manifest)
	}
	return r
}

// Register adds or replaces a manifest entry.
func (r *Registry) Register(manifest pluginspec.Manifest) {
	manifest.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[manifest.Name] = manifest
}

// Get retrieves the manifest for a plugin.
func (r *Registry) Get(name string) (pluginspec.Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	manifest, ok := r.manifests[name]
	return manifest, ok
}

// Enabled reports whether a plugin is registered and enabled.
func (r *Registry) Enabled(name string) bool {
	manifest, ok := r.Get(name)
	return ok && manifest.Enabled
}

// List returns the registered plugin names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.manifests))
	for name := range r.manifests {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Manifests returns every manifest ordered by plugin name.
func (r *Registry) Manifests() []pluginspec.Manifest {
	names := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pluginspec.Manifest, 0, len(names))
	for _, name := range names {
		if manifest, ok := r.manifests[name]; ok {
			out = append(out, manifest)
		}
	}
	return out
}

// EnabledManifests returns enabled manifests ordered by plugin name. This is
// the order in which the host runs each plugin's route registration.
func (r *Registry) EnabledManifests() []pluginspec.Manifest {
	all := r.Manifests()
	out := all[:0]
	for _, manifest := range all {
		if manifest.Enabled {
			out = append(out, manifest)
		}
	}
	return out
}

// SetEnabled toggles a plugin, persisting the change before applying it.
func (r *Registry) SetEnabled(ctx context.Context, name string, enabled bool) error {
	if _, ok := r.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	if r.backend != nil {
		if err := r.backend.SetEnabled(ctx, name, enabled); err != nil {
			if !errors.Is(err, db.ErrPluginNotFound) {
				return err
			}
			manifest, _ := r.Get(name)
			manifest.Enabled = enabled
			if err := r.persist(ctx, manifest); err != nil {
				return err
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	manifest, ok := r.manifests[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	manifest.Enabled = enabled
	r.manifests[name] = manifest
	return nil
}

// Install validates, persists and registers a manifest.
func (r *Registry) Install(ctx context.Context, manifest pluginspec.Manifest) error {
	manifest.Normalize()
	if err := manifest.Validate(); err != nil {
		return err
	}
	if r.backend != nil {
		if err := r.persist(ctx, manifest); err != nil {
			return err
		}
	}
	r.Register(manifest)
	return nil
}

// Remove deletes a plugin from the backend and the registry.
func (r *Registry) Remove(ctx context.Context, name string) error {
	if _, ok := r.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	if r.backend != nil {
		if err := r.backend.Delete(ctx, name); err != nil && !errors.Is(err, db.ErrPluginNotFound) {
			return err
		}
	}
	r.mu.Lock()
	delete(r.manifests, name)
	r.mu.Unlock()
	return nil
}

// Sync reconciles memory with the backend: manifests unknown to the backend
// are persisted, persisted enabled flags override in-memory defaults, and
// plugins installed earlier are restored from their stored manifest.
func (r *Registry) Sync(ctx context.Context) error {
	if r.backend == nil {
		return nil
	}
	persisted, err := r.backend.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]db.Plugin, len(persisted))
	for _, plugin := range persisted {
		known[plugin.Name] = plugin
	}

	for _, manifest := range r.Manifests() {
		row, ok := known[manifest.Name]
		if ok {
			manifest.Enabled = row.Enabled
		}
		if err := r.persist(ctx, manifest); err != nil {
			return err
		}
		r.Register(manifest)
		delete(known, manifest.Name)
	}

	for _, row := range known {
		manifest, err := manifestFromRow(row)
		if err != nil {
			return fmt.Errorf("plugin registry: restore %s: %w", row.Name, err)
		}
		r.Register(manifest)
	}
	return nil
}

func (r *Registry) persist(ctx context.Context, manifest pluginspec.Manifest) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	return r.backend.Upsert(ctx, db.Plugin{
		Name:      manifest.Name,
		Version:   manifest.Version,
		Enabled:   manifest.Enabled,
		ModuleDir: manifest.ModuleDir,
		Manifest:  data,
	})
}

func manifestFromRow(row db.Plugin) (pluginspec.Manifest, error) {
	var manifest pluginspec.Manifest
	if len(row.Manifest) > 0 {
		if err := json.Unmarshal(row.Manifest, &manifest); err != nil {
			return pluginspec.Manifest{}, err
		}
	}
	manifest.Name = row.Name
	manifest.Version = row.Version
	manifest.Enabled = row.Enabled
	if manifest.ModuleDir == "" {
		manifest.ModuleDir = row.ModuleDir
	}
	manifest.Normalize()
	if err := manifest.Validate(); err != nil {
		return pluginspec.Manifest{}, err
	}
	return manifest, nil
}
