package db

import (
	"context"
	"errors"
	"time"
)

// ErrPluginNotFound is returned when no plugin row matches the requested name.
var ErrPluginNotFound = errors.New("db: plugin not found")

// Store describes the persistence surface consumed by the server.
type Store interface {
	Close(ctx context.Context) error
	Queries() Queries
	WithTx(ctx context.Context, fn func(Queries) error) error
}

// Plugin is the persisted state of an installed plugin. Manifest holds the
// full manifest JSON so installed plugins survive a restart.
type Plugin struct {
	ID          int64
	Name        string
	Version     string
	Enabled     bool
	ModuleDir   string
	Manifest    []byte
	InstalledAt time.Time
	UpdatedAt   time.Time
}

type PluginRepository interface {
	Upsert(ctx context.Context, plugin Plugin) error
	List(ctx context.Context) ([]Plugin, error)
	GetByName(ctx context.Context, name string) (*Plugin, error)
	SetEnabled(ctx context.Context, name string, enabled bool) error
	Delete(ctx context.Context, name string) error
}

// Reload records one completed route-extension pass.
type Reload struct {
	ID         int64
	RouteCount int
	Plugins    []string
	ReloadedAt time.Time
}

// ReloadRepository keeps the history of route reloads.
type ReloadRepository interface {
	Record(ctx context.Context, reload Reload) (int64, error)
	Recent(ctx context.Context, limit int) ([]Reload, error)
}

// Queries exposes repository accessors bound to a specific connection scope
// (either the root connection or a transaction).
type Queries interface {
	Plugins() PluginRepository
	Reloads() ReloadRepository
}
