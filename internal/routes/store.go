package routes

import (
	"context"
	"fmt"
)

// ErrNotFound indicates the requested route does not exist.
var ErrNotFound = fmt.Errorf("route not found")

// Store persists snapshots of a host route collection.
type Store interface {
	Load(ctx context.Context) ([]Route, error)
	Save(ctx context.Context, routes []Route) error
}
