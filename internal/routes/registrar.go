package routes

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Resolver maps a module-relative component reference to the location the
// host loads it from.
type Resolver func(baseDir, rel string) (string, error)

// ResolveError reports the route whose component could not be resolved.
type ResolveError struct {
	Route string
	Err   error
}

func (e ResolveError) Error() string {
	return fmt.Sprintf("routes: resolve component for %q: %v", e.Route, e.Err)
}

func (e ResolveError) Unwrap() error { return e.Err }

// JoinResolver joins rel onto baseDir lexically. An absolute rel is returned
// cleaned and unchanged. The target is never checked for existence.
func JoinResolver(baseDir, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("empty component reference")
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel), nil
	}
	if strings.TrimSpace(baseDir) == "" {
		return "", errors.New("module directory required")
	}
	return filepath.Join(baseDir, rel), nil
}

// SlashResolver concatenates baseDir and rel with a single slash.
func SlashResolver(baseDir, rel string) (string, error) {
	return baseDir + "/" + rel, nil
}

// Extend returns a new collection holding current followed by one route per
// enabled descriptor of table, in table order, with components resolved
// against moduleDir. current is not modified. Duplicate names or paths are
// kept as-is; calling Extend twice on the same collection appends the table
// twice.
func Extend(current []Route, table Table, moduleDir string, resolve Resolver) ([]Route, error) {
	if resolve == nil {
		return nil, errors.New("routes: resolver required")
	}

	enabled := table.Enabled()
	out := make([]Route, 0, len(current)+len(enabled))
	out = append(out, current...)
	for _, d := range enabled {
		component, err := resolve(moduleDir, d.Component)
		if err != nil {
			return nil, ResolveError{Route: d.Name, Err: err}
		}
		out = append(out, Route{
			Name:      d.Name,
			Path:      d.Path,
			Component: component,
			Props:     d.Props,
		})
	}
	return out, nil
}
