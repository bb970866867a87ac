package frontend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/teople1/teople1/internal/routes"
)

// Page is the response for a matched page request.
type Page struct {
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	Component string            `json:"component"`
	Params    map[string]string `json:"params,omitempty"`
}

// Dispatcher hands page requests to the component registered for the
// matching route. Matching is done by chi; Dispatcher only translates the
// route collection into a chi router and swaps it on every Load.
type Dispatcher struct {
	logger *slog.Logger
	stat   func(string) (os.FileInfo, error)

	mu      sync.RWMutex
	handler http.Handler
}

// New returns a Dispatcher that answers 404 until the first Load.
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger, stat: os.Stat}
	d.handler = d.router(nil)
	return d
}

// Load rebuilds the router from collection. When two routes share a path shape the
// earlier one is kept. An invalid pattern leaves the current router in place.
func (d *Dispatcher) Load(collection []routes.Route) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("frontend: build router: %v", rec)
		}
	}()

	var entries []entry
	seen := make(map[string]string, len(collection))
	for _, route := range collection {
		patterns, convErr := Patterns(route.Path)
		if convErr != nil {
			return convErr
		}
		for _, pattern := range patterns {
			// chi stores {id} and {name} on the same node, so compare shapes.
			key := shapeKey(pattern)
			if first, dup := seen[key]; dup {
				d.logger.Warn("route shadowed by earlier registration", "route", route.Name, "path", route.Path, "pattern", pattern, "kept", first)
				continue
			}
			seen[key] = route.Name
			entries = append(entries, entry{route: route, pattern: pattern})
		}
	}

	handler := d.router(entries)
	d.mu.Lock()
	d.handler = handler
	d.mu.Unlock()
	return nil
}

// ServeHTTP dispatches to the current router.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.RLock()
	handler := d.handler
	d.mu.RUnlock()
	handler.ServeHTTP(w, r)
}

type entry struct {
	route   routes.Route
	pattern string
}

func (d *Dispatcher) router(entries []entry) http.Handler {
	r := chi.NewRouter()
	for _, e := range entries {
		r.Get(e.pattern, d.pageHandler(e.route))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route matches "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (d *Dispatcher) pageHandler(route routes.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.stat(route.Component); err != nil {
			d.logger.Error("component load failed", "route", route.Name, "component", route.Component, "error", err)
			status := http.StatusBadGateway
			if !errors.Is(err, os.ErrNotExist) {
				status = http.StatusInternalServerError
			}
			writeError(w, status, fmt.Sprintf("component for route %s could not be loaded", route.Name))
			return
		}

		page := Page{Name: route.Name, Path: route.Path, Component: route.Component}
		if route.Props {
			page.Params = urlParams(r)
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func urlParams(r *http.Request) map[string]string {
	params := map[string]string{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

// Pattern converts a frontend path (":id", ":id(\\d+)", ":id?") into a chi
// pattern with every parameter present.
func Pattern(path string) (string, error) {
	patterns, err := Patterns(path)
	if err != nil {
		return "", err
	}
	return patterns[0], nil
}

// Patterns converts a frontend path into the chi patterns it must match.
// An optional parameter (":id?") yields one pattern with the segment and one
// without it, the fullest pattern first.
func Patterns(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("frontend: path %q must start with /", path)
	}
	variants := [][]string{nil}
	for _, seg := range strings.Split(path, "/")[1:] {
		converted, optional, err := convertSegment(path, seg)
		if err != nil {
			return nil, err
		}
		next := make([][]string, 0, 2*len(variants))
		for _, v := range variants {
			next = append(next, append(append([]string(nil), v...), converted))
		}
		if optional {
			next = append(next, variants...)
		}
		variants = next
	}

	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, "/"+strings.Join(v, "/"))
	}
	return out, nil
}

func convertSegment(path, seg string) (string, bool, error) {
	if !strings.HasPrefix(seg, ":") {
		return seg, false, nil
	}
	name := seg[1:]
	optional := strings.HasSuffix(name, "?")
	name = strings.TrimSuffix(name, "?")
	regex := ""
	if open := strings.Index(name, "("); open >= 0 {
		if !strings.HasSuffix(name, ")") {
			return "", false, fmt.Errorf("frontend: path %q has unterminated parameter pattern", path)
		}
		regex = strings.ReplaceAll(name[open+1:len(name)-1], `\\`, `\`)
		name = name[:open]
	}
	if name == "" {
		return "", false, fmt.Errorf("frontend: path %q has an unnamed parameter", path)
	}
	if regex != "" {
		return "{" + name + ":" + regex + "}", optional, nil
	}
	return "{" + name + "}", optional, nil
}

// shapeKey drops parameter names from a chi pattern, keeping any regexp.
func shapeKey(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		inner := seg[1 : len(seg)-1]
		if colon := strings.Index(inner, ":"); colon >= 0 {
			segments[i] = "{" + inner[colon:] + "}"
		} else {
			segments[i] = "{}"
		}
	}
	return strings.Join(segments, "/")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
