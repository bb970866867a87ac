package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/routes"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, apiKey)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestListRoutesSendsAPIKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/routes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get(apiKeyHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Collection{Generation: 2, Routes: []routes.Route{{Name: "login", Path: "/demo/login"}}})
	}, "secret")

	got, err := c.ListRoutes(context.Background())
	if err != nil {
		t.Fatalf("list routes: %v", err)
	}
	if got.Generation != 2 || len(got.Routes) != 1 || got.Routes[0].Name != "login" {
		t.Fatalf("unexpected collection: %+v", got)
	}
}

func TestErrorBodyIsSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"resolve failed"}`))
	}, "")

	_, err := c.ReloadRoutes(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "resolve failed" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestGetPluginNotFoundIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"plugin not found"}`, http.StatusNotFound)
	}, "")

	manifest, err := c.GetPlugin(context.Background(), "ghost")
	if err != nil || manifest != nil {
		t.Fatalf("expected nil, nil; got %v, %v", manifest, err)
	}
}

func TestSetPluginEnabledPaths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}, "")

	ctx := context.Background()
	if err := c.SetPluginEnabled(ctx, "teople1", false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := c.SetPluginEnabled(ctx, "teople1", true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/api/v1/plugins/teople1/disable" || paths[1] != "/api/v1/plugins/teople1/enable" {
		t.Fatalf("unexpected paths: %v", paths)
	}
}

func TestInstallPluginPostsManifest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var manifest pluginspec.Manifest
		if err := json.NewDecoder(r.Body).Decode(&manifest); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Plugin{Name: manifest.Name, Version: manifest.Version, RouteCount: len(manifest.Routes)})
	}, "")

	installed, err := c.InstallPlugin(context.Background(), pluginspec.Manifest{
		Name:    "extra",
		Version: "0.1.0",
		Routes:  []routes.Descriptor{{Name: "extra", Path: "/extra", Component: "pages/extra.vue", Enabled: true}},
	})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if installed.Name != "extra" || installed.RouteCount != 1 {
		t.Fatalf("unexpected plugin: %+v", installed)
	}
}

func TestReloadHistoryLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/routes/history" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		json.NewEncoder(w).Encode([]Reload{{ID: 1, RouteCount: 5, Plugins: []string{"teople1"}}})
	}, "")

	reloads, err := c.ReloadHistory(context.Background(), 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(reloads) != 1 || reloads[0].Plugins[0] != "teople1" {
		t.Fatalf("unexpected reloads: %+v", reloads)
	}
}

func TestWatchEvents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: ROUTES_RELOADED\ndata: {\"type\":\"ROUTES_RELOADED\",\"route_count\":5}\n\n"))
		w.Write([]byte("event: PLUGIN_DISABLED\ndata: {\"type\":\"PLUGIN_DISABLED\",\"plugin\":\"teople1\"}\n\n"))
	}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []HostEvent
	if err := c.WatchEvents(ctx, func(ev HostEvent) { got = append(got, ev) }); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if len(got) != 2 || got[0].RouteCount != 5 || got[1].Plugin != "teople1" {
		t.Fatalf("unexpected events: %+v", got)
	}
}
