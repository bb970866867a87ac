package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teople1/teople1/internal/frontend"
	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/routes"
	"github.com/teople1/teople1/internal/server/app"
	"github.com/teople1/teople1/internal/server/config"
	"github.com/teople1/teople1/internal/server/db/sqlite"
	"github.com/teople1/teople1/internal/server/eventbus/memory"
	"github.com/teople1/teople1/internal/server/host"
	"github.com/teople1/teople1/internal/server/httpapi"
	"github.com/teople1/teople1/internal/server/plugins"
	"github.com/teople1/teople1/internal/shared/logging"
	"github.com/teople1/teople1/internal/teople1"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.New("teople1d")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}

	manifests := []pluginspec.Manifest{teople1.Manifest(cfg.ModuleDir)}
	fromDir, err := plugins.LoadDir(plugins.FileLoader{}, cfg.PluginsDir)
	if err != nil {
		logger.Error("load plugin manifests", "dir", cfg.PluginsDir, "error", err)
		os.Exit(1)
	}
	manifests = append(manifests, fromDir...)
	manifests = append(manifests, decodeManifestsOrExit(cfg.ExtraManifests, logger)...)

	registry := plugins.NewRegistry(store.Queries().Plugins(), manifests...)
	if err := registry.Sync(ctx); err != nil {
		logger.Error("sync plugin registry", "error", err)
		os.Exit(1)
	}

	snapshots, err := routes.NewFileStore(cfg.RoutesPath)
	if err != nil {
		logger.Error("open route snapshot", "path", cfg.RoutesPath, "error", err)
		os.Exit(1)
	}

	events := memory.New()
	routeHost, err := host.New(host.Params{
		Registry: registry,
		Resolver: routes.JoinResolver,
		Store:    snapshots,
		Reloads:  store.Queries().Reloads(),
		Bus:      events,
		Logger:   logger.With("component", "host"),
	})
	if err != nil {
		logger.Error("init host", "error", err)
		os.Exit(1)
	}

	pages := frontend.New(logger.With("component", "frontend"))
	routeHost.OnReload(func(collection []routes.Route) {
		if err := pages.Load(collection); err != nil {
			logger.Error("rebuild page router", "error", err)
		}
	})

	handler := httpapi.New(httpapi.Params{
		Logger:   logger,
		Host:     routeHost,
		Bus:      events,
		Reloads:  store.Queries().Reloads(),
		Frontend: pages,
		PluginAPIs: map[string]httpapi.PluginAPI{
			teople1.Name: teople1.NewAPI(teople1.Credentials{Username: cfg.LoginUser, Password: cfg.LoginPass}),
		},
		APIKey:     cfg.APIKey,
		AllowCIDRs: cfg.AllowCIDRs,
	})

	daemon, err := app.New(cfg, logger, store, routeHost, handler)
	if err != nil {
		logger.Error("init app", "error", err)
		os.Exit(1)
	}

	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon exit", "error", err)
		os.Exit(1)
	}
}

func decodeManifestsOrExit(encoded []string, logger *slog.Logger) []pluginspec.Manifest {
	out := make([]pluginspec.Manifest, 0, len(encoded))
	for _, value := range encoded {
		manifest, err := pluginspec.Decode(value)
		if err != nil {
			logger.Error("decode inline plugin manifest", "error", err)
			os.Exit(1)
		}
		out = append(out, manifest)
	}
	return out
}
