package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/routes"
	"github.com/teople1/teople1/internal/server/db"
	"github.com/teople1/teople1/internal/server/eventbus"
	"github.com/teople1/teople1/internal/server/events"
	"github.com/teople1/teople1/internal/server/host"
	"github.com/teople1/teople1/internal/server/plugins"
)

// APIKeyHeader carries the management API key.
const APIKeyHeader = "X-Teople1-API-Key"

// PluginAPI is implemented by plugins that expose backend endpoints.
type PluginAPI interface {
	Register(group gin.IRoutes)
}

// Params configures the HTTP API.
type Params struct {
	Logger  *slog.Logger
	Host    *host.Host
	Bus     eventbus.Bus
	Reloads db.ReloadRepository
	// Frontend receives every request no API route claims.
	Frontend   http.Handler
	PluginAPIs map[string]PluginAPI
	APIKey     string
	AllowCIDRs []string
}

// New constructs the HTTP API router.
func New(p Params) http.Handler {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(p.Logger))

	api := &apiServer{logger: p.Logger, host: p.Host, bus: p.Bus, reloads: p.Reloads}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	guarded := []gin.HandlerFunc{allowListMiddleware(p.Logger, p.AllowCIDRs)}
	if p.APIKey != "" {
		guarded = append(guarded, apiKeyMiddleware(p.APIKey))
	}

	v1 := r.Group("/api/v1", guarded...)
	{
		rt := v1.Group("/routes")
		{
			rt.GET("", api.listRoutes)
			rt.GET("/check", api.checkRoutes)
			rt.GET("/history", api.reloadHistory)
			rt.POST("/reload", api.reloadRoutes)
			rt.GET("/:name", api.getRoute)
		}

		pl := v1.Group("/plugins")
		{
			pl.GET("", api.listPlugins)
			pl.POST("", api.installPlugin)
			pl.GET("/:name", api.getPlugin)
			pl.DELETE("/:name", api.removePlugin)
			pl.POST("/:name/enable", api.togglePlugin(true))
			pl.POST("/:name/disable", api.togglePlugin(false))
		}

		v1.GET("/events", api.streamEvents)
	}

	r.GET("/ws/v1/events", append(guarded, api.eventsWebSocket)...)

	for name, pluginAPI := range p.PluginAPIs {
		prefix := name
		if manifest, ok := p.Host.Registry().Get(name); ok && manifest.API.Prefix != "" {
			prefix = manifest.API.Prefix
		}
		group := r.Group("/api/"+prefix, api.requirePluginEnabled(name))
		pluginAPI.Register(group)
	}

	if p.Frontend != nil {
		r.NoRoute(gin.WrapH(p.Frontend))
	}
	return r
}

type apiServer struct {
	logger  *slog.Logger
	host    *host.Host
	bus     eventbus.Bus
	reloads db.ReloadRepository
}

type routesResponse struct {
	Generation uint64         `json:"generation"`
	Routes     []routes.Route `json:"routes"`
}

type pluginResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Enabled    bool   `json:"enabled"`
	ModuleDir  string `json:"module_dir"`
	RouteCount int    `json:"route_count"`
	APIPrefix  string `json:"api_prefix,omitempty"`
}

type reloadResponse struct {
	ID         int64     `json:"id"`
	RouteCount int       `json:"route_count"`
	Plugins    []string  `json:"plugins"`
	ReloadedAt time.Time `json:"reloaded_at"`
}

func pluginToResponse(m pluginspec.Manifest) pluginResponse {
	return pluginResponse{
		Name:       m.Name,
		Version:    m.Version,
		Enabled:    m.Enabled,
		ModuleDir:  m.ModuleDir,
		RouteCount: len(m.Table().Enabled()),
		APIPrefix:  m.API.Prefix,
	}
}

func (api *apiServer) requirePluginEnabled(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !api.host.Registry().Enabled(name) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "plugin " + name + " is disabled"})
			return
		}
		c.Next()
	}
}

func (api *apiServer) listRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, routesResponse{Generation: api.host.Generation(), Routes: api.host.Routes()})
}

func (api *apiServer) checkRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, routes.Duplicates(api.host.Routes()))
}

func (api *apiServer) getRoute(c *gin.Context) {
	route, err := api.host.Lookup(c.Param("name"))
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, route)
}

func (api *apiServer) reloadRoutes(c *gin.Context) {
	if err := api.host.Reload(c.Request.Context()); err != nil {
		api.logger.Error("reload routes", "error", err)
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	api.listRoutes(c)
}

func (api *apiServer) reloadHistory(c *gin.Context) {
	if api.reloads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reload history not available"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	items, err := api.reloads.Recent(c.Request.Context(), limit)
	if err != nil {
		api.logger.Error("reload history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := make([]reloadResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, reloadResponse{ID: item.ID, RouteCount: item.RouteCount, Plugins: item.Plugins, ReloadedAt: item.ReloadedAt})
	}
	c.JSON(http.StatusOK, resp)
}

func (api *apiServer) listPlugins(c *gin.Context) {
	manifests := api.host.Registry().Manifests()
	resp := make([]pluginResponse, 0, len(manifests))
	for _, m := range manifests {
		resp = append(resp, pluginToResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

func (api *apiServer) getPlugin(c *gin.Context) {
	manifest, ok := api.host.Registry().Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "plugin not found"})
		return
	}
	c.JSON(http.StatusOK, manifest)
}

func (api *apiServer) installPlugin(c *gin.Context) {
	manifest := pluginspec.Manifest{Enabled: true}
	if err := c.ShouldBindJSON(&manifest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	manifest.Normalize()
	ctx := c.Request.Context()
	registry := api.host.Registry()
	previous, existed := registry.Get(manifest.Name)
	if err := registry.Install(ctx, manifest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := api.host.Reload(ctx); err != nil {
		api.logger.Error("reload after install", "plugin", manifest.Name, "error", err)
		api.rollbackInstall(ctx, manifest.Name, previous, existed)
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, pluginToResponse(manifest))
}

// rollbackInstall restores the manifest that was registered under name before
// a failed install, or removes the plugin when there was none.
func (api *apiServer) rollbackInstall(ctx context.Context, name string, previous pluginspec.Manifest, existed bool) {
	registry := api.host.Registry()
	if !existed {
		if err := registry.Remove(ctx, name); err != nil {
			api.logger.Warn("roll back install", "plugin", name, "error", err)
		}
		return
	}
	if err := registry.Install(ctx, previous); err != nil {
		api.logger.Warn("restore previous manifest", "plugin", name, "error", err)
		registry.Register(previous)
	}
}

func (api *apiServer) removePlugin(c *gin.Context) {
	ctx := c.Request.Context()
	if err := api.host.Registry().Remove(ctx, c.Param("name")); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	if err := api.host.Reload(ctx); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *apiServer) togglePlugin(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := api.host.SetPluginEnabled(c.Request.Context(), name, enabled); err != nil {
			api.logger.Error("toggle plugin", "plugin", name, "enabled", enabled, "error", err)
			c.JSON(statusFromError(err), gin.H{"error": err.Error()})
			return
		}
		manifest, _ := api.host.Registry().Get(name)
		c.JSON(http.StatusOK, pluginToResponse(manifest))
	}
}

func statusFromError(err error) int {
	var resolveErr routes.ResolveError
	switch {
	case errors.Is(err, plugins.ErrPluginNotFound), errors.Is(err, routes.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &resolveErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (api *apiServer) streamEvents(c *gin.Context) {
	if api.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event streaming not available"})
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	eventsCh := make(chan any, 16)
	unsubscribe, err := api.bus.Subscribe(events.TopicHost, eventsCh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-eventsCh:
			event, ok := payload.(events.HostEvent)
			if !ok {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				api.logger.Error("marshal host event", "error", err)
				continue
			}
			if _, err := c.Writer.Write([]byte("event: " + event.Type + "\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (api *apiServer) eventsWebSocket(c *gin.Context) {
	if api.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event streaming not available"})
		return
	}
	conn, err := (&websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}).Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Error("events ws upgrade", "error", err)
		return
	}
	defer conn.Close()

	eventsCh := make(chan any, 16)
	unsubscribe, err := api.bus.Subscribe(events.TopicHost, eventsCh)
	if err != nil {
		api.logger.Error("events ws subscribe", "error", err)
		return
	}
	defer unsubscribe()

	// The read loop only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case payload := <-eventsCh:
			event, ok := payload.(events.HostEvent)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
