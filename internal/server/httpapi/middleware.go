package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request. Client errors log at warn and
// server errors at error.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "page"
		}
		args := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			args = append(args, slog.String("error", c.Errors.String()))
		}
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			logger.Error("http request", args...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", args...)
		default:
			logger.Info("http request", args...)
		}
	}
}

// allowListMiddleware admits only clients inside one of cidrs. Unparseable
// entries are logged and skipped; an empty list admits everyone.
func allowListMiddleware(logger *slog.Logger, cidrs []string) gin.HandlerFunc {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			logger.Warn("ignoring allow-list entry", "cidr", raw, "error", err)
			continue
		}
		prefixes = append(prefixes, prefix.Masked())
	}

	return func(c *gin.Context) {
		if len(prefixes) == 0 {
			c.Next()
			return
		}
		addr, err := netip.ParseAddr(c.ClientIP())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid client IP"})
			return
		}
		addr = addr.Unmap()
		for _, prefix := range prefixes {
			if prefix.Contains(addr) {
				c.Next()
				return
			}
		}
		logger.Warn("request outside allow-list", "ip", addr.String(), "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

// apiKeyMiddleware requires the key in APIKeyHeader, or in the api_key query
// parameter for clients that cannot set headers (EventSource, websockets).
func apiKeyMiddleware(expected string) gin.HandlerFunc {
	want := []byte(expected)
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			provided = c.Query("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
