package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIListenAddr = "0.0.0.0:8000"
	defaultModuleDir     = "modules/teople1"
	defaultStateDir      = "~/.teople1"
)

// ServerConfig captures the runtime configuration required by the daemon.
type ServerConfig struct {
	DatabasePath  string
	APIListenAddr string
	// ModuleDir is the directory the built-in plugin's components resolve against.
	ModuleDir  string
	PluginsDir string
	RoutesPath string
	APIKey     string
	AllowCIDRs []string
	LoginUser  string
	LoginPass  string
	// ExtraManifests are base64url-encoded plugin manifests passed inline.
	ExtraManifests []string
}

// FromEnv loads server configuration from environment variables, applying
// defaults when unset.
func FromEnv() (ServerConfig, error) {
	stateDir := expandPath(getenv("TEOPLE1_STATE_DIR", defaultStateDir))
	cfg := ServerConfig{
		DatabasePath:   expandPath(getenv("TEOPLE1_DB_PATH", filepath.Join(stateDir, "state.db"))),
		APIListenAddr:  strings.TrimSpace(getenv("TEOPLE1_API_LISTEN", defaultAPIListenAddr)),
		ModuleDir:      expandPath(getenv("TEOPLE1_MODULE_DIR", defaultModuleDir)),
		PluginsDir:     expandPath(getenv("TEOPLE1_PLUGINS_DIR", "")),
		RoutesPath:     expandPath(getenv("TEOPLE1_ROUTES_PATH", filepath.Join(stateDir, "routes.json"))),
		APIKey:         strings.TrimSpace(os.Getenv("TEOPLE1_API_KEY")),
		AllowCIDRs:     splitList(os.Getenv("TEOPLE1_API_ALLOW_CIDR")),
		LoginUser:      getenv("TEOPLE1_LOGIN_USER", "admin"),
		LoginPass:      getenv("TEOPLE1_LOGIN_PASSWORD", "admin123"),
		ExtraManifests: splitList(os.Getenv("TEOPLE1_PLUGIN_MANIFESTS")),
	}

	if cfg.APIListenAddr == "" {
		return ServerConfig{}, fmt.Errorf("api listen address required")
	}
	if _, _, err := net.SplitHostPort(cfg.APIListenAddr); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid api listen address %q: %w", cfg.APIListenAddr, err)
	}
	if cfg.DatabasePath == "" {
		return ServerConfig{}, fmt.Errorf("database path required")
	}

	moduleDir, err := absPath(cfg.ModuleDir)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("resolve module dir %q: %w", cfg.ModuleDir, err)
	}
	cfg.ModuleDir = moduleDir

	for _, cidr := range cfg.AllowCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return ServerConfig{}, fmt.Errorf("invalid allow cidr %q: %w", cidr, err)
		}
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}

// absPath anchors a relative module directory next to the executable when it
// exists there, otherwise to the working directory.
func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), path)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return filepath.Abs(path)
}
