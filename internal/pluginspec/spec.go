package pluginspec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/teople1/teople1/internal/routes"
)

// SchemaVersion is the manifest format understood by this build.
const SchemaVersion = "1"

// Manifest captures what a plugin contributes to the host: frontend routes
// resolved against ModuleDir and backend endpoints mounted under API.Prefix.
type Manifest struct {
	SchemaVersion string              `json:"schema_version"`
	Name          string              `json:"name"`
	Version       string              `json:"version"`
	ModuleDir     string              `json:"module_dir"`
	Routes        []routes.Descriptor `json:"routes"`
	API           APISpec             `json:"api"`
	Enabled       bool                `json:"enabled"`
	Labels        map[string]string   `json:"labels,omitempty"`
}

// APISpec describes the backend surface of a plugin.
type APISpec struct {
	Prefix    string              `json:"prefix,omitempty"`
	Endpoints map[string]Endpoint `json:"endpoints,omitempty"`
}

// Endpoint describes one backend endpoint exposed by the plugin.
type Endpoint struct {
	Description string `json:"description,omitempty"`
	Method      string `json:"method"`
	Path        string `json:"path"`
}

// Normalize trims identifiers and fills defaults.
func (m *Manifest) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Version = strings.TrimSpace(m.Version)
	m.ModuleDir = strings.TrimSpace(m.ModuleDir)
	if strings.TrimSpace(m.SchemaVersion) == "" {
		m.SchemaVersion = SchemaVersion
	}
	m.API.Prefix = strings.Trim(strings.TrimSpace(m.API.Prefix), "/")
	if m.API.Prefix == "" && len(m.API.Endpoints) > 0 {
		m.API.Prefix = m.Name
	}
	for name, endpoint := range m.API.Endpoints {
		endpoint.Method = strings.ToUpper(strings.TrimSpace(endpoint.Method))
		endpoint.Path = strings.TrimSpace(endpoint.Path)
		m.API.Endpoints[name] = endpoint
	}
}

// Validate reports an error when required manifest fields are missing or inconsistent.
// Duplicate route names are allowed; the host decides how to treat them.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("plugin manifest: name required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("plugin manifest: version required")
	}
	if len(m.Routes) > 0 && strings.TrimSpace(m.ModuleDir) == "" {
		return fmt.Errorf("plugin manifest: module_dir required when routes are declared")
	}
	for i, route := range m.Routes {
		if strings.TrimSpace(route.Name) == "" {
			return fmt.Errorf("plugin manifest: route %d missing name", i)
		}
		if !strings.HasPrefix(route.Path, "/") {
			return fmt.Errorf("plugin manifest: route %s path must start with /", route.Name)
		}
		if strings.TrimSpace(route.Component) == "" {
			return fmt.Errorf("plugin manifest: route %s missing component", route.Name)
		}
	}
	for name, endpoint := range m.API.Endpoints {
		if !validMethod(endpoint.Method) {
			return fmt.Errorf("plugin manifest: endpoint %s has unsupported method %q", name, endpoint.Method)
		}
		if strings.TrimSpace(endpoint.Path) == "" {
			return fmt.Errorf("plugin manifest: endpoint %s missing path", name)
		}
	}
	return nil
}

// Table returns the manifest's routes as a read-only table.
func (m Manifest) Table() routes.Table {
	return routes.NewTable(m.Routes...)
}

func validMethod(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Encode encodes the manifest as base64url JSON, for passing through flags or env.
func Encode(m Manifest) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode decodes a base64url manifest string into a Manifest. A manifest
// without an "enabled" field decodes as enabled.
func Decode(value string) (Manifest, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return Manifest{}, err
	}
	manifest := Manifest{Enabled: true}
	if err := json.Unmarshal(decoded, &manifest); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}
