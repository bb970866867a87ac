package teople1

import (
	"net/http"

	"github.com/teople1/teople1/internal/pluginspec"
)

const (
	// Name identifies the plugin in the registry and in its API prefix.
	Name    = "teople1"
	Version = "1.0.0"
)

// Manifest returns the built-in manifest with components resolved against moduleDir.
func Manifest(moduleDir string) pluginspec.Manifest {
	return pluginspec.Manifest{
		SchemaVersion: pluginspec.SchemaVersion,
		Name:          Name,
		Version:       Version,
		ModuleDir:     moduleDir,
		Routes:        Table.Descriptors(),
		API: pluginspec.APISpec{
			Prefix: Name,
			Endpoints: map[string]pluginspec.Endpoint{
				"starting": {
					Description: "Starting page content",
					Method:      http.MethodGet,
					Path:        "starting/",
				},
				"login": {
					Description: "Demo credential check",
					Method:      http.MethodPost,
					Path:        "custom-login/",
				},
			},
		},
		Enabled: true,
	}
}
