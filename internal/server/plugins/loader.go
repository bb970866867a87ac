package plugins

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/teople1/teople1/internal/pluginspec"
	"github.com/teople1/teople1/internal/routes"
)

// Loader handles manifest discovery and parsing.
type Loader interface {
	Load(path string) (pluginspec.Manifest, error)
}

// FileLoader loads plugin manifests from .json or .hcl files.
type FileLoader struct{}

// Load reads and parses a manifest file. A relative module_dir is taken
// relative to the manifest's own directory.
func (FileLoader) Load(path string) (pluginspec.Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: path required")
	}

	var (
		manifest pluginspec.Manifest
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		manifest, err = loadJSON(path)
	case ".hcl":
		manifest, err = loadHCL(path)
	default:
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: unsupported manifest format %s", path)
	}
	if err != nil {
		return pluginspec.Manifest{}, err
	}

	if manifest.ModuleDir != "" && !filepath.IsAbs(manifest.ModuleDir) {
		manifest.ModuleDir = filepath.Join(filepath.Dir(path), manifest.ModuleDir)
	}
	manifest.Normalize()
	if err := manifest.Validate(); err != nil {
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: %s: %w", path, err)
	}
	return manifest, nil
}

// LoadDir loads every manifest in dir, ordered by file name. A missing
// directory yields no manifests.
func LoadDir(loader Loader, dir string) ([]pluginspec.Manifest, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin loader: read dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".hcl":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	manifests := make([]pluginspec.Manifest, 0, len(files))
	for _, file := range files {
		manifest, err := loader.Load(file)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, manifest)
	}
	return manifests, nil
}

func loadJSON(path string) (pluginspec.Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: open %s: %w", path, err)
	}
	defer file.Close()

	manifest, err := decodeManifest(file)
	if err != nil {
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: decode %s: %w", path, err)
	}
	return manifest, nil
}

func decodeManifest(reader io.Reader) (pluginspec.Manifest, error) {
	manifest := pluginspec.Manifest{Enabled: true}
	if err := json.NewDecoder(reader).Decode(&manifest); err != nil {
		return pluginspec.Manifest{}, err
	}
	return manifest, nil
}

type hclManifestFile struct {
	Plugin    hclPluginBlock     `hcl:"plugin,block"`
	Routes    []*routes.HCLRoute `hcl:"route,block"`
	Endpoints []*hclEndpoint     `hcl:"endpoint,block"`
}

type hclPluginBlock struct {
	Name      string            `hcl:"name"`
	Version   string            `hcl:"version"`
	ModuleDir string            `hcl:"module_dir,optional"`
	APIPrefix string            `hcl:"api_prefix,optional"`
	Enabled   *bool             `hcl:"enabled,optional"`
	Labels    map[string]string `hcl:"labels,optional"`
}

type hclEndpoint struct {
	Name        string `hcl:"name,label"`
	Method      string `hcl:"method"`
	Path        string `hcl:"path"`
	Description string `hcl:"description,optional"`
}

func loadHCL(path string) (pluginspec.Manifest, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: parse %s: %w", path, diags)
	}
	return decodeHCLManifest(file.Body, path)
}

func decodeHCLManifest(body hcl.Body, path string) (pluginspec.Manifest, error) {
	var parsed hclManifestFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return pluginspec.Manifest{}, fmt.Errorf("plugin loader: decode %s: %w", path, diags)
	}

	manifest := pluginspec.Manifest{
		Name:      parsed.Plugin.Name,
		Version:   parsed.Plugin.Version,
		ModuleDir: parsed.Plugin.ModuleDir,
		Routes:    routes.TableFromHCL(parsed.Routes).Descriptors(),
		API:       pluginspec.APISpec{Prefix: parsed.Plugin.APIPrefix},
		Enabled:   parsed.Plugin.Enabled == nil || *parsed.Plugin.Enabled,
		Labels:    parsed.Plugin.Labels,
	}
	if len(parsed.Endpoints) > 0 {
		manifest.API.Endpoints = make(map[string]pluginspec.Endpoint, len(parsed.Endpoints))
		for _, endpoint := range parsed.Endpoints {
			manifest.API.Endpoints[endpoint.Name] = pluginspec.Endpoint{
				Description: endpoint.Description,
				Method:      endpoint.Method,
				Path:        endpoint.Path,
			}
		}
	}
	return manifest, nil
}
