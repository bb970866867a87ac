package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

const jsonManifest = `{
  "name": "courses",
  "version": "0.2.0",
  "module_dir": "modules/courses",
  "routes": [
    {"name": "course", "path": "/courses/:id", "component": "pages/course.vue", "props": true},
    {"name": "quiz", "path": "/quiz", "component": "pages/quiz.vue", "enabled": false}
  ]
}`

const hclManifest = `
plugin {
  name       = "teople2"
  version    = "1.0.0"
  module_dir = "/srv/modules/teople2"
  api_prefix = "/teople2/"
}

route "starting" {
  path      = "/starting"
  component = "pages/starting.vue"
}

endpoint "starting" {
  method = "get"
  path   = "starting/"
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileLoaderJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "courses.json", jsonManifest)

	manifest, err := FileLoader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !manifest.Enabled {
		t.Fatalf("missing enabled should default to true")
	}
	if want := filepath.Join(dir, "modules/courses"); manifest.ModuleDir != want {
		t.Fatalf("module dir %q, want %q", manifest.ModuleDir, want)
	}
	if len(manifest.Routes) != 2 || !manifest.Routes[0].Props || manifest.Routes[1].Enabled {
		t.Fatalf("unexpected routes: %+v", manifest.Routes)
	}
}

func TestFileLoaderHCL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "teople2.hcl", hclManifest)

	manifest, err := FileLoader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if manifest.Name != "teople2" || manifest.ModuleDir != "/srv/modules/teople2" {
		t.Fatalf("unexpected manifest: %+v", manifest)
	}
	if manifest.API.Prefix != "teople2" {
		t.Fatalf("prefix not normalized: %q", manifest.API.Prefix)
	}
	if ep := manifest.API.Endpoints["starting"]; ep.Method != "GET" || ep.Path != "starting/" {
		t.Fatalf("unexpected endpoint: %+v", ep)
	}
	if len(manifest.Routes) != 1 || !manifest.Routes[0].Enabled {
		t.Fatalf("unexpected routes: %+v", manifest.Routes)
	}
}

func TestFileLoaderRejects(t *testing.T) {
	dir := t.TempDir()
	if _, err := (FileLoader{}).Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := (FileLoader{}).Load(writeFile(t, dir, "x.yaml", "name: x")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := (FileLoader{}).Load(writeFile(t, dir, "bad.json", `{"name": "bad"}`)); err == nil {
		t.Fatalf("expected validation error for missing version")
	}
}

func TestLoadDirOrdersByFileName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.hcl", hclManifest)
	writeFile(t, dir, "a.json", jsonManifest)
	writeFile(t, dir, "README.md", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	manifests, err := LoadDir(FileLoader{}, dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(manifests) != 2 || manifests[0].Name != "courses" || manifests[1].Name != "teople2" {
		t.Fatalf("unexpected manifests: %+v", manifests)
	}

	missing, err := LoadDir(FileLoader{}, filepath.Join(dir, "absent"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("missing dir should load nothing, got %v %v", missing, err)
	}
}
