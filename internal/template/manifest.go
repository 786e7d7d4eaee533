package template

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed layouts
var embedded embed.FS

// Layouts returns the built-in layout directory.
func Layouts() fs.FS {
	sub, err := fs.Sub(embedded, "layouts")
	if err != nil {
		panic(err)
	}
	return sub
}

// Manifest lists the templates known at startup.
type Manifest struct {
	Default   string          `yaml:"default"`
	Templates []ManifestEntry `yaml:"templates"`
}

// ManifestEntry binds a template name to a generator kind and layout file.
type ManifestEntry struct {
	Name       string `yaml:"name"`
	Generator  string `yaml:"generator"`
	Layout     string `yaml:"layout"`
	Background string `yaml:"background"`
	Fixed      bool   `yaml:"fixed"`
}

// LoadManifest reads manifest.yaml from dir.
func LoadManifest(dir fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(dir, "manifest.yaml")
	if err != nil {
		return nil, fmt.Errorf("template manifest: %w", err)
	}
	return ParseManifest(data)
}

// LoadManifestFile reads a manifest from a path on disk.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and checks a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("template manifest: %w", err)
	}
	if m.Default == "" {
		return nil, fmt.Errorf("template manifest: default is required")
	}
	found := false
	for _, e := range m.Templates {
		if e.Name == "" || e.Generator == "" {
			return nil, fmt.Errorf("template manifest: name and generator are required")
		}
		if e.Name == m.Default {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("template manifest: default %q is not listed", m.Default)
	}
	return &m, nil
}
