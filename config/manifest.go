package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes a per-file batch. Entries without their own size or
// format inherit Defaults.
//
//	defaults:
//	  size_mb: 50
//	  format: mp4
//	files:
//	  - path: talk.mov
//	    size_mb: 20
//	  - path: clip.mkv
//	    format: webm
type Manifest struct {
	Defaults ManifestTarget  `yaml:"defaults"`
	Files    []ManifestEntry `yaml:"files"`
}

// ManifestTarget is a size/format pair as written in the manifest
type ManifestTarget struct {
	SizeMB float64 `yaml:"size_mb"`
	Format string  `yaml:"format"`
}

// ManifestEntry is one file of a manifest
type ManifestEntry struct {
	Path           string `yaml:"path"`
	ManifestTarget `yaml:",inline"`
}

// Entry is a fully resolved manifest line. Format is empty when neither the
// entry nor the defaults name one.
type Entry struct {
	Path   string
	SizeMB float64
	Format Format
}

// LoadManifest reads and resolves a YAML manifest. Relative paths are
// resolved against the manifest's directory.
func LoadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	entries, err := ParseManifest(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return entries, nil
}

// ParseManifest decodes manifest YAML, resolving relative paths against baseDir
func ParseManifest(data []byte, baseDir string) ([]Entry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("no files listed")
	}

	entries := make([]Entry, 0, len(m.Files))
	for i, f := range m.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("files[%d]: path is required", i)
		}

		size := f.SizeMB
		if size == 0 {
			size = m.Defaults.SizeMB
		}
		if size <= 0 {
			return nil, fmt.Errorf("files[%d] %s: size_mb must be greater than 0", i, f.Path)
		}

		var format Format
		name := f.Format
		if name == "" {
			name = m.Defaults.Format
		}
		if name != "" {
			parsed, err := ParseFormat(name)
			if err != nil {
				return nil, fmt.Errorf("files[%d] %s: %w", i, f.Path, err)
			}
			format = parsed
		}

		p := f.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		entries = append(entries, Entry{Path: p, SizeMB: size, Format: format})
	}
	return entries, nil
}
