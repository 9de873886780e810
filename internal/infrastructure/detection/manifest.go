// Package detection provides the model manifest loader and the HTTP client
// for the remote image classifier.
package detection

import (
	"bytes"
	"fmt"
	"os"

	"github.com/qcdash/backend/internal/domain/detection"
	"gopkg.in/yaml.v3"
)

// LoadManifest reads a YAML manifest from path. An empty path returns the
// default good/minor/major manifest.
func LoadManifest(path string) (detection.Manifest, error) {
	if path == "" {
		return detection.DefaultManifest(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return detection.Manifest{}, fmt.Errorf("read model manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest decodes and validates a YAML manifest. Unknown keys are rejected.
func ParseManifest(raw []byte) (detection.Manifest, error) {
	m := detection.Manifest{Cutoff: detection.DefaultCutoff}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return detection.Manifest{}, fmt.Errorf("parse model manifest: %w", err)
	}
	if m.Name == "" {
		m.Name = "custom-classifier"
	}
	if err := m.Validate(); err != nil {
		return detection.Manifest{}, err
	}
	return m, nil
}
