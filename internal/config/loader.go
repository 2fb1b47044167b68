package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"notelaunch/internal/domain"
	"notelaunch/internal/tooling"
)

// DefaultPath is used when NOTELAUNCH_CONFIG is unset.
const DefaultPath = "notelaunch.yaml"

// EnvPath names the environment variable that overrides DefaultPath.
const EnvPath = "NOTELAUNCH_CONFIG"

// Hooks for tests to force error paths.
var (
	readFile      = os.ReadFile
	writeFile     = os.WriteFile
	mkdirAll      = os.MkdirAll
	marshalYAML   = yaml.Marshal
	marshalIndent = json.MarshalIndent
)

// PathFromEnv returns $NOTELAUNCH_CONFIG, or DefaultPath when it is unset.
func PathFromEnv() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Default returns a Config carrying the built-in tool table.
func Default() *domain.Config {
	return &domain.Config{
		Tools:  tooling.Builtin(),
		Launch: domain.LaunchConfig{TimeoutSec: 0},
		Infra:  domain.InfraConfig{LogFormat: "text", LogLevel: "info"},
	}
}

// WriteDefault writes Default() to path (YAML, or JSON for a .json path).
func WriteDefault(path string) error {
	return Save(path, Default())
}

// Load reads path, validates it against Schema(), and decodes it into a
// Config. YAML and JSON are both accepted; a .json extension selects JSON.
// The tool table is checked for blank and duplicate titles, and defaultTool,
// when set, must name a tool in the table. Executable paths are kept verbatim.
func Load(path string) (*domain.Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	doc, err := decodeDocument(path, data)
	if err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	if err := ValidateAgainstSchema(normalized, Schema()); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	var c domain.Config
	if err := json.Unmarshal(normalized, &c); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	reg, err := tooling.NewRegistry(c.Tools...)
	if err != nil {
		return nil, fmt.Errorf("config tools: %w", err)
	}
	if c.DefaultTool != "" && !reg.Has(c.DefaultTool) {
		return nil, fmt.Errorf("config defaultTool: %w: %q", tooling.ErrUnknownTool, c.DefaultTool)
	}
	return &c, nil
}

// LoadOrDefault loads path, falling back to Default() when the file does not
// exist. Any other error is returned.
func LoadOrDefault(path string) (*domain.Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	return nil, false, err
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *domain.Config) error {
	if cfg == nil {
		return fmt.Errorf("config save: nil config")
	}
	out := *cfg
	if out.Tools == nil {
		out.Tools = []domain.Descriptor{}
	}
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = marshalIndent(&out, "", "  ")
	} else {
		data, err = marshalYAML(&out)
	}
	if err != nil {
		return fmt.Errorf("config save marshal: %w", err)
	}
	if err := mkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config save mkdir: %w", err)
	}
	if err := writeFile(path, data, 0644); err != nil {
		return fmt.Errorf("config save write: %w", err)
	}
	return nil
}

func decodeDocument(path string, data []byte) (any, error) {
	var doc any
	if isJSON(path) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
