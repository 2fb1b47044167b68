package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvPath overrides ConfigPath when set.
const EnvPath = "NOTELAUNCH_PREFS"

// Prefs holds per-user choices that do not belong in the shared tool table.
type Prefs struct {
	DefaultTool string `json:"defaultTool,omitempty"`
	ExportDir   string `json:"exportDir,omitempty"`
}

// ResolveExport joins a relative export path onto ExportDir. Absolute paths,
// and every path while ExportDir is unset, come back unchanged.
func (p *Prefs) ResolveExport(path string) string {
	if p.ExportDir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ExportDir, path)
}

// Manager loads and saves user preferences from a JSON file.
type Manager struct {
	path  string
	prefs *Prefs
}

// NewManager returns a manager that reads/writes the given path.
func NewManager(path string) *Manager {
	return &Manager{path: path, prefs: &Prefs{}}
}

// Load reads prefs from the manager's path. If the file does not exist,
// prefs are reset to zero values and no error is returned.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.prefs = &Prefs{}
			return nil
		}
		return fmt.Errorf("prefs load: %w", err)
	}
	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("prefs parse: %w", err)
	}
	m.prefs = &p
	return nil
}

// Prefs returns the current in-memory prefs (never nil).
func (m *Manager) Prefs() *Prefs {
	if m.prefs == nil {
		m.prefs = &Prefs{}
	}
	return m.prefs
}

// Get returns a preference by key. Keys match SetPreference.
func (m *Manager) Get(key string) (string, error) {
	p := m.Prefs()
	switch strings.ToLower(key) {
	case "defaulttool":
		return p.DefaultTool, nil
	case "exportdir":
		return p.ExportDir, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// SetPreference updates a preference by key and writes prefs to disk immediately.
// Supported keys: "defaultTool", "exportDir". Unknown keys return an error.
func (m *Manager) SetPreference(key, value string) error {
	p := m.Prefs()
	switch strings.ToLower(key) {
	case "defaulttool":
		p.DefaultTool = value
	case "exportdir":
		p.ExportDir = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return m.save()
}

func (m *Manager) save() error {
	dir := filepath.Dir(m.path)
	if err := prefsMkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("prefs save mkdir: %w", err)
	}
	data, err := prefsMarshalIndent(m.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs save marshal: %w", err)
	}
	if err := prefsWriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("prefs save write: %w", err)
	}
	return nil
}

// ConfigPath returns $NOTELAUNCH_PREFS, or UserConfigDir()/notelaunch/prefs.json.
// The notelaunch directory is created if missing.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	base, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("prefs config path: %w", err)
	}
	dir := filepath.Join(base, "notelaunch")
	if err := prefsMkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("prefs config path mkdir: %w", err)
	}
	return filepath.Join(dir, "prefs.json"), nil
}

// ErrUnknownKey is returned when Get or SetPreference is called with an unsupported key.
var ErrUnknownKey = errors.New("unknown preference key")

// Hooks for tests to force error paths.
var (
	prefsMarshalIndent = json.MarshalIndent
	prefsWriteFile     = os.WriteFile
	userConfigDir      = os.UserConfigDir
	prefsMkdirAll      = os.MkdirAll
)
