package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"notelaunch/internal/domain"
	"notelaunch/internal/tooling"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// =============================================================================
// Load
// =============================================================================

func TestLoad_WhenFileDoesNotExist_ShouldReturnNotExistError(t *testing.T) {
	_, err := Load("/nonexistent/notelaunch.yaml")
	if err == nil {
		t.Fatal("expected error when config file does not exist")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoad_WhenYAMLValid_ShouldDecodeToolsInOrder(t *testing.T) {
	path := writeConfig(t, "notelaunch.yaml", `
tools:
  - title: MuseScore 4
    tooltip: Open in MuseScore
    executablePath: /opt/tool/bin/app
  - title: Finale
    executablePath: "C:\\Program Files\\Finale.exe"
defaultTool: Finale
launch:
  timeoutSec: 30
  allowedExecutables: [app]
history:
  dbUrl: file:history.db
infra:
  logFormat: json
  logLevel: debug
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &domain.Config{
		Tools: []domain.Descriptor{
			{Title: "MuseScore 4", Tooltip: "Open in MuseScore", ExecutablePath: "/opt/tool/bin/app"},
			{Title: "Finale", ExecutablePath: `C:\Program Files\Finale.exe`},
		},
		DefaultTool: "Finale",
		Launch:      domain.LaunchConfig{TimeoutSec: 30, AllowedExecutables: []string{"app"}},
		History:     domain.HistoryConfig{DBURL: "file:history.db"},
		Infra:       domain.InfraConfig{LogFormat: "json", LogLevel: "debug"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_WhenJSONValid_ShouldDecode(t *testing.T) {
	path := writeConfig(t, "notelaunch.json", `{
		"tools": [{"title": "MuseScore", "executablePath": "/usr/bin/mscore"}],
		"infra": {"logFormat": "text", "logLevel": "info"}
	}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Tools) != 1 || got.Tools[0].ExecutablePath != "/usr/bin/mscore" {
		t.Errorf("unexpected tools: %+v", got.Tools)
	}
}

func TestLoad_ShouldKeepExecutablePathVerbatim(t *testing.T) {
	path := writeConfig(t, "notelaunch.json", `{
		"tools": [{"title": "Odd", "executablePath": "./bin/../bin//app "}]
	}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Tools[0].ExecutablePath != "./bin/../bin//app " {
		t.Errorf("executable path was normalized: %q", got.Tools[0].ExecutablePath)
	}
}

func TestLoad_WhenExecutablePathMissing_ShouldAcceptEmpty(t *testing.T) {
	path := writeConfig(t, "notelaunch.yaml", "tools:\n  - title: Unconfigured\n")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("empty executable path must load: %v", err)
	}
	if got.Tools[0].ExecutablePath != "" {
		t.Errorf("want empty executable path, got %q", got.Tools[0].ExecutablePath)
	}
}

func TestLoad_WhenInvalidSyntax_ShouldReturnParseError(t *testing.T) {
	cases := map[string]string{
		"notelaunch.json": `{ invalid }`,
		"notelaunch.yaml": "tools: [unclosed",
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, name, content))
		if err == nil || !strings.Contains(err.Error(), "config parse") {
			t.Errorf("%s: want parse error, got %v", name, err)
		}
	}
}

func TestLoad_WhenSchemaViolated_ShouldReturnValidateError(t *testing.T) {
	cases := map[string]string{
		"missing tools":    `infra: {logFormat: text}`,
		"unknown key":      "tools: []\ncolour: red\n",
		"unknown tool key": "tools:\n  - title: A\n    args: [x]\n",
		"missing title":    "tools:\n  - executablePath: /bin/a\n",
		"empty title":      "tools:\n  - title: \"\"\n",
		"bad log format":   "tools: []\ninfra: {logFormat: xml}\n",
		"negative timeout": "tools: []\nlaunch: {timeoutSec: -1}\n",
		"timeout too long": "tools: []\nlaunch: {timeoutSec: 9223372037}\n",
		"empty document":   "",
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, "notelaunch.yaml", content))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !strings.Contains(err.Error(), "config validate") {
			t.Errorf("%s: want validate error, got %v", name, err)
		}
	}
}

func TestLoad_WhenTimeoutAtLimit_ShouldAccept(t *testing.T) {
	// One day is the largest timeout; larger values would overflow time.Duration
	// arithmetic long before they became useful.
	cfg, err := Load(writeConfig(t, "notelaunch.yaml", "tools: []\nlaunch: {timeoutSec: 86400}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Launch.TimeoutSec != 86400 {
		t.Errorf("TimeoutSec: want 86400, got %d", cfg.Launch.TimeoutSec)
	}
}

func TestLoad_WhenDuplicateTitles_ShouldReturnError(t *testing.T) {
	path := writeConfig(t, "notelaunch.yaml", `
tools:
  - title: MuseScore
    executablePath: /a
  - title: musescore
    executablePath: /b
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("want duplicate title error, got %v", err)
	}
}

func TestLoad_WhenDefaultToolUnknown_ShouldReturnErrUnknownTool(t *testing.T) {
	path := writeConfig(t, "notelaunch.yaml", "tools:\n  - title: A\ndefaultTool: B\n")
	_, err := Load(path)
	if !errors.Is(err, tooling.ErrUnknownTool) {
		t.Fatalf("want ErrUnknownTool, got %v", err)
	}
}

func TestLoad_WhenReadFails_ShouldWrapError(t *testing.T) {
	orig := readFile
	defer func() { readFile = orig }()
	readFile = func(string) ([]byte, error) { return nil, fmt.Errorf("disk on fire") }

	_, err := Load("whatever.yaml")
	if err == nil || !strings.Contains(err.Error(), "config load: disk on fire") {
		t.Fatalf("want wrapped read error, got %v", err)
	}
}

// =============================================================================
// LoadOrDefault
// =============================================================================

func TestLoadOrDefault_WhenMissing_ShouldReturnDefault(t *testing.T) {
	cfg, found, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if found {
		t.Error("found should be false for a missing file")
	}
	if len(cfg.Tools) == 0 {
		t.Error("default config should carry the builtin tool table")
	}
}

func TestLoadOrDefault_WhenInvalid_ShouldReturnError(t *testing.T) {
	_, _, err := LoadOrDefault(writeConfig(t, "notelaunch.json", "{"))
	if err == nil {
		t.Fatal("invalid config must not fall back to defaults")
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := PathFromEnv(); got != DefaultPath {
		t.Errorf("unset: want %q, got %q", DefaultPath, got)
	}
	t.Setenv(EnvPath, "/etc/notelaunch.yaml")
	if got := PathFromEnv(); got != "/etc/notelaunch.yaml" {
		t.Errorf("set: want override, got %q", got)
	}
}

// =============================================================================
// Save / WriteDefault
// =============================================================================

func TestWriteDefault_ThenLoad_ShouldRoundTripForBothFormats(t *testing.T) {
	for _, name := range []string{"notelaunch.yaml", "notelaunch.json"} {
		path := filepath.Join(t.TempDir(), "nested", name)
		if err := WriteDefault(path); err != nil {
			t.Fatalf("%s: WriteDefault: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("%s: Load after WriteDefault: %v", name, err)
		}
		if diff := cmp.Diff(Default().Tools, got.Tools); diff != "" {
			t.Errorf("%s: tools mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestSave_WhenToolsNil_ShouldWriteLoadableEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notelaunch.json")
	if err := Save(path, &domain.Config{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Tools) != 0 {
		t.Errorf("want empty table, got %+v", got.Tools)
	}
}

func TestSave_WhenNil_ShouldReturnError(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "x.yaml"), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestSave_ErrorPaths(t *testing.T) {
	origYAML, origMkdir, origWrite := marshalYAML, mkdirAll, writeFile
	defer func() { marshalYAML, mkdirAll, writeFile = origYAML, origMkdir, origWrite }()
	path := filepath.Join(t.TempDir(), "x.yaml")

	marshalYAML = func(interface{}) ([]byte, error) { return nil, fmt.Errorf("boom") }
	if err := Save(path, Default()); err == nil || !strings.Contains(err.Error(), "marshal") {
		t.Errorf("marshal: got %v", err)
	}
	marshalYAML = origYAML

	mkdirAll = func(string, os.FileMode) error { return fmt.Errorf("boom") }
	if err := Save(path, Default()); err == nil || !strings.Contains(err.Error(), "mkdir") {
		t.Errorf("mkdir: got %v", err)
	}
	mkdirAll = origMkdir

	writeFile = func(string, []byte, os.FileMode) error { return fmt.Errorf("boom") }
	if err := Save(path, Default()); err == nil || !strings.Contains(err.Error(), "write") {
		t.Errorf("write: got %v", err)
	}
}
