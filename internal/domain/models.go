package domain

import "time"

// =============================================================================
// External tool descriptors
// =============================================================================

// Descriptor describes one external notation-editor integration: the menu
// title, its tooltip, and the program to run. Descriptors are values; once a
// table is loaded nothing mutates them.
type Descriptor struct {
	Title          string `json:"title" yaml:"title" jsonschema:"required,minLength=1"`
	Tooltip        string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	ExecutablePath string `json:"executablePath" yaml:"executablePath"` // not validated at load time; may be empty
}

// BuildArguments returns the argument vector that opens exportFilePath in the
// tool: the executable path followed by the export path, both verbatim.
// The returned slice is freshly allocated on every call.
func (d Descriptor) BuildArguments(exportFilePath string) []string {
	return []string{d.ExecutablePath, exportFilePath}
}

// =============================================================================
// Core Configuration
// =============================================================================

type Config struct {
	Tools       []Descriptor  `json:"tools" yaml:"tools" jsonschema:"required"`
	DefaultTool string        `json:"defaultTool,omitempty" yaml:"defaultTool,omitempty"`
	Launch      LaunchConfig  `json:"launch" yaml:"launch"`
	History     HistoryConfig `json:"history" yaml:"history"`
	Infra       InfraConfig   `json:"infra" yaml:"infra"`
}

// LaunchConfig controls how the host spawns external tools.
type LaunchConfig struct {
	TimeoutSec         int      `json:"timeoutSec" yaml:"timeoutSec" jsonschema:"minimum=0,maximum=86400"` // 0 = wait until the editor exits; at most one day
	AllowedExecutables []string `json:"allowedExecutables,omitempty" yaml:"allowedExecutables,omitempty"`  // If non-empty, only these binaries may be launched
}

type HistoryConfig struct {
	DBURL string `json:"dbUrl,omitempty" yaml:"dbUrl,omitempty"` // empty disables launch history
}

type InfraConfig struct {
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty" jsonschema:"enum=text,enum=json"`
	LogLevel  string `json:"logLevel,omitempty" yaml:"logLevel,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// =============================================================================
// Launch records
// =============================================================================

// LaunchRecord is one row of launch history, written after the external tool
// exits (or fails to start).
type LaunchRecord struct {
	ID        string        `json:"id"`
	Tool      string        `json:"tool"`
	Argv      []string      `json:"argv"`
	ExitCode  int           `json:"exitCode"` // -1 when the process never ran to completion
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
