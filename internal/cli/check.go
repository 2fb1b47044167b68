// Package cli holds command bodies that are larger than a cobra RunE.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"notelaunch/internal/config"
	"notelaunch/internal/domain"
	"notelaunch/internal/prefs"
	"notelaunch/internal/tooling"
)

// lookPath resolves an executable; tests replace it to avoid depending on
// what is installed.
var lookPath = exec.LookPath

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Fix          bool   // write a default config when none exists
	PrefsPath    string // empty skips the preference check
	PrefsPathErr error  // why PrefsPath could not be determined, if it could not
}

// RunCheck loads the config, reports whether each tool's executable can be
// found, and checks that the default tool resolves. A missing executable is
// only a note: the table is declarative and paths are checked at launch time.
// Returns the process exit code.
func RunCheck(cfgPath string, opts CheckOptions, stdout, stderr io.Writer) int {
	note := func(section, message string) {
		fmt.Fprintf(stdout, "  [%s] %s\n", section, message)
	}

	cfg, err := config.Load(cfgPath)
	switch {
	case err == nil:
		note("Config", fmt.Sprintf("Loaded %s.", cfgPath))
	case errors.Is(err, os.ErrNotExist):
		note("Config", fmt.Sprintf("No config at %s; using the built-in tool table.", cfgPath))
		if opts.Fix {
			if writeErr := config.WriteDefault(cfgPath); writeErr != nil {
				fmt.Fprintf(stderr, "  failed to write default config: %v\n", writeErr)
				return 1
			}
			note("Config", fmt.Sprintf("Wrote default config to %s.", cfgPath))
		} else {
			note("Config", "Run with --fix to create a default "+config.DefaultPath+".")
		}
		cfg = config.Default()
	default:
		note("Config", err.Error())
		return 1
	}

	reg, err := tooling.NewRegistry(cfg.Tools...)
	if err != nil {
		note("Tools", err.Error())
		return 1
	}
	if reg.Len() == 0 {
		note("Tools", "No tools configured.")
	}
	for _, d := range reg.List() {
		note("Tools", describeExecutable(d))
	}

	code := 0
	if cfg.DefaultTool != "" {
		note("Default", fmt.Sprintf("config defaultTool %q ok.", cfg.DefaultTool))
	}
	if opts.PrefsPathErr != nil {
		note("Prefs", fmt.Sprintf("%v; skipping the preference check.", opts.PrefsPathErr))
	} else if opts.PrefsPath != "" {
		m := prefs.NewManager(opts.PrefsPath)
		if err := m.Load(); err != nil {
			note("Prefs", err.Error())
			code = 1
		} else if name := m.Prefs().DefaultTool; name != "" {
			if reg.Has(name) {
				note("Prefs", fmt.Sprintf("defaultTool %q ok.", name))
			} else {
				note("Prefs", fmt.Sprintf("defaultTool %q is not in the tool table.", name))
				code = 1
			}
		}
	}

	fmt.Fprintln(stdout, "  Check complete.")
	return code
}

func describeExecutable(d domain.Descriptor) string {
	if d.ExecutablePath == "" {
		return fmt.Sprintf("%s: no executable configured.", d.Title)
	}
	if _, err := lookPath(d.ExecutablePath); err != nil {
		return fmt.Sprintf("%s: %s not found (launch will fail until it is installed).", d.Title, d.ExecutablePath)
	}
	return fmt.Sprintf("%s: %s ok.", d.Title, d.ExecutablePath)
}
