package config

import (
	"errors"
	"strings"

	"notelaunch/internal/domain"
)

// ErrExecutableNotAllowed is returned when an executable is not in the allowlist.
var ErrExecutableNotAllowed = errors.New("executable not allowed by policy")

// ValidateExecutable checks exe against cfg.Launch.AllowedExecutables. An
// empty or nil allowlist allows anything, including an empty path. Otherwise
// exe's binary name must match an entry's binary name exactly.
func ValidateExecutable(cfg *domain.Config, exe string) error {
	if cfg == nil || len(cfg.Launch.AllowedExecutables) == 0 {
		return nil
	}
	bin := binaryName(exe)
	if bin == "" {
		return ErrExecutableNotAllowed
	}
	for _, allowed := range cfg.Launch.AllowedExecutables {
		if binaryName(allowed) == bin {
			return nil
		}
	}
	return ErrExecutableNotAllowed
}

// binaryName returns the last path element of p, splitting on both slash
// kinds so Windows paths in a config are handled on any host.
func binaryName(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	return p
}
