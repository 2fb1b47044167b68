package config

import (
	"errors"
	"testing"

	"notelaunch/internal/domain"
)

func cfgWithAllowlist(list ...string) *domain.Config {
	return &domain.Config{Launch: domain.LaunchConfig{AllowedExecutables: list}}
}

func TestValidateExecutable_WhenAllowlistEmpty_ShouldAllowAnything(t *testing.T) {
	if err := ValidateExecutable(nil, "/usr/bin/mscore"); err != nil {
		t.Errorf("nil config: expected nil, got %v", err)
	}
	if err := ValidateExecutable(cfgWithAllowlist(), ""); err != nil {
		t.Errorf("empty allowlist must not reject an empty path, got %v", err)
	}
}

func TestValidateExecutable_ShouldMatchByBinaryName(t *testing.T) {
	cfg := cfgWithAllowlist("mscore4", "/opt/finale/Finale.exe")
	for _, exe := range []string{"/usr/bin/mscore4", "mscore4", `C:\Apps\Finale.exe`, "Finale.exe"} {
		if err := ValidateExecutable(cfg, exe); err != nil {
			t.Errorf("%q: expected nil, got %v", exe, err)
		}
	}
}

func TestValidateExecutable_WhenNotListed_ShouldReturnErrExecutableNotAllowed(t *testing.T) {
	cfg := cfgWithAllowlist("mscore4")
	for _, exe := range []string{"/usr/bin/rm", "", "/usr/bin/", "MSCORE4"} {
		if err := ValidateExecutable(cfg, exe); !errors.Is(err, ErrExecutableNotAllowed) {
			t.Errorf("%q: want ErrExecutableNotAllowed, got %v", exe, err)
		}
	}
}
