package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sourcemelt/sourcemelt/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Src) != 2 || cfg.Src[0] != "src" || cfg.Src[1] != "." {
		t.Errorf("Default().Src = %v, want [src .]", cfg.Src)
	}
	if !cfg.PreserveComments || !cfg.PreserveTypeHints {
		t.Error("Default() should preserve comments and type hints")
	}
	if cfg.TargetVersion != types.Py310 {
		t.Errorf("Default().TargetVersion = %s, want py310", cfg.TargetVersion)
	}
	if cfg.TargetVersion.Minor() != 10 {
		t.Errorf("Default().TargetVersion.Minor() = %d, want 10", cfg.TargetVersion.Minor())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sourcemelt.yml")
	content := `
src:
  - app
known_third_party:
  - numpy
target_version: py38
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Src) != 1 || cfg.Src[0] != "app" {
		t.Errorf("Src = %v, want [app]", cfg.Src)
	}
	if len(cfg.KnownThirdParty) != 1 || cfg.KnownThirdParty[0] != "numpy" {
		t.Errorf("KnownThirdParty = %v, want [numpy]", cfg.KnownThirdParty)
	}
	if cfg.TargetVersion != types.Py38 {
		t.Errorf("TargetVersion = %s, want py38", cfg.TargetVersion)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sourcemelt.yml")
	if err := os.WriteFile(path, []byte("bogus_option: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() with unknown field should error")
	}
}

func TestLoadRejectsBadTargetVersion(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sourcemelt.yml")
	if err := os.WriteFile(path, []byte("target_version: py37\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() with unsupported target_version should error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	if _, err := Load(filepath.Join(tmpDir, "nope.yml")); err == nil {
		t.Error("Load() on a missing file should error")
	}
}

func TestValidateEmptySrc(t *testing.T) {
	cfg := Default()
	cfg.Src = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with empty Src should error")
	}
}

func TestApplyTargetVersionOverride(t *testing.T) {
	cfg := Default()
	cfg.ApplyTargetVersionOverride("py313")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.TargetVersion != types.Py313 {
		t.Errorf("TargetVersion = %s, want py313", cfg.TargetVersion)
	}
}

func TestApplyTargetVersionOverrideEmptyKeepsExisting(t *testing.T) {
	cfg := Default()
	cfg.ApplyTargetVersionOverride("")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.TargetVersion != types.Py310 {
		t.Errorf("TargetVersion = %s, want py310 (default preserved)", cfg.TargetVersion)
	}
}
