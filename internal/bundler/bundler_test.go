package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sourcemelt/sourcemelt/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func baseConfig(dir string) *config.BundleConfig {
	cfg := config.Default()
	cfg.Src = []string{dir}
	return cfg
}

func TestBundlePreservesAliasedStdlibImport(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.py", "import json as j\n\nprint(j.dumps({}))\n")

	result, err := Bundle(entry, baseConfig(dir), Options{})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}

	out := string(result.Output)
	if !strings.Contains(out, "import json as j\n") {
		t.Errorf("output missing aliased stdlib import, got:\n%s", out)
	}
	if !strings.Contains(out, "print(j.dumps({}))") {
		t.Errorf("output missing entry body, got:\n%s", out)
	}
}

func TestBundleRewritesFirstPartyAliasToAssignment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def process_data():\n    return 1\n")
	entry := writeFile(t, dir, "main.py", "from a import process_data as process_a\n\nprint(process_a())\n")

	result, err := Bundle(entry, baseConfig(dir), Options{})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}

	out := string(result.Output)
	if !strings.Contains(out, "process_a = process_data") {
		t.Errorf("output missing alias assignment, got:\n%s", out)
	}
	if !strings.Contains(out, "def process_data():") {
		t.Errorf("output missing inlined dependency body, got:\n%s", out)
	}
	if strings.Contains(out, "from a import") {
		t.Errorf("first-party from-import should have been removed, got:\n%s", out)
	}

	depIdx := strings.Index(out, "def process_data")
	useIdx := strings.Index(out, "process_a = process_data")
	if depIdx < 0 || useIdx < 0 || depIdx > useIdx {
		t.Errorf("dependency body must precede its alias assignment, got:\n%s", out)
	}
}

func TestBundleHoistsAndDedupsFutureImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "from __future__ import annotations\n\ndef helper():\n    return 1\n")
	entry := writeFile(t, dir, "main.py",
		"from __future__ import annotations, with_statement\nfrom a import helper\n\nprint(helper())\n")

	result, err := Bundle(entry, baseConfig(dir), Options{})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}

	out := string(result.Output)
	if strings.Count(out, "from __future__ import") != 1 {
		t.Fatalf("want exactly one future-import line, got:\n%s", out)
	}
	if !strings.Contains(out, "from __future__ import annotations, with_statement") {
		t.Errorf("future imports not merged/sorted as expected, got:\n%s", out)
	}
}

func TestBundleIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "import os\n\ndef helper():\n    return os.getcwd()\n")
	entry := writeFile(t, dir, "main.py", "from a import helper\n\nprint(helper())\n")

	cfg := baseConfig(dir)

	first, err := Bundle(entry, cfg, Options{})
	if err != nil {
		t.Fatalf("Bundle() error: %v", err)
	}
	for i := 0; i < 2; i++ {
		next, err := Bundle(entry, cfg, Options{})
		if err != nil {
			t.Fatalf("Bundle() run %d error: %v", i, err)
		}
		if string(next.Output) != string(first.Output) {
			t.Fatalf("Bundle() run %d differs:\n--- first ---\n%s\n--- next ---\n%s", i, first.Output, next.Output)
		}
	}
}

func TestBundleDetectsNameCollision(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def run():\n    return 1\n")
	writeFile(t, dir, "b.py", "def run():\n    return 2\n")
	entry := writeFile(t, dir, "main.py", "from a import run\nfrom b import run as run\n\nprint(run())\n")

	_, err := Bundle(entry, baseConfig(dir), Options{})
	if err == nil {
		t.Fatal("Bundle() error = nil, want a NameCollision error")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Kind != NameCollision {
		t.Errorf("Bundle() error = %v, want *Error with Kind=NameCollision", err)
	}
}

// A module rebinding the same top-level name more than once is ordinary
// Python, not a collision -- only two different modules defining the same
// name should trip NameCollision.
func TestBundleAllowsSameModuleRebind(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.py", "DEBUG = False\nDEBUG = True\n\ndata = load()\ndata = clean(data)\n\nprint(DEBUG, data)\n")

	_, err := Bundle(entry, baseConfig(dir), Options{})
	if err != nil {
		t.Fatalf("Bundle() error = %v, want nil for a same-module rebind", err)
	}
}

func TestBundleEntryMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Bundle(filepath.Join(dir, "nope.py"), baseConfig(dir), Options{})
	if err == nil {
		t.Fatal("Bundle() error = nil, want EntryMissing")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Kind != EntryMissing {
		t.Errorf("Bundle() error = %v, want *Error with Kind=EntryMissing", err)
	}
}
