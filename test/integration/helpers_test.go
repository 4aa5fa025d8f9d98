//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/builtin"
	"github.com/agentx-labs/unithost/internal/config"
	"github.com/agentx-labs/unithost/internal/lifecycle"
	"github.com/agentx-labs/unithost/internal/metrics"
	"github.com/agentx-labs/unithost/internal/reconcile"
	"github.com/agentx-labs/unithost/internal/registry"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/userdata"
)

// setupTestEnv points UNITHOST_HOME at a temp directory, clears the
// per-directory overrides and initializes the home layout. The env vars are
// restored after the test.
func setupTestEnv(t *testing.T, example bool) userdata.Layout {
	t.Helper()

	t.Setenv("UNITHOST_HOME", t.TempDir())
	for _, v := range []string{"UNITHOST_EXTENSIONS_DIR", "UNITHOST_ADDONS_DIR", "UNITHOST_STATE_DIR"} {
		t.Setenv(v, "")
	}

	layout, err := userdata.DefaultLayout()
	if err != nil {
		t.Fatalf("DefaultLayout: %v", err)
	}
	if err := userdata.Init(io.Discard, layout, example); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return layout
}

// bootOnce wires a fresh process worth of components, the way the boot
// command does, and runs the lifecycle once.
func bootOnce(ctx context.Context, t *testing.T, layout userdata.Layout) (*lifecycle.Report, *metrics.Recorder) {
	t.Helper()

	cfg := config.New(layout.Config)
	if err := cfg.Load(); err != nil {
		t.Fatalf("loading config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	regs := make(map[unit.Category]lifecycle.Registry)
	for _, c := range unit.Categories() {
		ld, err := registry.New(c, layout.UnitsDir(c),
			registry.WithLogger(logger),
			registry.WithIgnore(cfg.IgnorePatterns()...),
			registry.WithFactories(builtin.Factories()),
		)
		if err != nil {
			t.Fatalf("creating %s registry: %v", c, err)
		}
		regs[c] = ld
	}

	store := activation.NewStore(activation.NewFileRepository(layout.State), activation.WithLogger(logger))
	rec := reconcile.New(store, reconcile.WithLogger(logger), reconcile.WithMetrics(m))
	orch, err := lifecycle.New(cfg, rec, regs, lifecycle.WithLogger(logger), lifecycle.WithMetrics(m))
	if err != nil {
		t.Fatalf("lifecycle.New: %v", err)
	}
	report, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report, m
}

// recordPath returns the file a category's activation record lives in.
func recordPath(layout userdata.Layout, c unit.Category) string {
	return filepath.Join(layout.State, c.StorageKey()+".yaml")
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertFileNotContains fails if the file contains substr.
func assertFileNotContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if strings.Contains(string(data), substr) {
		t.Errorf("file %s should not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

func assertKeys(t *testing.T, what string, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}
