package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	slogcontext "github.com/veqryn/slog-context"
)

func TestRunBootAllowListAndPersisted(t *testing.T) {
	h := newTestHost(t)
	writeUnit(t, h.layout.Extensions, "alpha", "extension", "noop")
	writeUnit(t, h.layout.Extensions, "beta", "extension", "noop")
	h.cfg.Viper().Set("extensions", []string{"alpha"})
	record := "beta: \"2024-01-01 00:00:00\"\n"
	writeRecord(t, h, "extensions.active", record)

	var out bytes.Buffer
	if err := runBoot(context.Background(), h, &out, false, ""); err != nil {
		t.Fatalf("runBoot: %v", err)
	}

	got := out.String()
	for _, want := range []string{"alpha", "beta", "allow-list", "persisted", "2024-01-01 00:00:00", "ready"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "skipped") {
		t.Errorf("nothing should be skipped:\n%s", got)
	}
	if rec := readRecord(t, h, "extensions.active"); rec != record {
		t.Errorf("record rewritten without a change:\n%s", rec)
	}
}

func TestRunBootPrunesUninstalled(t *testing.T) {
	h := newTestHost(t)
	writeUnit(t, h.layout.AddOns, "gamma", "addon", "noop")
	writeRecord(t, h, "addons.active", "gamma: \"2024-01-01 00:00:00\"\nghost: \"2024-01-02 00:00:00\"\n")
	textfile := filepath.Join(t.TempDir(), "unithost.prom")

	var out bytes.Buffer
	if err := runBoot(context.Background(), h, &out, false, textfile); err != nil {
		t.Fatalf("runBoot: %v", err)
	}

	rec := readRecord(t, h, "addons.active")
	if strings.Contains(rec, "ghost") {
		t.Errorf("ghost not pruned:\n%s", rec)
	}
	if !strings.Contains(rec, "gamma") {
		t.Errorf("gamma lost:\n%s", rec)
	}
	if !strings.Contains(out.String(), "pruned uninstalled: [ghost]") {
		t.Errorf("output missing prune note:\n%s", out.String())
	}

	metrics, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("reading metrics textfile: %v", err)
	}
	if !strings.Contains(string(metrics), `unithost_activation_writes_total{category="addon",reason="update"} 1`) {
		t.Errorf("metrics textfile missing write counter:\n%s", metrics)
	}
}

func TestRunBootEphemeralLeavesStateAlone(t *testing.T) {
	h := newTestHost(t)
	writeUnit(t, h.layout.Extensions, "alpha", "extension", "noop")
	h.cfg.Viper().Set("extensions", []string{"alpha"})

	var out bytes.Buffer
	if err := runBoot(context.Background(), h, &out, true, ""); err != nil {
		t.Fatalf("runBoot: %v", err)
	}
	if _, err := os.Stat(h.layout.State); !os.IsNotExist(err) {
		t.Errorf("state directory touched in ephemeral mode: %v", err)
	}
}

func TestRunBootReconcileDisabled(t *testing.T) {
	h := newTestHost(t)
	writeUnit(t, h.layout.Extensions, "beta", "extension", "noop")
	h.cfg.Viper().Set("disable", map[string]any{"database.extensions": "yes"})
	writeRecord(t, h, "extensions.active", "beta: \"2024-01-01 00:00:00\"\n")

	var out bytes.Buffer
	if err := runBoot(context.Background(), h, &out, false, ""); err != nil {
		t.Fatalf("runBoot: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "beta") {
		t.Errorf("beta activated with reconciliation disabled:\n%s", got)
	}
	if !strings.Contains(got, "extensions: persisted reconciliation disabled") {
		t.Errorf("missing disabled note:\n%s", got)
	}
}

func TestRunBootForwardsRequestToUnits(t *testing.T) {
	h := newTestHost(t)
	writeUnit(t, h.layout.Extensions, "greeter", "extension", "log")
	h.cfg.Viper().Set("extensions", []string{"greeter"})

	var logs bytes.Buffer
	ctx := slogcontext.NewCtx(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))
	if err := runBoot(ctx, h, &bytes.Buffer{}, true, ""); err != nil {
		t.Fatalf("runBoot: %v", err)
	}

	got := logs.String()
	if strings.Count(got, `command="unithost boot"`) != 2 {
		t.Errorf("both lifecycle calls should carry the boot request:\n%s", got)
	}
}
