package builtin

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/agentx-labs/unithost/internal/manifest"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	slogcontext "github.com/veqryn/slog-context"
)

func TestFactories(t *testing.T) {
	f := Factories()
	assert.Contains(t, f, EntryLog)
	assert.Contains(t, f, EntryNoop)
}

func TestNoop(t *testing.T) {
	u, err := NewNoop(unit.Env{Key: "quiet"})
	require.NoError(t, err)
	assert.NoError(t, u.Init(context.Background()))
	assert.NoError(t, u.AfterInit(context.Background()))
}

func TestLog_WritesThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := slogcontext.NewCtx(context.Background(), logger)

	u, err := NewLog(unit.Env{
		Key:      "audit_trail",
		Category: unit.Extension,
		Manifest: &manifest.UnitManifest{
			Version: "1.2.0",
			Config:  map[string]interface{}{"message": "audit ready", "level": "warn"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, u.Init(ctx))
	require.NoError(t, u.AfterInit(ctx))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `msg="audit ready"`), out)
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "unit=audit_trail")
	assert.Contains(t, out, "phase=init")
	assert.Contains(t, out, "phase=after_init")
	assert.Contains(t, out, "version=1.2.0")
}

func TestLog_DefaultsWithoutManifest(t *testing.T) {
	var buf bytes.Buffer
	ctx := slogcontext.NewCtx(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	u, err := NewLog(unit.Env{Key: "plain", Category: unit.AddOn})
	require.NoError(t, err)
	require.NoError(t, u.Init(ctx))

	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "category=addon")
}

func TestLog_BadConfig(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"message not string": {"message": 42},
		"level not string":   {"level": true},
		"unknown level":      {"level": "loud"},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLog(unit.Env{Key: "x", Manifest: &manifest.UnitManifest{Config: cfg}})
			assert.Error(t, err)
		})
	}
}

func TestLog_IncludesRequestCommand(t *testing.T) {
	var buf bytes.Buffer
	ctx := slogcontext.NewCtx(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	u, err := NewLog(unit.Env{
		Key:      "audit_trail",
		Category: unit.AddOn,
		Request:  &unit.Request{Command: "unithost boot"},
	})
	require.NoError(t, err)
	require.NoError(t, u.Init(ctx))

	assert.Contains(t, buf.String(), `command="unithost boot"`)
}
