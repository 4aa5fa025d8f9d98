// Package builtin provides the unit factories every host registers, so a
// bare install can run units that need no code of their own.
package builtin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentx-labs/unithost/internal/unit"
	slogcontext "github.com/veqryn/slog-context"
)

// Entry names.
const (
	EntryLog  = "log"
	EntryNoop = "noop"
)

// Factories returns the built-in factories keyed by entry name.
func Factories() map[string]unit.Factory {
	return map[string]unit.Factory{
		EntryLog:  NewLog,
		EntryNoop: NewNoop,
	}
}

// NewNoop builds a unit whose lifecycle calls do nothing.
func NewNoop(unit.Env) (unit.Unit, error) {
	return unit.Funcs{}, nil
}

// Log is a unit that logs its lifecycle calls through the context logger.
// Manifest config keys: "message" (string) and "level" (debug, info, warn,
// error; default info).
type Log struct {
	key      string
	category unit.Category
	version  string
	message  string
	level    slog.Level
	command  string
}

// NewLog builds a Log unit from the manifest config.
func NewLog(env unit.Env) (unit.Unit, error) {
	l := &Log{key: env.Key, category: env.Category, level: slog.LevelInfo}
	if req, ok := env.Request.(*unit.Request); ok && req != nil {
		l.command = req.Command
	}
	if env.Manifest == nil {
		return l, nil
	}
	l.version = env.Manifest.Version

	cfg := env.Manifest.Config
	if v, ok := cfg["message"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("config.message must be a string, got %T", v)
		}
		l.message = s
	}
	if v, ok := cfg["level"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("config.level must be a string, got %T", v)
		}
		if err := l.level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("config.level: %w", err)
		}
	}
	return l, nil
}

// Init implements unit.Unit.
func (l *Log) Init(ctx context.Context) error {
	l.log(ctx, "init")
	return nil
}

// AfterInit implements unit.Unit.
func (l *Log) AfterInit(ctx context.Context) error {
	l.log(ctx, "after_init")
	return nil
}

func (l *Log) log(ctx context.Context, phase string) {
	msg := l.message
	if msg == "" {
		msg = "unit lifecycle call"
	}
	attrs := []any{
		slog.String("unit", l.key),
		slog.String("category", l.category.String()),
		slog.String("version", l.version),
		slog.String("phase", phase),
	}
	if l.command != "" {
		attrs = append(attrs, slog.String("command", l.command))
	}
	slogcontext.Log(ctx, l.level, msg, attrs...)
}
