package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/builtin"
	"github.com/agentx-labs/unithost/internal/config"
	"github.com/agentx-labs/unithost/internal/metrics"
	"github.com/agentx-labs/unithost/internal/registry"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/userdata"
)

// host holds what every command needs: resolved paths, configuration and a
// logger.
type host struct {
	layout  userdata.Layout
	cfg     *config.Provider
	logger  *slog.Logger
	metrics *metrics.Recorder

	// repo replaces the state directory repository when set.
	repo activation.Repository
}

// newHost resolves the layout, loads the config file and builds the logger.
// Flags win over config values.
func newHost(logOut io.Writer) (*host, error) {
	layout, err := userdata.DefaultLayout()
	if err != nil {
		return nil, err
	}
	path := configPath
	if path == "" {
		path = layout.Config
	}
	layout.Config = path

	cfg := config.New(path)
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel()
	}
	format := logFormat
	if format == "" {
		format = cfg.LogFormat()
	}
	logger, err := newLogger(logOut, level, format)
	if err != nil {
		return nil, err
	}
	return newHostWith(layout, cfg, logger), nil
}

// newHostWith applies config path overrides to layout.
func newHostWith(layout userdata.Layout, cfg *config.Provider, logger *slog.Logger) *host {
	layout.Extensions = cfg.UnitsDir(unit.Extension, layout.Extensions)
	layout.AddOns = cfg.UnitsDir(unit.AddOn, layout.AddOns)
	layout.State = cfg.StateDir(layout.State)
	return &host{
		layout:  layout,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", s)
	}
}

// loader builds the registry for category with the built-in factories.
// Sources configured under sources.<plural> are read after the category's
// own directory.
func (h *host) loader(c unit.Category) (*registry.Loader, error) {
	extra, err := h.cfg.Sources(c)
	if err != nil {
		return nil, err
	}
	opts := []registry.Option{
		registry.WithLogger(h.logger),
		registry.WithIgnore(h.cfg.IgnorePatterns()...),
		registry.WithFactories(builtin.Factories()),
	}
	for _, s := range extra {
		opts = append(opts, registry.WithSource(registry.Source{Name: s.Name, BasePath: s.Path}))
	}
	return registry.New(c, h.layout.UnitsDir(c), opts...)
}

// repository returns the record repository under the state directory, or an
// in-memory one when ephemeral is set.
func (h *host) repository(ephemeral bool) activation.Repository {
	if ephemeral {
		return activation.NewMemoryRepository()
	}
	if h.repo != nil {
		return h.repo
	}
	return activation.NewFileRepository(h.layout.State)
}

func (h *host) store(ephemeral bool) *activation.Store {
	return activation.NewStore(h.repository(ephemeral), activation.WithLogger(h.logger))
}
