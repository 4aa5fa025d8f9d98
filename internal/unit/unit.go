package unit

import (
	"context"
	"log/slog"
	"time"

	"github.com/agentx-labs/unithost/internal/manifest"
)

// Unit is implemented by every extension and add-on. Init runs in the
// initialization pass; AfterInit runs once every category has been
// initialized. Errors are the unit's own and propagate to the caller.
type Unit interface {
	Init(ctx context.Context) error
	AfterInit(ctx context.Context) error
}

// Env is handed to a Factory when the registry instantiates a unit.
type Env struct {
	Key      string
	Category Category
	Dir      string
	Manifest *manifest.UnitManifest

	// Request is the host's request-scoped value. The registry forwards it
	// without inspecting it.
	Request any
	Logger  *slog.Logger
}

// Request is the request-scoped value the command-line host forwards to
// factories. Embedding hosts may forward their own value instead.
type Request struct {
	Command   string
	StartedAt time.Time
	Ephemeral bool
}

// Factory constructs a unit for the given environment.
type Factory func(env Env) (Unit, error)

// Funcs adapts plain functions to the Unit interface. Nil funcs are no-ops.
type Funcs struct {
	InitFunc      func(ctx context.Context) error
	AfterInitFunc func(ctx context.Context) error
}

// Init implements Unit.
func (f Funcs) Init(ctx context.Context) error {
	if f.InitFunc == nil {
		return nil
	}
	return f.InitFunc(ctx)
}

// AfterInit implements Unit.
func (f Funcs) AfterInit(ctx context.Context) error {
	if f.AfterInitFunc == nil {
		return nil
	}
	return f.AfterInitFunc(ctx)
}
