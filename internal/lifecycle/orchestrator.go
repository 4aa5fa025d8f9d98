package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/metrics"
	"github.com/agentx-labs/unithost/internal/reconcile"
	"github.com/agentx-labs/unithost/internal/registry"
	"github.com/agentx-labs/unithost/internal/unit"
)

// Config supplies the per-category settings a run reads.
type Config interface {
	NormalizedAllowList(c unit.Category, logger *slog.Logger) []string
	ReconcileDisabled(c unit.Category) bool
}

// Registry is the view of a category's loader a run needs.
type Registry interface {
	ListAll(ctx context.Context, initializeNow bool) ([]*registry.Loaded, error)
	Exists(ctx context.Context, key string) bool
	Load(ctx context.Context, key string) (*registry.Loaded, error)
	SetRequest(req any)
}

// Reconciler folds persisted activations into a registry.
type Reconciler interface {
	Reconcile(ctx context.Context, c unit.Category, reg reconcile.Registry) *reconcile.Result
}

// Observer is told about every state change.
type Observer func(from, to State)

// Orchestrator runs the boot sequence once. Build one per process, or call
// Reset before running again.
type Orchestrator struct {
	config     Config
	reconciler Reconciler
	registries map[unit.Category]Registry
	metrics    *metrics.Recorder
	logger     *slog.Logger
	observer   Observer
	request    any

	state  State
	ran    bool
	report *Report
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithObserver registers a state change callback.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithRequest sets the request-scoped value every registry forwards to the
// units it builds.
func WithRequest(req any) Option {
	return func(o *Orchestrator) { o.request = req }
}

// New returns an Orchestrator. registries must hold one Registry for every
// category.
func New(cfg Config, rec Reconciler, registries map[unit.Category]Registry, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if rec == nil {
		return nil, errors.New("reconciler is required")
	}
	for _, c := range unit.Categories() {
		if registries[c] == nil {
			return nil, fmt.Errorf("no registry for category %s", c)
		}
	}
	o := &Orchestrator{
		config:     cfg,
		reconciler: rec,
		registries: registries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Reset re-arms the run-once guard.
func (o *Orchestrator) Reset() {
	o.ran = false
	o.report = nil
	o.state = Idle
}

// Run executes the boot sequence. Only the first call does anything; later
// calls return the first call's report and no error. A unit's Init or
// AfterInit error stops the run and is returned, leaving State at the
// failing step.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if o.ran {
		return o.report, nil
	}
	o.ran = true
	o.report = &Report{}

	o.transition(EnumeratingConfig)
	allow := make(map[unit.Category][]string)
	for _, c := range unit.Categories() {
		cr := &CategoryReport{Category: c, ReconcileDisabled: o.config.ReconcileDisabled(c)}
		o.report.Categories = append(o.report.Categories, cr)
		allow[c] = o.config.NormalizedAllowList(c, o.logger)
		o.registries[c].SetRequest(o.request)
	}

	for _, c := range unit.Categories() {
		o.transition(initPass(c))
		if err := o.initPass(ctx, c, allow[c], o.report.For(c)); err != nil {
			return o.report, err
		}
	}

	for _, c := range unit.Categories() {
		o.transition(reconciling(c))
		cr := o.report.For(c)
		if cr.ReconcileDisabled {
			o.logger.Info("persisted reconciliation disabled", "category", c.String())
		} else {
			cr.Reconciled = o.reconciler.Reconcile(ctx, c, o.registries[c])
		}
		cr.Active = merge(allow[c], cr.Reconciled)
	}

	for _, c := range unit.Categories() {
		o.transition(afterInitPass(c))
		if err := o.afterInitPass(ctx, c, o.report.For(c)); err != nil {
			return o.report, err
		}
	}

	o.transition(Done)
	return o.report, nil
}

func (o *Orchestrator) initPass(ctx context.Context, c unit.Category, allow []string, cr *CategoryReport) error {
	if len(allow) == 0 {
		return nil
	}
	loaded, err := o.registries[c].ListAll(ctx, false)
	if err != nil {
		return fmt.Errorf("listing %s units: %w", c.Plural(), err)
	}

	wanted := make(map[string]bool, len(allow))
	for _, key := range allow {
		wanted[key] = true
	}
	found := make(map[string]bool, len(loaded))
	for _, l := range loaded {
		found[l.Key] = true
		if !wanted[l.Key] {
			continue
		}
		o.metrics.LifecycleCall(c.String(), metrics.PhaseInit)
		if err := l.Init(ctx); err != nil {
			return err
		}
		cr.Allowed = append(cr.Allowed, l.Key)
	}
	for _, key := range allow {
		if !found[key] {
			o.logger.Warn("allow-listed unit not found", "category", c.String(), "key", key)
			cr.MissingAllowed = append(cr.MissingAllowed, key)
		}
	}
	return nil
}

func (o *Orchestrator) afterInitPass(ctx context.Context, c unit.Category, cr *CategoryReport) error {
	reg := o.registries[c]
	for _, e := range cr.Active {
		if !reg.Exists(ctx, e.Key) {
			cr.Skipped = append(cr.Skipped, e.Key)
			continue
		}
		l, err := reg.Load(ctx, e.Key)
		if err != nil {
			return err
		}
		o.metrics.LifecycleCall(c.String(), metrics.PhaseAfterInit)
		if err := l.AfterInit(ctx); err != nil {
			return err
		}
		cr.AfterInitialized = append(cr.AfterInitialized, e.Key)
	}
	o.metrics.SetActiveUnits(c.String(), len(cr.AfterInitialized))
	return nil
}

// merge builds the active set: allow-listed keys first, then reconciled
// keys. A key present in both keeps its first position and takes the later
// value.
func merge(allow []string, rec *reconcile.Result) activation.Entries {
	var out activation.Entries
	for _, key := range allow {
		out.Set(key, "")
	}
	if rec != nil {
		for _, e := range rec.Active {
			out.Set(e.Key, e.Value)
		}
	}
	return out
}

func (o *Orchestrator) transition(to State) {
	from := o.state
	o.state = to
	o.logger.Debug("lifecycle state", "from", from.String(), "to", to.String())
	if o.observer != nil {
		o.observer(from, to)
	}
}
