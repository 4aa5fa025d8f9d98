package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentx-labs/unithost/internal/activation"
	"github.com/agentx-labs/unithost/internal/metrics"
	"github.com/agentx-labs/unithost/internal/registry"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
)

// Store is the activation record accessor a pass reads and writes.
type Store interface {
	Read(ctx context.Context, category unit.Category) activation.Snapshot
	Write(ctx context.Context, category unit.Category, entries activation.Entries) error
}

// Registry enumerates the units of one category.
type Registry interface {
	ListAll(ctx context.Context, initializeNow bool) ([]*registry.Loaded, error)
}

// Result describes one pass.
type Result struct {
	Category unit.Category
	// Active is the reconciled record: canonical keys that resolve to a unit,
	// with their activation timestamps, in record order.
	Active activation.Entries
	// Initialized lists the keys whose Init ran during the pass.
	Initialized []string

	Repaired  bool     // the stored payload was not a mapping
	Written   bool     // the record was rewritten
	Dropped   []string // raw keys of unusable pairs
	Restamped []string // raw keys whose timestamp did not parse
	Collapsed []string // raw keys that lost to an earlier pair with the same canonical key
	Pruned    []string // canonical keys with no unit behind them

	// Err is the failure that degraded the pass, if any. It is informational;
	// Active is empty whenever Err is set.
	Err error
}

// Reconciler runs reconciliation passes.
type Reconciler struct {
	store   Store
	clock   activation.Clock
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the clock fresh activations are stamped with.
func WithClock(c activation.Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Reconciler over store.
func New(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		clock:  activation.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs one pass for category against reg.
func (r *Reconciler) Reconcile(ctx context.Context, category unit.Category, reg Registry) *Result {
	log := r.logger.With("category", category.String(), "record", category.StorageKey())
	res := &Result{Category: category}

	snap := r.store.Read(ctx, category)
	if !snap.Decoded.ShapeValid {
		res.Repaired = true
		for _, issue := range snap.Decoded.Issues {
			log.Debug("activation record issue", "issue", issue.String())
		}
		// Best effort: a failed repair leaves the bad payload in place and
		// the pass continues with an empty record either way.
		if err := r.write(ctx, category, nil, metrics.ReasonRepair); err != nil {
			log.Warn("repairing activation record failed", "error", err)
		} else {
			res.Written = true
			log.Info("activation record repaired")
		}
	}

	asRead, clean := readEntries(snap.Decoded.Pairs)
	working := r.sanitize(snap.Decoded.Pairs, res, log)
	canonical := collapse(working, res)

	if len(canonical) > 0 {
		loaded, err := reg.ListAll(ctx, false)
		if err != nil {
			return r.degrade(res, log, fmt.Errorf("listing units: %w", err))
		}
		canonical, loaded = prune(canonical, loaded, res)

		if !clean || !canonical.Equal(asRead) {
			r.persist(ctx, category, canonical, res, log)
		}

		for _, l := range loaded {
			r.metrics.LifecycleCall(category.String(), metrics.PhaseInit)
			if err := l.Init(ctx); err != nil {
				return r.degrade(res, log, err)
			}
			res.Initialized = append(res.Initialized, l.Key)
		}
	} else if !clean || len(asRead) > 0 {
		r.persist(ctx, category, canonical, res, log)
	}

	res.Active = canonical
	log.Debug("reconciled", "active", len(canonical), "written", res.Written)
	return res
}

// sanitize applies the per-pair rules and returns the working record keyed by
// raw key. Restamped pairs go after the pairs that survived unchanged.
func (r *Reconciler) sanitize(pairs []activation.Pair, res *Result, log *slog.Logger) activation.Entries {
	var survivors, staged activation.Entries
	for _, p := range pairs {
		if !p.KeyOK || !p.ValueOK {
			log.Debug("dropping unusable activation pair", "key", p.Key, "line", p.Line)
			res.Dropped = append(res.Dropped, p.Key)
			continue
		}
		if _, ok := unitkey.Normalize(p.Key); !ok {
			log.Debug("dropping activation pair with invalid key", "key", p.Key, "line", p.Line)
			res.Dropped = append(res.Dropped, p.Key)
			continue
		}
		if _, ok := activation.ParseTimestamp(p.Value); !ok {
			survivors.Delete(p.Key)
			staged.Set(p.Key, activation.Stamp(r.clock))
			res.Restamped = append(res.Restamped, p.Key)
			continue
		}
		survivors.Set(p.Key, p.Value)
	}
	for _, e := range staged {
		survivors.Set(e.Key, e.Value)
	}
	return survivors
}

// collapse re-keys the working record by canonical key. The first pair seen
// for a canonical key wins.
func collapse(working activation.Entries, res *Result) activation.Entries {
	var out activation.Entries
	for _, e := range working {
		key, _ := unitkey.Normalize(e.Key)
		if out.Has(key) {
			res.Collapsed = append(res.Collapsed, e.Key)
			continue
		}
		out.Set(key, e.Value)
	}
	return out
}

// prune removes canonical keys the registry did not enumerate and returns the
// enumerated units that remain active, in enumeration order.
func prune(canonical activation.Entries, loaded []*registry.Loaded, res *Result) (activation.Entries, []*registry.Loaded) {
	live := make(map[string]bool, len(loaded))
	var active []*registry.Loaded
	for _, l := range loaded {
		live[l.Key] = true
		if canonical.Has(l.Key) {
			active = append(active, l)
		}
	}

	var kept activation.Entries
	for _, e := range canonical {
		if !live[e.Key] {
			res.Pruned = append(res.Pruned, e.Key)
			continue
		}
		kept = append(kept, e)
	}
	return kept, active
}

// readEntries returns the record as read. clean is false when some pairs
// could not be represented, which means the record must be rewritten.
func readEntries(pairs []activation.Pair) (activation.Entries, bool) {
	var out activation.Entries
	clean := true
	for _, p := range pairs {
		if !p.KeyOK || !p.ValueOK || out.Has(p.Key) {
			clean = false
			continue
		}
		out.Set(p.Key, p.Value)
	}
	return out, clean
}

func (r *Reconciler) persist(ctx context.Context, category unit.Category, entries activation.Entries, res *Result, log *slog.Logger) {
	// Best effort: the reconciled result stands even when it cannot be
	// stored, and the next pass will try again.
	if err := r.write(ctx, category, entries, metrics.ReasonUpdate); err != nil {
		log.Warn("writing activation record failed", "error", err)
		return
	}
	res.Written = true
	log.Info("activation record updated", "entries", len(entries))
}

func (r *Reconciler) write(ctx context.Context, category unit.Category, entries activation.Entries, reason string) error {
	if err := r.store.Write(ctx, category, entries); err != nil {
		r.metrics.ActivationWriteFailure(category.String())
		return err
	}
	r.metrics.ActivationWrite(category.String(), reason)
	return nil
}

func (r *Reconciler) degrade(res *Result, log *slog.Logger, err error) *Result {
	log.Warn("reconciliation failed, no persisted units activated", "error", err)
	r.metrics.ReconcileFailure(res.Category.String())
	res.Active = nil
	res.Err = err
	return res
}
