package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/agentx-labs/unithost/internal/manifest"
	"github.com/agentx-labs/unithost/internal/unit"
	"github.com/agentx-labs/unithost/internal/unitkey"
)

// ErrNotFound is returned by Load for keys that are not discoverable.
var ErrNotFound = errors.New("unit not found")

// Loader enumerates and instantiates the units of one category. It owns every
// instance it creates and hands out the same *Loaded for a key on every call.
// A Loader is not safe for concurrent use.
type Loader struct {
	category   unit.Category
	sources    []Source
	factories  map[string]unit.Factory
	ignoreRaw  []string
	ignore     *ignoreSet
	request    any
	logger     *slog.Logger
	discoverer *discoverer

	index     *index
	instances map[string]*Loaded
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithSource adds a lower-priority source after the primary directory.
func WithSource(src Source) Option {
	return func(ld *Loader) {
		ld.sources = append(ld.sources, src)
	}
}

// WithIgnore adds glob patterns matched against unit directory names.
func WithIgnore(patterns ...string) Option {
	return func(ld *Loader) {
		ld.ignoreRaw = append(ld.ignoreRaw, patterns...)
	}
}

// WithFactories registers every factory in the map.
func WithFactories(factories map[string]unit.Factory) Option {
	return func(ld *Loader) {
		for name, f := range factories {
			ld.factories[name] = f
		}
	}
}

// New creates a Loader for category reading units from dir.
func New(category unit.Category, dir string, opts ...Option) (*Loader, error) {
	ld := &Loader{
		category:  category,
		sources:   []Source{{Name: "primary", BasePath: dir}},
		factories: make(map[string]unit.Factory),
		logger:    slog.Default(),
		instances: make(map[string]*Loaded),
	}
	for _, opt := range opts {
		opt(ld)
	}

	ignore, err := compileIgnore(ld.ignoreRaw)
	if err != nil {
		return nil, err
	}
	ld.ignore = ignore
	ld.logger = ld.logger.With("category", category.String())
	ld.discoverer = &discoverer{category: category, ignore: ignore, logger: ld.logger}
	return ld, nil
}

// Category returns the category the loader serves.
func (ld *Loader) Category() unit.Category { return ld.category }

// Sources returns the directories the loader reads, in priority order.
func (ld *Loader) Sources() []Source {
	return append([]Source(nil), ld.sources...)
}

// Register adds a factory under name. Names are case-sensitive and must be
// unique per loader.
func (ld *Loader) Register(name string, f unit.Factory) error {
	if name == "" {
		return errors.New("factory name must not be empty")
	}
	if f == nil {
		return fmt.Errorf("factory %q is nil", name)
	}
	if _, ok := ld.factories[name]; ok {
		return fmt.Errorf("factory %q already registered", name)
	}
	ld.factories[name] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (ld *Loader) MustRegister(name string, f unit.Factory) {
	if err := ld.Register(name, f); err != nil {
		panic(err)
	}
}

// SetRequest sets the request-scoped value forwarded to factories. Instances
// already created keep the value they were built with.
func (ld *Loader) SetRequest(req any) {
	ld.request = req
}

// Refresh drops the discovery index so the next call rescans the sources.
func (ld *Loader) Refresh() {
	ld.index = nil
}

// Discover returns every discoverable unit directory, whether or not a
// factory is registered for it.
func (ld *Loader) Discover(ctx context.Context) ([]Discovered, error) {
	idx, err := ld.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Discovered(nil), idx.units...), nil
}

// ListAll instantiates every discoverable unit in discovery order. Units
// whose factory is missing or fails are skipped. When initializeNow is true
// each unit's Init runs during enumeration and the first error is returned.
func (ld *Loader) ListAll(ctx context.Context, initializeNow bool) ([]*Loaded, error) {
	idx, err := ld.currentIndex(ctx)
	if err != nil {
		return nil, err
	}

	var result []*Loaded
	for _, d := range idx.units {
		l, err := ld.instantiate(d)
		if err != nil {
			ld.logger.Warn("skipping unit", "key", d.Key, "error", err)
			continue
		}
		if initializeNow {
			if err := l.Init(ctx); err != nil {
				return result, err
			}
		}
		result = append(result, l)
	}
	return result, nil
}

// Keys returns the canonical keys of every unit ListAll would return, sorted.
func (ld *Loader) Keys(ctx context.Context) ([]string, error) {
	idx, err := ld.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(idx.units))
	for _, d := range idx.units {
		if _, ok := ld.factories[d.Entry]; ok {
			keys = append(keys, d.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether key names a unit that can be loaded. Keys are
// normalized first. Lookup errors read as false.
func (ld *Loader) Exists(ctx context.Context, key string) bool {
	idx, err := ld.currentIndex(ctx)
	if err != nil {
		ld.logger.Warn("unit lookup failed", "key", key, "error", err)
		return false
	}
	d, ok := idx.lookup(canonical(key))
	if !ok {
		return false
	}
	_, ok = ld.factories[d.Entry]
	return ok
}

// Load returns the instance for key, creating it on first use. Unknown keys
// fail with an error wrapping ErrNotFound.
func (ld *Loader) Load(ctx context.Context, key string) (*Loaded, error) {
	idx, err := ld.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := idx.lookup(canonical(key))
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", ld.category, key, ErrNotFound)
	}
	return ld.instantiate(d)
}

// canonical folds key to its canonical form; keys that do not normalize are
// looked up as given and miss.
func canonical(key string) string {
	if k, ok := unitkey.Normalize(key); ok {
		return k
	}
	return key
}

func (ld *Loader) currentIndex(ctx context.Context) (*index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ld.index.valid(ld.sources) {
		return ld.index, nil
	}
	units, err := ld.discoverer.discover(ld.sources)
	if err != nil {
		return nil, err
	}
	ld.index = newIndex(units, ld.sources)
	ld.logger.Debug("units discovered", "count", len(units))
	return ld.index, nil
}

func (ld *Loader) instantiate(d Discovered) (*Loaded, error) {
	if l, ok := ld.instances[d.Key]; ok && l.Dir == d.Dir {
		return l, nil
	}

	factory, ok := ld.factories[d.Entry]
	if !ok {
		return nil, fmt.Errorf("%s %q: no factory registered for entry %q: %w", ld.category, d.Key, d.Entry, ErrNotFound)
	}

	env := unit.Env{
		Key:      d.Key,
		Category: ld.category,
		Dir:      d.Dir,
		Manifest: d.Manifest,
		Request:  ld.request,
		Logger:   ld.logger.With("unit", d.Key),
	}
	u, err := factory(env)
	if err != nil {
		return nil, fmt.Errorf("creating %s %q: %w", ld.category, d.Key, err)
	}
	if u == nil {
		return nil, fmt.Errorf("creating %s %q: factory %q returned nil", ld.category, d.Key, d.Entry)
	}

	l := &Loaded{
		Key:      d.Key,
		Category: ld.category,
		Dir:      d.Dir,
		Manifest: d.Manifest,
		unit:     u,
	}
	ld.instances[d.Key] = l
	return l, nil
}

// Loaded is a unit instance owned by a Loader. Init and AfterInit each run
// at most once; later calls return the first call's result.
type Loaded struct {
	Key      string
	Category unit.Category
	Dir      string
	Manifest *manifest.UnitManifest

	unit          unit.Unit
	initDone      bool
	initErr       error
	afterInitDone bool
	afterInitErr  error
}

// Unit returns the wrapped instance.
func (l *Loaded) Unit() unit.Unit { return l.unit }

// Initialized reports whether Init has run.
func (l *Loaded) Initialized() bool { return l.initDone }

// AfterInitialized reports whether AfterInit has run.
func (l *Loaded) AfterInitialized() bool { return l.afterInitDone }

// Init runs the unit's Init once.
func (l *Loaded) Init(ctx context.Context) error {
	if l.initDone {
		return l.initErr
	}
	l.initDone = true
	if err := l.unit.Init(ctx); err != nil {
		l.initErr = fmt.Errorf("initializing %s %q: %w", l.Category, l.Key, err)
	}
	return l.initErr
}

// AfterInit runs the unit's AfterInit once.
func (l *Loaded) AfterInit(ctx context.Context) error {
	if l.afterInitDone {
		return l.afterInitErr
	}
	l.afterInitDone = true
	if err := l.unit.AfterInit(ctx); err != nil {
		l.afterInitErr = fmt.Errorf("after-initializing %s %q: %w", l.Category, l.Key, err)
	}
	return l.afterInitErr
}
