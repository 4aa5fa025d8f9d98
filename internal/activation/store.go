package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentx-labs/unithost/internal/unit"
)

// ErrWriteFailed wraps every error returned by Store.Write.
var ErrWriteFailed = errors.New("activation record write failed")

// Snapshot is the result of reading one category's record.
type Snapshot struct {
	Identifier string
	// Found is false when no record exists or the repository could not be
	// read. Either way the record is treated as an empty mapping.
	Found   bool
	Decoded DecodeResult
	// Err is the repository error behind an empty snapshot, if any. Callers
	// that write back what they read must not write when it is set.
	Err error
}

// Store reads and writes activation records through a Repository.
type Store struct {
	repo   Repository
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns a store backed by repo.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read loads the record for category. It never fails: a missing record or an
// unreadable repository comes back as an empty mapping. A payload that is
// present but not a mapping (including an empty or null document) comes back
// with Decoded.ShapeValid false so the caller can repair it.
func (s *Store) Read(ctx context.Context, category unit.Category) Snapshot {
	id := category.StorageKey()
	snap := Snapshot{Identifier: id, Decoded: DecodeResult{ShapeValid: true}}

	doc, err := s.repo.FindRecord(ctx, id)
	if err != nil {
		s.logger.Warn("reading activation record failed, treating as empty",
			"record", id, "error", err)
		snap.Err = err
		return snap
	}
	if doc == nil {
		s.logger.Debug("no activation record", "record", id)
		return snap
	}

	snap.Found = true
	snap.Decoded = Decode(doc.Properties)
	if !snap.Decoded.ShapeValid {
		s.logger.Warn("activation record has invalid shape",
			"record", id, "issues", len(snap.Decoded.Issues))
	} else if len(snap.Decoded.Issues) > 0 {
		s.logger.Debug("activation record has invalid pairs",
			"record", id, "issues", len(snap.Decoded.Issues))
	}
	return snap
}

// Write replaces the record for category with entries in one persist and
// flush. Errors wrap ErrWriteFailed.
func (s *Store) Write(ctx context.Context, category unit.Category, entries Entries) error {
	id := category.StorageKey()
	data, err := Encode(entries)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}
	if err := s.repo.Persist(ctx, &Document{Identifier: id, Properties: data}); err != nil {
		return fmt.Errorf("%w: persisting %s: %w", ErrWriteFailed, id, err)
	}
	if err := s.repo.Flush(ctx); err != nil {
		return fmt.Errorf("%w: flushing %s: %w", ErrWriteFailed, id, err)
	}
	s.logger.Debug("activation record written", "record", id, "entries", len(entries))
	return nil
}

// Entries returns the usable pairs of a snapshot as stored, without any
// normalization. Pairs with non-string keys or values are skipped. It is
// meant for display; the reconciler does its own filtering.
func (s Snapshot) Entries() Entries {
	var out Entries
	for _, p := range s.Decoded.Pairs {
		if p.KeyOK && p.ValueOK {
			out.Set(p.Key, p.Value)
		}
	}
	return out
}
