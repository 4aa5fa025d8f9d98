package activation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/agentx-labs/unithost/internal/platform"
)

// Document is the stored form of one activation record.
type Document struct {
	Identifier string
	// Properties is the raw YAML payload. It is opaque to the repository.
	Properties []byte
	UpdatedAt  time.Time
}

// Repository is the persistence accessor the store writes through. Persist
// stages a document; Flush makes every staged document durable.
type Repository interface {
	// FindRecord returns nil, nil when no record exists.
	FindRecord(ctx context.Context, identifier string) (*Document, error)
	Persist(ctx context.Context, doc *Document) error
	Flush(ctx context.Context) error
}

var identifierPattern = regexp.MustCompile(`^[a-z0-9_][a-z0-9_.-]*$`)

func checkIdentifier(identifier string) error {
	if !identifierPattern.MatchString(identifier) {
		return fmt.Errorf("invalid record identifier %q", identifier)
	}
	return nil
}

// FileRepository keeps one <identifier>.yaml file per record in a directory.
type FileRepository struct {
	dir string

	mu      sync.Mutex
	pending map[string]*Document
}

// NewFileRepository returns a repository rooted at dir. The directory is
// created on first flush.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir, pending: make(map[string]*Document)}
}

// Dir returns the state directory.
func (r *FileRepository) Dir() string { return r.dir }

// Path returns the file a record is stored in.
func (r *FileRepository) Path(identifier string) string {
	return filepath.Join(r.dir, identifier+".yaml")
}

// FindRecord implements Repository.
func (r *FileRepository) FindRecord(ctx context.Context, identifier string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkIdentifier(identifier); err != nil {
		return nil, err
	}

	path := r.Path(identifier)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking record %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", path, err)
	}
	return &Document{Identifier: identifier, Properties: data, UpdatedAt: info.ModTime()}, nil
}

// Persist implements Repository.
func (r *FileRepository) Persist(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("persisting nil document")
	}
	if err := checkIdentifier(doc.Identifier); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := *doc
	staged.Properties = append([]byte(nil), doc.Properties...)
	r.pending[doc.Identifier] = &staged
	return nil
}

// Flush implements Repository. Each document is written to a temporary file
// and renamed into place so a reader never sees a partial record. Staged
// documents are discarded whether or not the flush succeeds.
func (r *FileRepository) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	defer clear(r.pending)

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("creating state directory %s: %w", r.dir, err)
	}

	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := platform.WriteFileAtomic(r.Path(id), r.pending[id].Properties, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// MemoryRepository keeps records in memory. It is used by tests and by
// ephemeral runs that must not touch disk.
type MemoryRepository struct {
	mu      sync.Mutex
	docs    map[string]*Document
	pending map[string]*Document
	writes  int

	// ReadErr, when set, is returned by FindRecord.
	ReadErr error
	// WriteErr, when set, is returned by Flush and nothing is written.
	WriteErr error
	// Now stamps UpdatedAt on flush. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:    make(map[string]*Document),
		pending: make(map[string]*Document),
	}
}

// Seed stores a raw payload directly, bypassing staging and the write count.
func (r *MemoryRepository) Seed(identifier string, properties []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[identifier] = &Document{Identifier: identifier, Properties: append([]byte(nil), properties...)}
}

// Raw returns the stored payload for identifier.
func (r *MemoryRepository) Raw(identifier string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[identifier]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), doc.Properties...), true
}

// Writes returns how many documents have been flushed.
func (r *MemoryRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// FindRecord implements Repository.
func (r *MemoryRepository) FindRecord(ctx context.Context, identifier string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[identifier]
	if !ok {
		return nil, nil
	}
	out := *doc
	out.Properties = append([]byte(nil), doc.Properties...)
	return &out, nil
}

// Persist implements Repository.
func (r *MemoryRepository) Persist(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("persisting nil document")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := *doc
	staged.Properties = append([]byte(nil), doc.Properties...)
	r.pending[doc.Identifier] = &staged
	return nil
}

// Flush implements Repository.
func (r *MemoryRepository) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.WriteErr != nil {
		clear(r.pending)
		return r.WriteErr
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	for id, doc := range r.pending {
		doc.UpdatedAt = now()
		r.docs[id] = doc
		r.writes++
	}
	clear(r.pending)
	return nil
}
