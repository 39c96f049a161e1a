// Package adapter defines the contract every marketplace integration must
// satisfy and the registry binding configured source ids to implementations.
// The core never special-cases a marketplace beyond the configuration values
// carried here (poll interval, commission rate).
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/evgeniytob14/table/internal/models"
)

// Adapter produces the current normalized item list of one marketplace.
// Fetch must be idempotent and side-effect free beyond network I/O. Item
// names must be trimmed; SourceID and ObservedAt are stamped by the caller.
type Adapter interface {
	Fetch(ctx context.Context) ([]models.Item, error)
}

// Source is one registered marketplace with its polling settings.
type Source struct {
	ID          string
	DisplayName string
	Adapter     Adapter
	Interval    time.Duration // zero means the scheduler default
	Commission  int           // sell-side fee, integer percent
}

var (
	ErrEmptyID           = errors.New("source id must not be empty")
	ErrNilAdapter        = errors.New("source adapter must not be nil")
	ErrDuplicateID       = errors.New("source id already registered")
	ErrInvalidCommission = errors.New("commission must be an integer percent between 0 and 100")
)

// Registry owns the fixed set of sources, built once at startup and passed
// by handle afterwards. It is read-only after construction and therefore
// safe for concurrent use.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source to the registry, validating its settings.
func (r *Registry) Register(src Source) error {
	const opn = "adapter.Register"

	if src.ID == "" {
		return fmt.Errorf("%s: %w", opn, ErrEmptyID)
	}
	if src.Adapter == nil {
		return fmt.Errorf("%s: source %q: %w", opn, src.ID, ErrNilAdapter)
	}
	if src.Commission < 0 || src.Commission > 100 {
		return fmt.Errorf("%s: source %q: %w", opn, src.ID, ErrInvalidCommission)
	}
	if _, exists := r.sources[src.ID]; exists {
		return fmt.Errorf("%s: %q: %w", opn, src.ID, ErrDuplicateID)
	}
	if src.DisplayName == "" {
		src.DisplayName = src.ID
	}

	r.sources[src.ID] = src

	return nil
}

// Get returns the source registered under id.
func (r *Registry) Get(id string) (Source, bool) {
	src, ok := r.sources[id]
	return src, ok
}

// Commission returns the sell-side commission percent for id, zero when the
// id is unknown.
func (r *Registry) Commission(id string) int {
	return r.sources[id].Commission
}

// IDs returns all registered source ids in stable sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}
