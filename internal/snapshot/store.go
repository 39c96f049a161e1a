// Package snapshot holds the most recent complete item set per source.
// A replace builds a fresh immutable Snapshot and publishes it with one
// pointer swap, so concurrent readers see either the whole previous set or
// the whole new set, never a mix.
package snapshot

import (
	"strings"
	"sync"
	"time"

	"github.com/evgeniytob14/table/internal/models"
)

// Store maps source ids to their latest published snapshot.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]*models.Snapshot)}
}

// Get returns the latest snapshot for sourceID. The returned snapshot is
// shared and must be treated as read-only.
func (s *Store) Get(sourceID string) (*models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[sourceID]
	return snap, ok
}

// Replace publishes a new complete item set for sourceID, marking the
// source Active and clearing any recorded error. Item names are trimmed and
// duplicate names collapse last-write-wins.
func (s *Store) Replace(sourceID string, items []models.Item, now time.Time) *models.Snapshot {
	itemMap := make(map[string]models.Item, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		item.SourceID = sourceID
		if item.ObservedAt.IsZero() {
			item.ObservedAt = now
		}
		itemMap[item.Name] = item
	}

	snap := &models.Snapshot{
		SourceID:      sourceID,
		Items:         itemMap,
		LastSuccessAt: now,
		Status:        models.StatusActive,
	}

	s.mu.Lock()
	s.snapshots[sourceID] = snap
	s.mu.Unlock()

	return snap
}

// SetError records a fetch failure for sourceID. The previous item set is
// kept: stale data beats no data.
func (s *Store) SetError(sourceID string, fetchErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshots[sourceID]

	snap := &models.Snapshot{
		SourceID:  sourceID,
		Items:     map[string]models.Item{},
		LastError: fetchErr.Error(),
		Status:    models.StatusError,
	}
	if prev != nil {
		snap.Items = prev.Items
		snap.LastSuccessAt = prev.LastSuccessAt
	}

	s.snapshots[sourceID] = snap
}

// SetInactive marks sourceID as not being polled, keeping its items.
func (s *Store) SetInactive(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshots[sourceID]

	snap := &models.Snapshot{
		SourceID: sourceID,
		Items:    map[string]models.Item{},
		Status:   models.StatusInactive,
	}
	if prev != nil {
		snap.Items = prev.Items
		snap.LastSuccessAt = prev.LastSuccessAt
		snap.LastError = prev.LastError
	}

	s.snapshots[sourceID] = snap
}

// LastUpdate returns the most recent successful fetch time across all
// sources, zero when nothing has been fetched yet.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, snap := range s.snapshots {
		if snap.LastSuccessAt.After(latest) {
			latest = snap.LastSuccessAt
		}
	}
	return latest
}
