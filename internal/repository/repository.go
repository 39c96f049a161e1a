// Package repository defines the persistence contracts of the tracker and
// the sentinel errors implementations surface.
package repository

import (
	"context"
	"errors"

	"github.com/evgeniytob14/table/internal/models"
)

var (
	// ErrProfileNotFound is returned when a profile id does not exist.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidSourceID is returned when a source id cannot be mapped to
	// a per-source table.
	ErrInvalidSourceID = errors.New("invalid source id")
)

// ItemRepository persists the per-source item tables.
type ItemRepository interface {
	// EnsureSource creates the item table for sourceID if missing.
	EnsureSource(ctx context.Context, sourceID string) error
	// ReplaceItems swaps the complete item set of sourceID in one
	// transaction: either the previous set or the new set is visible.
	ReplaceItems(ctx context.Context, sourceID string, items []models.Item) error
	// GetItems returns the persisted item set of sourceID.
	GetItems(ctx context.Context, sourceID string) ([]models.Item, error)
}

// ProfileRepository persists alerting profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile models.Profile) (int64, error)
	GetProfiles(ctx context.Context) ([]models.Profile, error)
	GetActiveProfiles(ctx context.Context) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) error
	DeleteProfile(ctx context.Context, id int64) error
}

// NotificationRepository appends to and reads the alert log. The log is
// append-only; history is consulted, never mutated.
type NotificationRepository interface {
	LogNotification(ctx context.Context, record models.NotificationRecord) error
	// LatestNotifications returns the most recent record per item name for
	// one profile.
	LatestNotifications(ctx context.Context, profileID int64) (map[string]models.NotificationRecord, error)
}

// Interface aggregates every persistence concern of the tracker.
type Interface interface {
	ItemRepository
	ProfileRepository
	NotificationRepository
	Close() error
}
