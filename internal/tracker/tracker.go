// Package tracker is the service facade of the price tracker. It composes
// the source registry, the in-memory snapshot store, the persistence layer,
// the poll scheduler and the alerter behind one transport-agnostic API.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/evgeniytob14/table/internal/adapter"
	"github.com/evgeniytob14/table/internal/compare"
	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/repository"
	"github.com/evgeniytob14/table/internal/scheduler"
	"github.com/evgeniytob14/table/internal/snapshot"
)

var (
	// ErrUnknownSource is returned when a source id is not registered.
	ErrUnknownSource = errors.New("unknown source")
	// ErrSameSource is returned when a comparison names one source twice.
	ErrSameSource = errors.New("source ids must differ")
	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Refresher triggers out-of-band polls on the scheduler.
type Refresher interface {
	ForceRefresh(ctx context.Context, sourceID string) (scheduler.RefreshResult, error)
	ForceRefreshAll(ctx context.Context) map[string]scheduler.RefreshResult
}

// AlertRunner runs one full alert pass over the active profiles.
type AlertRunner interface {
	RunAlertPass(ctx context.Context) error
}

// Tracker exposes the tracker's operations to any transport.
type Tracker struct {
	log       *slog.Logger
	repo      repository.Interface
	store     *snapshot.Store
	registry  *adapter.Registry
	refresher Refresher
	alerts    AlertRunner
}

// New creates a new Tracker instance.
func New(
	log *slog.Logger,
	repo repository.Interface,
	store *snapshot.Store,
	registry *adapter.Registry,
	refresher Refresher,
	alerts AlertRunner,
) *Tracker {
	return &Tracker{
		log:       log,
		repo:      repo,
		store:     store,
		registry:  registry,
		refresher: refresher,
		alerts:    alerts,
	}
}

// WarmStart republishes the last persisted item set of every registered
// source so comparisons work before the first poll completes. Restored
// snapshots stay Inactive until a live fetch succeeds.
func (t *Tracker) WarmStart(ctx context.Context) error {
	const opn = "tracker.WarmStart"

	for _, id := range t.registry.IDs() {
		items, err := t.repo.GetItems(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to load items for %q: %w", opn, id, err)
		}
		if len(items) == 0 {
			continue
		}

		t.store.Replace(id, items, time.Now())
		t.store.SetInactive(id)
		t.log.InfoContext(ctx, "restored persisted snapshot", "source", id, "items", len(items))
	}

	return nil
}

// ListSources reports every registered source with its live status.
func (t *Tracker) ListSources() []models.SourceInfo {
	ids := t.registry.IDs()
	infos := make([]models.SourceInfo, 0, len(ids))

	for _, id := range ids {
		src, _ := t.registry.Get(id)
		info := models.SourceInfo{
			ID:          id,
			DisplayName: src.DisplayName,
			Status:      models.StatusInactive,
			Interval:    src.Interval.String(),
		}
		if snap, ok := t.store.Get(id); ok {
			info.Status = snap.Status
			info.LastSuccessAt = snap.LastSuccessAt
			info.LastError = snap.LastError
			info.ItemCount = len(snap.Items)
		}
		infos = append(infos, info)
	}

	return infos
}

// Compare returns the commission-adjusted comparison of two sources, most
// profitable first. Items present on only one side are omitted.
func (t *Tracker) Compare(sourceA, sourceB string) ([]models.ComparisonResult, error) {
	if sourceA == sourceB {
		return nil, fmt.Errorf("%w: %q", ErrSameSource, sourceA)
	}
	for _, id := range []string{sourceA, sourceB} {
		if _, ok := t.registry.Get(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
		}
	}

	snapA, _ := t.store.Get(sourceA)
	snapB, _ := t.store.Get(sourceB)

	results := compare.Snapshots(snapA, snapB, t.registry.Commission(sourceB))
	sort.Slice(results, func(i, j int) bool {
		if results[i].ProfitPercent != results[j].ProfitPercent {
			return results[i].ProfitPercent > results[j].ProfitPercent
		}
		return results[i].Name < results[j].Name
	})

	return results, nil
}

// ItemPrices finds every item whose name contains the query, case
// insensitively, across all sources. Results are ordered by the
// commission-adjusted price, cheapest first.
func (t *Tracker) ItemPrices(query string) []models.ItemPrice {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	var prices []models.ItemPrice
	for _, id := range t.registry.IDs() {
		snap, ok := t.store.Get(id)
		if !ok {
			continue
		}
		commission := t.registry.Commission(id)
		for name, item := range snap.Items {
			if !strings.Contains(strings.ToLower(name), needle) {
				continue
			}
			prices = append(prices, models.ItemPrice{
				SourceID:             id,
				Name:                 name,
				Price:                item.Price,
				PriceAfterCommission: compare.AfterCommission(item.Price, commission),
				Stock:                item.Stock,
				ObservedAt:           item.ObservedAt,
			})
		}
	}

	sort.Slice(prices, func(i, j int) bool {
		if prices[i].PriceAfterCommission != prices[j].PriceAfterCommission {
			return prices[i].PriceAfterCommission < prices[j].PriceAfterCommission
		}
		if prices[i].Name != prices[j].Name {
			return prices[i].Name < prices[j].Name
		}
		return prices[i].SourceID < prices[j].SourceID
	})

	return prices
}

// LastUpdate reports the newest successful fetch across all sources.
func (t *Tracker) LastUpdate() time.Time {
	return t.store.LastUpdate()
}

// ForceRefresh polls one source immediately, bypassing its timer.
func (t *Tracker) ForceRefresh(ctx context.Context, sourceID string) (scheduler.RefreshResult, error) {
	if _, ok := t.registry.Get(sourceID); !ok {
		return scheduler.RefreshResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	return t.refresher.ForceRefresh(ctx, sourceID)
}

// ForceRefreshAll polls every source immediately.
func (t *Tracker) ForceRefreshAll(ctx context.Context) map[string]scheduler.RefreshResult {
	return t.refresher.ForceRefreshAll(ctx)
}

// RunAlertPass evaluates all active profiles once.
func (t *Tracker) RunAlertPass(ctx context.Context) error {
	return t.alerts.RunAlertPass(ctx)
}

// CreateProfile validates and persists a new profile, returning its id.
func (t *Tracker) CreateProfile(ctx context.Context, profile models.Profile) (int64, error) {
	const opn = "tracker.CreateProfile"

	if err := t.validateProfile(profile); err != nil {
		return 0, err
	}

	id, err := t.repo.CreateProfile(ctx, profile)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opn, err)
	}

	return id, nil
}

// GetProfiles returns every stored profile.
func (t *Tracker) GetProfiles(ctx context.Context) ([]models.Profile, error) {
	return t.repo.GetProfiles(ctx)
}

// UpdateProfile validates and overwrites an existing profile.
func (t *Tracker) UpdateProfile(ctx context.Context, profile models.Profile) error {
	const opn = "tracker.UpdateProfile"

	if err := t.validateProfile(profile); err != nil {
		return err
	}

	if err := t.repo.UpdateProfile(ctx, profile); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	return nil
}

// DeleteProfile removes a profile. Its notification history is retained.
func (t *Tracker) DeleteProfile(ctx context.Context, id int64) error {
	return t.repo.DeleteProfile(ctx, id)
}

func (t *Tracker) validateProfile(profile models.Profile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if profile.SourceA == profile.SourceB {
		return fmt.Errorf("%w: %q", ErrSameSource, profile.SourceA)
	}
	for _, id := range []string{profile.SourceA, profile.SourceB} {
		if _, ok := t.registry.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSource, id)
		}
	}
	if math.IsNaN(profile.MinProfitPercent) || math.IsInf(profile.MinProfitPercent, 0) ||
		profile.MinProfitPercent < 0 {
		return fmt.Errorf("%w: minProfitPercent must be a non-negative number", ErrInvalidProfile)
	}

	return nil
}
