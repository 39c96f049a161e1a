// Package alerter runs the profile alert pass: it compares the two sources
// of every active profile, filters the results against the profile's
// thresholds, suppresses repeats through the notification log, and hands
// qualifying opportunities to the alert sink.
package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/evgeniytob14/table/internal/adapter"
	"github.com/evgeniytob14/table/internal/compare"
	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/repository"
	"github.com/evgeniytob14/table/internal/snapshot"
)

// repeatWindow is how long an unchanged opportunity stays suppressed.
const repeatWindow = 24 * time.Hour

// profitDeltaThreshold is the profit-percent move that re-triggers an alert
// inside the repeat window.
const profitDeltaThreshold = 5.0

// Sink delivers one formatted alert message. Implementations live outside
// the core; failures are logged here, never retried.
type Sink interface {
	Send(ctx context.Context, message string) error
}

// Repository is the persistence surface the alerter needs.
type Repository interface {
	repository.ProfileRepository
	repository.NotificationRepository
}

// Alerter is an orchestrator that performs a full alert pass.
type Alerter struct {
	log      *slog.Logger
	repo     Repository
	store    *snapshot.Store
	registry *adapter.Registry
	sink     Sink

	// mu serializes alert passes so one (profile, item) pair is never
	// evaluated by two overlapping checks.
	mu sync.Mutex
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(
	log *slog.Logger,
	repo Repository,
	store *snapshot.Store,
	registry *adapter.Registry,
	sink Sink,
) *Alerter {
	return &Alerter{log: log, repo: repo, store: store, registry: registry, sink: sink}
}

// Evaluate filters comparison results against one profile's thresholds:
// minimum profit percent, the overstock filter on the sell side, and
// availability on the buy side.
func Evaluate(profile models.Profile, results []models.ComparisonResult) []models.ComparisonResult {
	var kept []models.ComparisonResult
	for _, result := range results {
		if result.ProfitPercent < profile.MinProfitPercent {
			continue
		}
		if profile.HideOverstock && models.IsOverstock(result.StockB) {
			continue
		}
		if !models.IsStockAvailable(result.StockA) {
			continue
		}
		kept = append(kept, result)
	}
	return kept
}

// ShouldNotify decides whether a qualifying result warrants a new alert
// given the latest prior record for the same (profile, item), nil when the
// pair was never notified.
func ShouldNotify(prior *models.NotificationRecord, profitPercent float64, stockA string, now time.Time) bool {
	if prior == nil {
		return true
	}

	if now.Sub(prior.Timestamp) > repeatWindow {
		return true
	}
	if math.Abs(profitPercent-prior.ProfitPercent) > profitDeltaThreshold {
		return true
	}

	return prior.WasUnavailable && models.IsStockAvailable(stockA)
}

// RunAlertPass iterates active, alert-enabled profiles and runs
// evaluate+dedup+sink for each. One profile's failure never aborts the
// others.
func (a *Alerter) RunAlertPass(ctx context.Context) error {
	const opn = "alerter.RunAlertPass"

	a.mu.Lock()
	defer a.mu.Unlock()

	log := a.log.With("op", opn)

	profiles, err := a.repo.GetActiveProfiles(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to get active profiles: %w", opn, err)
	}

	for _, profile := range profiles {
		if !profile.AlertsEnabled {
			continue
		}
		if err = a.runProfile(ctx, profile); err != nil {
			log.ErrorContext(ctx, "alert pass failed for profile",
				"profile", profile.Name, "error", err)
		}
	}

	return nil
}

// runProfile evaluates one profile and dispatches its new opportunities.
func (a *Alerter) runProfile(ctx context.Context, profile models.Profile) error {
	const opn = "alerter.runProfile"
	log := a.log.With("op", opn, "profile", profile.Name)

	snapA, okA := a.store.Get(profile.SourceA)
	snapB, okB := a.store.Get(profile.SourceB)
	if !okA || !okB {
		log.WarnContext(ctx, "skipping profile: snapshot missing",
			"sourceA", profile.SourceA, "sourceB", profile.SourceB)
		return nil
	}

	results := compare.Snapshots(snapA, snapB, a.registry.Commission(profile.SourceB))
	qualifying := Evaluate(profile, results)
	if len(qualifying) == 0 {
		return nil
	}

	history, err := a.repo.LatestNotifications(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("%s: failed to get notification history: %w", opn, err)
	}

	now := time.Now()
	for _, result := range qualifying {
		var prior *models.NotificationRecord
		if record, seen := history[result.Name]; seen {
			prior = &record
		}
		if !ShouldNotify(prior, result.ProfitPercent, result.StockA, now) {
			continue
		}

		// The record is appended before the sink runs: a sink failure must
		// not cause a re-delivery on the next pass.
		have, parsed := models.StockNumerator(result.StockA)
		record := models.NotificationRecord{
			ProfileID:      profile.ID,
			ItemName:       result.Name,
			ProfitPercent:  result.ProfitPercent,
			WasUnavailable: parsed && have == 0,
			Timestamp:      now,
		}
		if err = a.repo.LogNotification(ctx, record); err != nil {
			log.ErrorContext(ctx, "failed to log notification", "item", result.Name, "error", err)
			continue
		}

		message := formatMessage(result, profile, a.displayName(profile.SourceA), a.displayName(profile.SourceB))
		if err = a.sink.Send(ctx, message); err != nil {
			log.ErrorContext(ctx, "failed to deliver alert", "item", result.Name, "error", err)
			continue
		}

		log.InfoContext(ctx, "alert dispatched", "item", result.Name, "profitPercent", result.ProfitPercent)
	}

	return nil
}

func (a *Alerter) displayName(sourceID string) string {
	if src, ok := a.registry.Get(sourceID); ok {
		return src.DisplayName
	}
	return sourceID
}

// formatMessage renders one opportunity as the HTML alert body.
func formatMessage(result models.ComparisonResult, profile models.Profile, nameA, nameB string) string {
	overstockWarning := ""
	if models.IsOverstock(result.StockB) {
		overstockWarning = fmt.Sprintf("\n⚠️ <b>OVERSTOCK</b> on %s\n", nameB)
	}

	sign := ""
	if result.ProfitPercent > 0 {
		sign = "+"
	}

	return fmt.Sprintf(`<b>🚀 NEW PROFITABLE ITEM</b>

<b>Item:</b> %s
<b>Direction:</b> %s → %s
<b>Prices:</b> $%.2f → $%.2f
<b>After commission:</b> $%.2f
<b>Profit:</b> %s%.2f%%
%s
<b>Profile:</b> %s`,
		result.Name,
		nameA, nameB,
		float64(result.PriceA)/100, float64(result.PriceB)/100,
		result.PriceBAfterCommission/100,
		sign, result.ProfitPercent,
		overstockWarning,
		profile.Name,
	)
}
