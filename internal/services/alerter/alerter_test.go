package alerter_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/evgeniytob14/table/internal/adapter"
	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/services/alerter"
	"github.com/evgeniytob14/table/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateProfile(ctx context.Context, profile models.Profile) (int64, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) GetProfiles(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *mockRepository) GetActiveProfiles(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *mockRepository) UpdateProfile(ctx context.Context, profile models.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockRepository) DeleteProfile(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) LogNotification(ctx context.Context, record models.NotificationRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockRepository) LatestNotifications(
	ctx context.Context,
	profileID int64,
) (map[string]models.NotificationRecord, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.NotificationRecord), args.Error(1)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Send(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

// =============================================================================
// Decision logic
// =============================================================================

func TestShouldNotify(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	priorAt := func(age time.Duration, profitPercent float64, wasUnavailable bool) *models.NotificationRecord {
		return &models.NotificationRecord{
			ProfileID:      1,
			ItemName:       "Red Key",
			ProfitPercent:  profitPercent,
			WasUnavailable: wasUnavailable,
			Timestamp:      now.Add(-age),
		}
	}

	testCases := []struct {
		name          string
		prior         *models.NotificationRecord
		profitPercent float64
		stockA        string
		expected      bool
	}{
		{
			name:          "never notified",
			prior:         nil,
			profitPercent: 12.28,
			stockA:        "0",
			expected:      true,
		},
		{
			name:          "recent record, unchanged opportunity",
			prior:         priorAt(time.Hour, 12.28, false),
			profitPercent: 12.28,
			stockA:        "0",
			expected:      false,
		},
		{
			name:          "repeat window expired",
			prior:         priorAt(25*time.Hour, 12.28, false),
			profitPercent: 12.28,
			stockA:        "0",
			expected:      true,
		},
		{
			name:          "profit moved more than five points",
			prior:         priorAt(time.Hour, 12.28, false),
			profitPercent: 18.0,
			stockA:        "0",
			expected:      true,
		},
		{
			name:          "profit moved exactly five points",
			prior:         priorAt(time.Hour, 10.0, false),
			profitPercent: 15.0,
			stockA:        "0",
			expected:      false,
		},
		{
			name:          "was unavailable, now back in stock",
			prior:         priorAt(time.Hour, 12.28, true),
			profitPercent: 12.28,
			stockA:        "2",
			expected:      true,
		},
		{
			name:          "was unavailable, still out of stock",
			prior:         priorAt(time.Hour, 12.28, true),
			profitPercent: 12.28,
			stockA:        "0",
			expected:      false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := alerter.ShouldNotify(tc.prior, tc.profitPercent, tc.stockA, now)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestEvaluate(t *testing.T) {
	redKey := models.ComparisonResult{
		Name: "Red Key", PriceA: 500, PriceB: 600, PriceBAfterCommission: 570,
		Profit: 0.70, ProfitPercent: 12.28, StockA: "3", StockB: "2/2",
	}
	lowProfit := models.ComparisonResult{
		Name: "Blue Key", ProfitPercent: 4, StockA: "1", StockB: "1/5",
	}
	unavailable := models.ComparisonResult{
		Name: "Green Key", ProfitPercent: 30, StockA: "0", StockB: "1/5",
	}
	results := []models.ComparisonResult{redKey, lowProfit, unavailable}

	t.Run("hideOverstock excludes the overstocked sell side", func(t *testing.T) {
		profile := models.Profile{MinProfitPercent: 10, HideOverstock: true}
		assert.Empty(t, alerter.Evaluate(profile, results))
	})

	t.Run("without hideOverstock the item qualifies", func(t *testing.T) {
		profile := models.Profile{MinProfitPercent: 10, HideOverstock: false}
		kept := alerter.Evaluate(profile, results)
		require.Len(t, kept, 1)
		assert.Equal(t, "Red Key", kept[0].Name)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		profile := models.Profile{MinProfitPercent: 12.28}
		kept := alerter.Evaluate(profile, results)
		require.Len(t, kept, 1)
		assert.Equal(t, "Red Key", kept[0].Name)
	})
}

// =============================================================================
// Alert pass
// =============================================================================

func newAlertPassFixture(t *testing.T) (*snapshot.Store, *adapter.Registry) {
	t.Helper()

	store := snapshot.NewStore()
	now := time.Now()
	store.Replace("lootfarm", []models.Item{{Name: "Red Key", Price: 500, Stock: "3"}}, now)
	store.Replace("swapgg", []models.Item{{Name: "Red Key", Price: 600, Stock: "2/2"}}, now)

	registry := adapter.NewRegistry()
	fake := stubAdapter{}
	require.NoError(t, registry.Register(adapter.Source{ID: "lootfarm", Adapter: fake, Commission: 3}))
	require.NoError(t, registry.Register(adapter.Source{ID: "swapgg", Adapter: fake, Commission: 5}))

	return store, registry
}

type stubAdapter struct{}

func (stubAdapter) Fetch(_ context.Context) ([]models.Item, error) { return nil, nil }

func activeProfile() models.Profile {
	return models.Profile{
		ID:               7,
		Name:             "keys",
		SourceA:          "lootfarm",
		SourceB:          "swapgg",
		MinProfitPercent: 10,
		IsActive:         true,
		AlertsEnabled:    true,
	}
}

func TestAlerter_RunAlertPass_DispatchesNewOpportunity(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, registry := newAlertPassFixture(t)

	repo := new(mockRepository)
	sink := new(mockSink)

	repo.On("GetActiveProfiles", ctx).Return([]models.Profile{activeProfile()}, nil).Once()
	repo.On("LatestNotifications", ctx, int64(7)).
		Return(map[string]models.NotificationRecord{}, nil).Once()
	repo.On("LogNotification", ctx, mock.MatchedBy(func(record models.NotificationRecord) bool {
		return record.ProfileID == 7 &&
			record.ItemName == "Red Key" &&
			record.ProfitPercent == 12.28 &&
			!record.WasUnavailable
	})).Return(nil).Once()
	sink.On("Send", ctx, mock.AnythingOfType("string")).Return(nil).Once()

	alert := alerter.NewAlerter(logger, repo, store, registry, sink)
	require.NoError(t, alert.RunAlertPass(ctx))

	repo.AssertExpectations(t)
	sink.AssertExpectations(t)

	message := sink.Calls[0].Arguments.String(1)
	assert.Contains(t, message, "Red Key")
	assert.Contains(t, message, "lootfarm → swapgg")
	assert.Contains(t, message, "$5.00 → $6.00")
	assert.Contains(t, message, "$5.70")
	assert.Contains(t, message, "+12.28%")
	assert.Contains(t, message, "OVERSTOCK")
	assert.Contains(t, message, "keys")
}

func TestAlerter_RunAlertPass_RecordAppendedBeforeSinkFailure(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, registry := newAlertPassFixture(t)

	repo := new(mockRepository)
	sink := new(mockSink)

	repo.On("GetActiveProfiles", ctx).Return([]models.Profile{activeProfile()}, nil).Once()
	repo.On("LatestNotifications", ctx, int64(7)).
		Return(map[string]models.NotificationRecord{}, nil).Once()
	repo.On("LogNotification", ctx, mock.AnythingOfType("models.NotificationRecord")).Return(nil).Once()
	sink.On("Send", ctx, mock.AnythingOfType("string")).Return(errors.New("telegram down")).Once()

	alert := alerter.NewAlerter(logger, repo, store, registry, sink)
	require.NoError(t, alert.RunAlertPass(ctx), "sink failures are logged, not propagated")

	repo.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestAlerter_RunAlertPass_SuppressesRecentDuplicate(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, registry := newAlertPassFixture(t)

	repo := new(mockRepository)
	sink := new(mockSink)

	history := map[string]models.NotificationRecord{
		"Red Key": {
			ProfileID:     7,
			ItemName:      "Red Key",
			ProfitPercent: 12.28,
			Timestamp:     time.Now().Add(-time.Hour),
		},
	}
	repo.On("GetActiveProfiles", ctx).Return([]models.Profile{activeProfile()}, nil).Once()
	repo.On("LatestNotifications", ctx, int64(7)).Return(history, nil).Once()

	alert := alerter.NewAlerter(logger, repo, store, registry, sink)
	require.NoError(t, alert.RunAlertPass(ctx))

	repo.AssertExpectations(t)
	sink.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "LogNotification", mock.Anything, mock.Anything)
}

func TestAlerter_RunAlertPass_SkipsAlertsDisabledAndMissingSnapshots(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, registry := newAlertPassFixture(t)

	disabled := activeProfile()
	disabled.AlertsEnabled = false

	orphan := activeProfile()
	orphan.ID = 8
	orphan.SourceB = "gone"

	repo := new(mockRepository)
	sink := new(mockSink)
	repo.On("GetActiveProfiles", ctx).Return([]models.Profile{disabled, orphan}, nil).Once()

	alert := alerter.NewAlerter(logger, repo, store, registry, sink)
	require.NoError(t, alert.RunAlertPass(ctx))

	repo.AssertExpectations(t)
	sink.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAlerter_RunAlertPass_RepositoryFailure(t *testing.T) {
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, registry := newAlertPassFixture(t)

	repo := new(mockRepository)
	repo.On("GetActiveProfiles", ctx).Return(nil, assert.AnError).Once()

	alert := alerter.NewAlerter(logger, repo, store, registry, new(mockSink))
	require.Error(t, alert.RunAlertPass(ctx))
	repo.AssertExpectations(t)
}
