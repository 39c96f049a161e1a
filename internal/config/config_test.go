package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evgeniytob14/table/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	t.Run("error - empty required env variable", func(t *testing.T) {
		t.Setenv("TRACKER_SOURCES_FILE", "")

		assert.PanicsWithError(t, config.ErrEmptySourcesFile.Error(), func() {
			config.MustLoad()
		})
	})

	t.Run("success", func(t *testing.T) {
		t.Setenv("TRACKER_ENV", "local")
		t.Setenv("TRACKER_SOURCES_FILE", "sources.yaml")
		t.Setenv("TRACKER_HTTP_ADDR", ":9090")
		t.Setenv("TRACKER_STORAGE_PATH", "some/path/to/db")
		t.Setenv("TRACKER_TELEGRAM_TOKEN", "telegramToken")
		t.Setenv("TRACKER_TELEGRAM_CHAT_ID", "12345")
		t.Setenv("TRACKER_POLL_INTERVAL", "90s")

		cfg := config.MustLoad()

		assert.Equal(t, "local", cfg.Env)
		assert.Equal(t, "sources.yaml", cfg.SourcesFile)
		assert.Equal(t, ":9090", cfg.HTTPAddr)
		assert.Equal(t, "some/path/to/db", cfg.StoragePath)
		assert.Equal(t, "telegramToken", cfg.Tg.Token)
		assert.Equal(t, int64(12345), cfg.Tg.ChatID)
		assert.Equal(t, 90*time.Second, cfg.Poll.DefaultInterval)
		assert.Equal(t, 5*time.Second, cfg.Poll.RetryDelay)
		assert.Equal(t, 30*time.Second, cfg.Poll.FetchTimeout)
		assert.Equal(t, 3, cfg.Poll.MaxAttempts)
		assert.Equal(t, time.Minute, cfg.AlertInterval)
	})
}

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadSources(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		path := writeSourcesFile(t, `
sources:
  - id: lootfarm
    displayName: Loot.Farm
    kind: json
    url: https://loot.farm/fullprice.json
    commission: 3
  - id: swapgg
    kind: html
    url: https://swap.gg/prices
    selector: ".price-table tbody tr"
    interval: 10m
    commission: 5
`)

		specs, err := config.LoadSources(path)
		require.NoError(t, err)
		require.Len(t, specs, 2)

		assert.Equal(t, "lootfarm", specs[0].ID)
		assert.Equal(t, "Loot.Farm", specs[0].DisplayName)
		assert.Equal(t, "json", specs[0].Kind)
		assert.Equal(t, 3, specs[0].Commission)
		assert.Zero(t, specs[0].Interval)

		assert.Equal(t, ".price-table tbody tr", specs[1].Selector)
		assert.Equal(t, 10*time.Minute, specs[1].Interval)
	})

	t.Run("error - missing file", func(t *testing.T) {
		_, err := config.LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("error - empty source list", func(t *testing.T) {
		path := writeSourcesFile(t, "sources: []\n")

		_, err := config.LoadSources(path)
		require.ErrorIs(t, err, config.ErrNoSources)
	})

	t.Run("error - unknown adapter kind", func(t *testing.T) {
		path := writeSourcesFile(t, `
sources:
  - id: lootfarm
    kind: xml
    url: https://loot.farm/fullprice.json
`)

		_, err := config.LoadSources(path)
		require.ErrorIs(t, err, config.ErrInvalidAdapter)
	})

	t.Run("error - missing url", func(t *testing.T) {
		path := writeSourcesFile(t, `
sources:
  - id: lootfarm
    kind: json
`)

		_, err := config.LoadSources(path)
		require.Error(t, err)
	})
}
