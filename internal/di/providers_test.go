package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/airingbot/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AniListURL:           "http://127.0.0.1:1",
		AniListRatePerMinute: 60,
		CheckWorkers:         3,
		LookupTimeout:        2 * time.Second,
		StoreDriver:          config.StoreDriverSQLite,
		DatabaseFile:         filepath.Join(t.TempDir(), "airingbot.db"),
	}
}

func TestProvideNotificationLog(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := testConfig(t)
	store, cleanup, err := ProvideStore(cfg, logger)
	require.NoError(t, err)
	defer cleanup()

	cfg.NotifyDedupe = true
	assert.NotNil(t, ProvideNotificationLog(cfg, store))

	cfg.NotifyDedupe = false
	assert.Nil(t, ProvideNotificationLog(cfg, store))
}

func TestProvideCheckOptions(t *testing.T) {
	opts := ProvideCheckOptions(testConfig(t))
	assert.Equal(t, 3, opts.Workers)
}

func TestInitializeWatchlist(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := testConfig(t)

	watchlist, cleanup, err := InitializeWatchlist(cfg, logger)
	require.NoError(t, err)
	defer cleanup()

	titles, err := watchlist.List(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestInitializeAppRequiresTelegramToken(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, _, err := InitializeApp(testConfig(t), logger)
	assert.EqualError(t, err, "TELEGRAM_TOKEN is required")
}

func TestProvideStoreUnknownDriver(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := testConfig(t)
	cfg.StoreDriver = "postgres"

	_, _, err := ProvideStore(cfg, logger)
	assert.EqualError(t, err, "unknown store driver: postgres")
}
