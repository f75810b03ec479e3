package di

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/api"
	"github.com/amaumene/airingbot/internal/bot"
	"github.com/amaumene/airingbot/internal/config"
	"github.com/amaumene/airingbot/internal/controllers"
	"github.com/amaumene/airingbot/internal/metrics"
	"github.com/amaumene/airingbot/internal/models"
	"github.com/amaumene/airingbot/internal/scheduler"
	"github.com/amaumene/airingbot/internal/services/anilist"
	"github.com/amaumene/airingbot/internal/services/telegram"
)

// App is the fully wired bot
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Store     models.Store
	Telegram  *telegram.Client
	Checks    *controllers.CheckController
	Commands  *bot.Table
	Scheduler *scheduler.Scheduler
	Server    *api.Server
}

// StoreSet opens the configured watchlist store
var StoreSet = wire.NewSet(ProvideStore)

// WatchlistSet serves the user-facing watchlist operations
var WatchlistSet = wire.NewSet(StoreSet, anilist.NewClient, ProvideWatchlistController)

// AppSet is everything the serve and check commands need
var AppSet = wire.NewSet(
	WatchlistSet,
	telegram.NewClient,
	ProvideRegistry,
	ProvideMetrics,
	ProvideCheckOptions,
	ProvideNotificationLog,
	ProvideNotificationController,
	ProvideCheckController,
	ProvideCommands,
	ProvideScheduler,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

// ProvideStore opens the store and closes it on cleanup
func ProvideStore(cfg *config.Config, logger *logrus.Logger) (models.Store, func(), error) {
	store, err := models.Open(cfg.StoreDriver, cfg.DatabaseFile)
	if err != nil {
		return nil, nil, err
	}
	logger.WithFields(logrus.Fields{
		"driver": cfg.StoreDriver,
		"path":   cfg.DatabaseFile,
	}).Info("Database initialized")

	return store, func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database")
		}
	}, nil
}

func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func ProvideCheckOptions(cfg *config.Config) controllers.CheckOptions {
	return controllers.CheckOptions{Workers: cfg.CheckWorkers}
}

// ProvideNotificationLog returns nil when repeat suppression is disabled
func ProvideNotificationLog(cfg *config.Config, store models.Store) controllers.NotificationLog {
	if !cfg.NotifyDedupe {
		return nil
	}
	return store
}

func ProvideNotificationController(tg *telegram.Client, cfg *config.Config, logger *logrus.Logger) *controllers.NotificationController {
	return controllers.NewNotificationController(tg, cfg.DispatchTimeout, logger)
}

func ProvideCheckController(
	store models.Store,
	client *anilist.Client,
	notifier *controllers.NotificationController,
	log controllers.NotificationLog,
	opts controllers.CheckOptions,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *controllers.CheckController {
	return controllers.NewCheckController(store, client, notifier, log, opts, m, logger)
}

func ProvideWatchlistController(store models.Store, client *anilist.Client, logger *logrus.Logger) *controllers.WatchlistController {
	return controllers.NewWatchlistController(store, client, logger)
}

func ProvideCommands(watchlist *controllers.WatchlistController, logger *logrus.Logger) *bot.Table {
	return bot.DefaultCommands(watchlist, logger)
}

func ProvideScheduler(checks *controllers.CheckController, cfg *config.Config, logger *logrus.Logger) *scheduler.Scheduler {
	return scheduler.NewScheduler(checks, cfg.CheckInterval, cfg.RunOnStart, logger)
}

func ProvideServer(cfg *config.Config, store models.Store, checks *controllers.CheckController, reg *prometheus.Registry, logger *logrus.Logger) *api.Server {
	return api.NewServer(cfg, store, checks, reg, logger)
}
