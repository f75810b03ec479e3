//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/config"
	"github.com/amaumene/airingbot/internal/controllers"
)

// InitializeApp wires the bot, the scheduler and the HTTP server
func InitializeApp(cfg *config.Config, logger *logrus.Logger) (*App, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}

// InitializeWatchlist wires watchlist management without Telegram
func InitializeWatchlist(cfg *config.Config, logger *logrus.Logger) (*controllers.WatchlistController, func(), error) {
	wire.Build(WatchlistSet)
	return nil, nil, nil
}
