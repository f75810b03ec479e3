package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/controllers"
	"github.com/amaumene/airingbot/internal/models"
)

// StatsSource reports watchlist totals
type StatsSource interface {
	Stats(ctx context.Context) (models.StoreStats, error)
}

// ReportSource exposes the latest check cycle
type ReportSource interface {
	LastReport() *controllers.CycleReport
}

// StatusHandler handles status requests
type StatusHandler struct {
	stats   StatsSource
	reports ReportSource
	logger  *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(stats StatsSource, reports ReportSource, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		stats:   stats,
		reports: reports,
		logger:  logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Watchlist models.StoreStats        `json:"watchlist"`
	LastCycle *controllers.CycleReport `json:"last_cycle"` // null before the first cycle
}

// Handle handles the status endpoint
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	stats, err := h.stats.Stats(c.UserContext())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get watchlist stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(StatusResponse{
		Watchlist: stats,
		LastCycle: h.reports.LastReport(),
	})
}
