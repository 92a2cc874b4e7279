package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dns-price-bot/models"
	"dns-price-bot/scheduler"
	"dns-price-bot/utils"
)

type Stats interface {
	Generate(ctx context.Context) (*models.StatsReport, error)
	Items(ctx context.Context) ([]*models.TrackedItem, error)
}

type SchedulerStatus interface {
	Status() scheduler.Status
}

// Handler serves the read-only status endpoints
type Handler struct {
	stats  Stats
	sched  SchedulerStatus
	logger *utils.Logger
}

func NewHandler(stats Stats, sched SchedulerStatus, logger *utils.Logger) *Handler {
	return &Handler{stats: stats, sched: sched, logger: logger}
}

// Router builds the gin engine with all routes
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	api.GET("/stats", h.GetStats)
	api.GET("/items", h.ListItems)
	api.GET("/scheduler", h.GetScheduler)
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetStats(c *gin.Context) {
	report, err := h.stats.Generate(c.Request.Context())
	if err != nil {
		h.logger.Error("Stats request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build stats"})
		return
	}
	resp := gin.H{
		"tracked_count":  report.TrackedCount,
		"target_price":   report.TargetPrice,
		"check_interval": report.CheckInterval.String(),
		"quiet_enabled":  report.QuietEnabled,
		"quiet_now":      report.QuietNow,
	}
	if report.TrackedCount > 0 {
		resp["min_price"] = report.MinPrice
		resp["max_price"] = report.MaxPrice
		resp["average_price"] = report.AveragePrice
		resp["cheapest"] = report.Cheapest
		resp["last_updated"] = report.LastUpdated
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.stats.Items(c.Request.Context())
	if err != nil {
		h.logger.Error("Items request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch items"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetScheduler(c *gin.Context) {
	c.JSON(http.StatusOK, h.sched.Status())
}

// Serve runs the HTTP server until ctx is cancelled
func Serve(ctx context.Context, addr string, h *Handler, logger *utils.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Status API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Status API stopped")
	return nil
}
