package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/post"
	"github.com/lysyi3m/social-comb/app/tasks"
)

// NewHandler builds the API handler. cache may be nil when Redis is not configured.
func NewHandler(postRepo database.PostRepository, scheduler tasks.TaskSchedulerInterface,
	history RunHistory, cache HealthReporter) *Handler {
	return &Handler{
		postRepo:  postRepo,
		scheduler: scheduler,
		history:   history,
		cache:     cache,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().In(time.Local).Format(time.RFC3339),
		"run_active": h.scheduler.IsRunActive(),
	}
	status := http.StatusOK

	if err := h.postRepo.Ping(ctx); err != nil {
		slog.Error("Database error", "operation", "ping", "error", err)
		health["status"] = "unhealthy"
		health["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		health["database"] = "ok"
	}

	if h.cache != nil {
		health["cache"] = h.cache.Health(ctx)
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.postRepo.CountByPlatform(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	stats := gin.H{
		"posts": gin.H{
			"total":       total,
			"by_platform": counts,
		},
		"run_active": h.scheduler.IsRunActive(),
	}

	if h.history != nil {
		last, err := h.history.LastRun(ctx)
		if err != nil {
			slog.Warn("Failed to load last run", "error", err)
		} else if last != nil {
			stats["last_run"] = gin.H{
				"run_id":      last.RunID,
				"started_at":  last.StartedAt,
				"finished_at": last.FinishedAt,
				"duration":    last.Duration().String(),
				"fetched":     last.Fetched,
				"attempted":   last.Attempted,
				"inserted":    last.Inserted,
				"failed":      last.Failed,
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListPosts(c *gin.Context) {
	var platform post.Platform
	if raw := c.Query("platform"); raw != "" {
		platform = post.Platform(raw)
		if platform != post.PlatformX && platform != post.PlatformYouTube {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform", "platform": raw})
			return
		}
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	posts, err := h.postRepo.ListRecent(c.Request.Context(), platform, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_posts", "platform", string(platform), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": len(posts),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	runID, err := h.scheduler.TriggerRun()
	if errors.Is(err, tasks.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "Run already in progress"})
		return
	}
	if err != nil {
		slog.Error("Error enqueueing run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue run",
			"details": err.Error(),
		})
		return
	}

	slog.Info("Run triggered via API", "run_id", runID)

	c.JSON(http.StatusAccepted, runResponse{
		RunID:   runID,
		Message: "Run enqueued",
	})
}
