package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strictd/taskwarden/internal/config"
	"github.com/strictd/taskwarden/internal/repository"
)

// NewRouter builds the gin engine with all lifecycle routes, the health
// check, and the Prometheus exporter.
func NewRouter(cfg *config.Config, handler *Handler, db *repository.DB) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/users", handler.RegisterUser)
		v1.GET("/users/:id", handler.GetUser)
		v1.GET("/users/:id/tasks", handler.ListTasks)
		v1.GET("/users/:id/assignments", handler.ListAssignments)
		v1.GET("/users/:id/stats", handler.GetStats)
		v1.GET("/users/:id/supervisor", handler.GetSupervisor)

		v1.POST("/relationships", handler.CreateRelationship)

		v1.POST("/tasks", handler.CreateTask)
		v1.DELETE("/tasks/:id", handler.DeleteTask)
		v1.POST("/tasks/:id/completions", handler.SubmitCompletion)
		v1.POST("/completions/:id/review", handler.ReviewCompletion)

		v1.POST("/rewards", handler.CreateReward)
		v1.DELETE("/rewards/:id", handler.DeleteReward)
		v1.POST("/punishments", handler.CreatePunishment)
		v1.DELETE("/punishments/:id", handler.DeletePunishment)

		v1.POST("/assignments/rewards", handler.AssignReward)
		v1.POST("/assignments/punishments", handler.AssignPunishment)
		v1.POST("/assignments/:id/proof", handler.SubmitProof)
		v1.POST("/assignments/:id/review", handler.ReviewProof)
		v1.POST("/assignments/:id/cancel", handler.CancelAssignment)

		v1.POST("/thresholds", handler.CreateThreshold)
		v1.DELETE("/thresholds/:id", handler.DeleteThreshold)

		v1.GET("/supervisors/:id/completions", handler.PendingCompletions)
		v1.GET("/supervisors/:id/rewards", handler.ListRewards)
		v1.GET("/supervisors/:id/punishments", handler.ListPunishments)
		v1.GET("/supervisors/:id/thresholds", handler.ListThresholds)
	}

	return router
}
