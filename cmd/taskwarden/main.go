// Command taskwarden runs the obligation tracking service: the REST API, the
// deadline sweeper, and the reminder scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strictd/taskwarden/internal/api"
	"github.com/strictd/taskwarden/internal/cache"
	"github.com/strictd/taskwarden/internal/config"
	"github.com/strictd/taskwarden/internal/notify"
	"github.com/strictd/taskwarden/internal/repository"
	"github.com/strictd/taskwarden/internal/service/obligation"
	"github.com/strictd/taskwarden/internal/service/reminder"
	"github.com/strictd/taskwarden/internal/service/review"
	"github.com/strictd/taskwarden/internal/service/sweeper"
	"github.com/strictd/taskwarden/internal/service/threshold"
	"github.com/strictd/taskwarden/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	users := repository.NewUserRepository(db)
	rels := repository.NewRelationshipRepository(db)
	tasks := repository.NewTaskRepository(db)
	catalog := repository.NewCatalogRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	thresholds := repository.NewThresholdRepository(db)

	notifier := notify.NewClient(&cfg.Notifier, log)

	obligationService := obligation.NewService(users, rels, tasks, catalog, assignments, thresholds, notifier, log)
	reviewService := review.NewService(users, tasks, assignments, catalog, notifier, log)
	thresholdService := threshold.NewService(log)

	sweepService := sweeper.NewService(cfg, db, obligationService, thresholdService, notifier, log.Component("sweeper"))
	if err := sweepService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sweeper")
	}
	defer sweepService.Stop()

	if cfg.Reminder.Enabled {
		dedup, err := cache.NewRedisCache(&cfg.Database.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer dedup.Close()

		reminderService := reminder.NewService(cfg, users, tasks, assignments, dedup, notifier, log.Component("reminder"))
		if err := reminderService.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start reminder scheduler")
		}
		defer reminderService.Stop()
	}

	handler := api.NewHandler(obligationService, reviewService, log)
	router := api.NewRouter(cfg, handler, db)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
