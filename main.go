package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/taskfolio/taskfolio-be/internal/api"
	"github.com/taskfolio/taskfolio-be/internal/auth"
	"github.com/taskfolio/taskfolio-be/internal/config"
	"github.com/taskfolio/taskfolio-be/internal/database"
	"github.com/taskfolio/taskfolio-be/internal/logger"
	"github.com/taskfolio/taskfolio-be/internal/monitoring"
	"github.com/taskfolio/taskfolio-be/internal/services"
	"github.com/taskfolio/taskfolio-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	sessionService := services.NewSessionService(db, cfg.SessionTTL)
	taskService := services.NewTaskService(db, eventService, hub)

	tokens := auth.NewManager(cfg.JWTSecret, sessionService)

	// Set up and run the background reminder sweep
	reminder, err := monitoring.NewReminder(cfg.ReminderSchedule, taskService, sessionService, eventService, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize reminder sweep")
	}
	go reminder.Run()

	// Set up router
	router := api.NewRouter(db, hub, tokens, userService, sessionService, taskService, eventService, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reminder.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
