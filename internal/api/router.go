package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskfolio/taskfolio-be/internal/api/handlers"
	"github.com/taskfolio/taskfolio-be/internal/auth"
	"github.com/taskfolio/taskfolio-be/internal/services"
	"github.com/taskfolio/taskfolio-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	db *sql.DB,
	hub *websocket.Hub,
	tokens *auth.Manager,
	userService services.UserServiceProvider,
	sessionService services.SessionServiceProvider,
	taskService services.TaskServiceProvider,
	eventService services.EventServiceProvider,
	allowedOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, sessionService, eventService, tokens)
	taskHandler := handlers.NewTaskHandler(taskService)
	eventHandler := handlers.NewEventHandler(eventService)
	healthHandler := handlers.NewHealthHandler(db)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Handle("/metrics", promhttp.Handler())

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Post("/auth/signup", userHandler.Signup)
		r.Post("/auth/login", userHandler.Login)

		// Everything below requires an established session.
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())

			r.Post("/auth/logout", userHandler.Logout)
			r.Get("/users/me", userHandler.GetMe)
			r.Get("/events", eventHandler.GetRecent)
			r.Get("/ws", wsHandler.Serve)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.GetAll)
				r.Post("/", taskHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.Get)
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
				})
			})
		})
	})

	return r
}
