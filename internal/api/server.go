package api

import (
	"fmt"
	"log/slog"

	"github.com/Ronaldkim807/NairobiLB/internal/cache"
	"github.com/Ronaldkim807/NairobiLB/internal/config"
	"github.com/Ronaldkim807/NairobiLB/internal/database"
	"github.com/Ronaldkim807/NairobiLB/internal/external"
	"github.com/Ronaldkim807/NairobiLB/internal/handlers"
	"github.com/Ronaldkim807/NairobiLB/internal/messaging"
	"github.com/Ronaldkim807/NairobiLB/internal/middleware"
	"github.com/Ronaldkim807/NairobiLB/internal/repository"
	"github.com/Ronaldkim807/NairobiLB/internal/search"
	"github.com/Ronaldkim807/NairobiLB/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires configuration, storage, external clients and HTTP routes.
// Postgres is required; NATS, Redis and Elasticsearch are optional and the
// server starts degraded without them.
type Server struct {
	cfg      *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.RedisClient
	search   *search.Client
	handlers *handlers.Handlers
	repos    *repository.Repositories
	router   *gin.Engine
}

type noopPublisher struct{}

func (noopPublisher) Publish(subject string, data interface{}) error { return nil }

func New(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var publisher service.EventPublisher = noopPublisher{}
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		slog.Warn("NATS unavailable, events will not be published", "error", err)
	} else {
		publisher = natsClient
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, event listings will not be cached", "error", err)
		redisClient = nil
	}

	searchClient, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		slog.Warn("Elasticsearch unavailable, search disabled", "error", err)
		searchClient = nil
	}

	mpesaClient := external.NewMpesaClient(cfg.Mpesa)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, mpesaClient, publisher, redisClient, searchClient)

	server := &Server{
		cfg:      cfg,
		db:       db,
		nats:     natsClient,
		redis:    redisClient,
		search:   searchClient,
		handlers: handlers.NewHandlers(services, db),
		repos:    repos,
	}

	server.setupRouter()
	return server, nil
}

func (s *Server) setupRouter() {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	router.GET("/health", s.handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Public routes
	api.GET("/events", s.handlers.ListEvents)
	api.GET("/events/:id", s.handlers.GetEvent)
	// The callback is authenticated by obscurity of the CheckoutRequestID,
	// matching how Daraja delivers it
	api.POST("/payments/mpesa-callback", s.handlers.MpesaCallback)

	// Authenticated routes
	auth := api.Group("")
	auth.Use(middleware.JWTAuth(s.cfg.JWTSecret, s.repos.Users))
	{
		auth.POST("/bookings", s.handlers.CreateBooking)
		auth.GET("/bookings/my-bookings", s.handlers.GetMyBookings)
		auth.GET("/bookings/:id", s.handlers.GetBooking)
		auth.PUT("/bookings/:id/cancel", s.handlers.CancelBooking)

		auth.POST("/payments/initiate", s.handlers.InitiatePayment)
		auth.GET("/payments/:id/status", s.handlers.GetPaymentStatus)

		auth.POST("/events", middleware.RequireOrganizer(), s.handlers.CreateEvent)
	}

	s.router = router
}

// Router returns the configured gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Cleanup closes all external connections
func (s *Server) Cleanup() {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Failed to close NATS connection", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}
}
