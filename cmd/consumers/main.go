package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ronaldkim807/NairobiLB/cmd/consumers/jobs"
	"github.com/Ronaldkim807/NairobiLB/internal/config"
	"github.com/Ronaldkim807/NairobiLB/internal/consumers"
	"github.com/Ronaldkim807/NairobiLB/internal/database"
	"github.com/Ronaldkim807/NairobiLB/internal/logger"
	"github.com/Ronaldkim807/NairobiLB/internal/messaging"
	"github.com/Ronaldkim807/NairobiLB/internal/repository"
	"github.com/Ronaldkim807/NairobiLB/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	// Separate client id so the API and consumer connections do not clash
	cfg.NATS.ClientID = "nairobilb-consumers"

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}
	defer natsClient.Close()

	consumerService := consumers.NewService(natsClient)
	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	repos := repository.NewRepositories(db)
	bookingService := service.NewBookingService(
		repos.Bookings, repos.TicketTypes, repos.Events, repos.Payments, natsClient)

	ctx, cancel := context.WithCancel(context.Background())
	expirationJob := jobs.NewBookingExpiration(bookingService, cfg.BookingExpiry)
	go expirationJob.Run(ctx)

	log.Info("Consumers service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service")
	cancel()
	consumerService.Stop()
	log.Info("Consumers service stopped")
}
