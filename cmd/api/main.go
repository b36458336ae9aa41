package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/seatwise/reservations/internal/capacity"
	"github.com/seatwise/reservations/internal/http/handlers"
	httpmw "github.com/seatwise/reservations/internal/http/middleware"
	"github.com/seatwise/reservations/internal/notify"
	"github.com/seatwise/reservations/internal/repository"
	"github.com/seatwise/reservations/internal/service"
	"github.com/seatwise/reservations/pkg/config"
	"github.com/seatwise/reservations/pkg/database"
	"github.com/seatwise/reservations/pkg/events"
	"github.com/seatwise/reservations/pkg/logger"
	mw "github.com/seatwise/reservations/pkg/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	redisClient := newRedisClient(cfg.Redis)
	defer redisClient.Close()

	// Repositories
	reservationRepo := repository.NewReservationRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)

	// Services
	detector := capacity.NewDetector(reservationRepo, cfg.Policy)
	reservationService := service.NewReservationService(reservationRepo, idempotencyRepo, detector, eventBus, cfg.Policy)

	// Notifications ride the event bus, not the request path.
	mailer := notify.NewMailer(cfg.Email)
	consumer := notify.NewConsumer(eventBus, mailer)
	if err := consumer.Start(); err != nil {
		logger.Error("Failed to start notify consumer", "error", err)
		os.Exit(1)
	}

	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Server.Port
	}

	guestHandler := handlers.NewGuestHandler(reservationService, mailer, cfg.Auth, baseURL)
	staffHandler := handlers.NewStaffHandler(reservationService, cfg.Auth.JWTSecret)

	createLimiter := httpmw.NewRateLimiter(redisClient, httpmw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("reservations"))
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.Health)

	r.Route("/guest/reservations", func(r chi.Router) {
		r.Use(createLimiter.Middleware())
		r.Mount("/", guestHandler.Routes())
	})
	r.Mount("/staff/reservations", staffHandler.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Reservations service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		logger.Info("Shutting down reservations service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Reservations service error", "error", err)
		os.Exit(1)
	}
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Error("Invalid REDIS_URL, using defaults", "error", err)
		opts = &redis.Options{Addr: "localhost:6379"}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts)
}
