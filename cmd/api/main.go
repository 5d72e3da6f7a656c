package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/trailhead/tour-bookings/internal/http/handlers"
	httpmw "github.com/trailhead/tour-bookings/internal/http/middleware"
	"github.com/trailhead/tour-bookings/internal/payment/chapa"
	"github.com/trailhead/tour-bookings/internal/payment/stripepay"
	"github.com/trailhead/tour-bookings/internal/platform/mailer"
	"github.com/trailhead/tour-bookings/internal/repo/postgres"
	"github.com/trailhead/tour-bookings/internal/service"
	"github.com/trailhead/tour-bookings/pkg/config"
	"github.com/trailhead/tour-bookings/pkg/database"
	"github.com/trailhead/tour-bookings/pkg/events"
	"github.com/trailhead/tour-bookings/pkg/logger"
	mw "github.com/trailhead/tour-bookings/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Connect to Redis (rate limiting)
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Initialize repositories
	tourRepo := postgres.NewTourRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)

	// Initialize mailer
	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
	}

	// Initialize payment backends
	stripeClient := stripepay.New(cfg.Stripe.SecretKey, cfg.Stripe.Currency)
	chapaClient := chapa.New(cfg.Chapa.SecretKey, cfg.Chapa.BaseURL, cfg.Chapa.Currency, cfg.Chapa.Timeout)

	// Initialize services
	checkoutSvc := service.NewCheckoutService(tourRepo, cfg.App.BaseURL, stripeClient, chapaClient)
	reconciler := service.NewReconciler(userRepo, bookingRepo, stripeClient, eventBus, mail)

	// Initialize handlers
	h := handlers.New(cfg, checkoutSvc, reconciler, tourRepo, userRepo, bookingRepo, eventBus)

	limiter := httpmw.NewRateLimiter(rdb, httpmw.RateLimitConfig{
		Requests: 100,
		Window:   time.Hour,
		KeyFunc:  httpmw.ClientIPKeyFunc,
	})
	requireAuth := httpmw.RequireAuth(userRepo, cfg.Auth.JWTSecret)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.Health)

	// Provider webhook. Mounted outside the API tree; the handler needs
	// the raw body bytes for signature verification.
	r.Post("/webhook-checkout", h.StripeWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Use(limiter.Middleware())
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
		})

		r.Route("/tours", func(r chi.Router) {
			r.Get("/", h.ListTours)
			r.Get("/{id}", h.GetTour)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(requireAuth)
			r.With(limiter.Middleware()).Get("/checkout-session/{tourId}", h.GetCheckoutSession)
			r.Get("/", h.ListMyBookings)
			r.With(httpmw.RequireAdmin).Post("/", h.CreateBooking)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("API shutdown error", "error", err)
		}
	}()

	logger.Info("Starting tour bookings API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}
