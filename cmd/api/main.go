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

	"github.com/qaranexchange/exchange-api/internal/http/handlers"
	"github.com/qaranexchange/exchange-api/internal/platform/mailer"
	"github.com/qaranexchange/exchange-api/internal/platform/payments"
	"github.com/qaranexchange/exchange-api/internal/platform/session"
	"github.com/qaranexchange/exchange-api/internal/platform/sms"
	"github.com/qaranexchange/exchange-api/internal/repo/postgres"
	"github.com/qaranexchange/exchange-api/internal/service"
	"github.com/qaranexchange/exchange-api/pkg/config"
	"github.com/qaranexchange/exchange-api/pkg/database"
	"github.com/qaranexchange/exchange-api/pkg/events"
	"github.com/qaranexchange/exchange-api/pkg/logger"
	mw "github.com/qaranexchange/exchange-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	var eventBus events.Publisher = events.NewNop()
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	mailService := buildMailer(cfg)
	smsService := buildSMS(cfg)

	// Repositories
	accountRepo := postgres.NewAccountRepo(pool)
	otpRepo := postgres.NewOTPRepo(pool)
	paymentRepo := postgres.NewPaymentRepo(pool)
	submissionRepo := postgres.NewSubmissionRepo(pool)
	rateLimitRepo := postgres.NewRateLimitRepo(pool)

	// Services
	otpService := service.NewOTPService(otpRepo, mailService, smsService, cfg.Auth.OTPTTL)
	authService := service.NewAuthService(accountRepo, otpService, eventBus)
	paymentService := service.NewPaymentService(paymentRepo,
		payments.NewStripeCharger(cfg.Stripe.SecretKey), cfg.Stripe.Currency, eventBus)
	submissionService := service.NewSubmissionService(submissionRepo,
		mailService, cfg.Admin.AlertEmail, eventBus)

	sessions := session.NewManager(rdb, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)

	h := handlers.New(authService, paymentService, submissionService, sessions, rateLimitRepo, cfg)

	// Router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("exchange-api"))
	r.Use(mw.Logging)
	r.Use(mw.CORS(cfg.Server.CORSOrigins))
	r.Use(mw.Health)
	r.Use(h.WithSession)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(h.OTPRateLimit).Post("/register", h.Register)
			r.With(h.OTPRateLimit).Post("/login", h.Login)
			r.With(h.OTPRateLimit).Post("/resend-otp", h.ResendOTP)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Get("/check-session", h.CheckSession)
			r.Post("/logout", h.Logout)

			r.With(h.RequireAdmin).Get("/users", h.ListAccounts)
			r.With(h.RequireAdmin).Get("/users/{id}", h.GetAccount)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.CreatePayment)
			r.With(h.RequireSession).Get("/history", h.PaymentHistory)
			r.With(h.RequireAdmin).Get("/stats", h.PaymentStats)
			r.With(h.RequireAdmin).Get("/", h.ListPayments)
			r.With(h.RequireAdmin).Get("/{id}", h.GetPayment)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.CreateSubmission)
			r.With(h.RequireAdmin).Get("/", h.ListSubmissions)
			r.With(h.RequireAdmin).Get("/{id}", h.GetSubmission)
			r.With(h.RequireAdmin).Patch("/{id}/status", h.UpdateSubmissionStatus)
		})
	})

	// Hourly purge of expired OTP rows and stale rate-limit counters.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := otpRepo.DeleteExpired(context.Background(), 24*time.Hour); err != nil {
				logger.Error("OTP cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("Purged expired OTP codes", "count", n)
			}
			if n, err := rateLimitRepo.CleanupExpired(context.Background()); err != nil {
				logger.Error("Rate limit cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("Purged stale rate limit counters", "count", n)
			}
		}
	}()

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

		logger.Info("Shutting down exchange API...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting exchange API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		logger.Info("Email: dev mode, codes are logged")
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		logger.Info("Email: MailerSend", "from", cfg.Email.FromEmail)
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	default:
		logger.Info("Email: SMTP", "host", cfg.Email.SMTPHost, "port", cfg.Email.SMTPPort)
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}

func buildSMS(cfg *config.Config) sms.Sender {
	if cfg.SMS.DevMode {
		logger.Info("SMS: dev mode, codes are logged")
		return sms.NewDevSender()
	}

	sender, err := sms.NewTwilioSender(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFrom)
	if err != nil {
		logger.Error("Failed to configure Twilio, falling back to dev sender", "error", err)
		return sms.NewDevSender()
	}
	logger.Info("SMS: Twilio", "from", cfg.SMS.TwilioFrom)
	return sender
}
