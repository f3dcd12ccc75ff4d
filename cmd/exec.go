package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ticket-engine/config"
	"ticket-engine/internal/handlers"
	"ticket-engine/internal/services/notify"
	"ticket-engine/internal/services/reconcile"
	"ticket-engine/internal/services/ticket"
	"ticket-engine/internal/services/verify"
	"ticket-engine/internal/services/verify/boa"
	"ticket-engine/internal/services/verify/cbe"
	"ticket-engine/internal/services/verify/telebirr"
	"ticket-engine/internal/store"
	_ "ticket-engine/migrations"
	"ticket-engine/monitoring"
	"ticket-engine/security"
	"ticket-engine/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()
	if cfg.TicketSecret == "" {
		slog.Warn("TICKET_SECRET is empty, issued references will not survive a restart")
	}

	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	notifier := notify.NewPubNubNotifier(&notify.Config{
		PublishKey:   cfg.PubNubPublishKey,
		SubscribeKey: cfg.PubNubSubscribeKey,
		SecretKey:    cfg.PubNubSecretKey,
		UUID:         cfg.PubNubUUID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Receipt providers
	dispatcher := verify.NewDispatcher(
		telebirr.New(&telebirr.Config{
			BaseURL:    cfg.TelebirrBaseURL,
			Timeout:    cfg.TelebirrTimeout,
			Retries:    cfg.VerifyRetries,
			RetryDelay: cfg.VerifyRetryDelay,
		}),
		cbe.New(&cbe.Config{
			BaseURL:    cfg.CBEBaseURL,
			Timeout:    cfg.CBETimeout,
			Retries:    cfg.VerifyRetries,
			RetryDelay: cfg.VerifyRetryDelay,
		}),
		boa.New(&boa.Config{
			BaseURL:    cfg.BOABaseURL,
			Timeout:    cfg.BOATimeout,
			Retries:    cfg.VerifyRetries,
			RetryDelay: cfg.VerifyRetryDelay,
		}),
	)

	// Stores and services
	invoices := store.NewPBInvoices(app)
	registrations := store.NewPBRegistrations(app)
	tickets := ticket.NewService(&ticket.Config{
		Secret:        cfg.TicketSecret,
		PublicBaseURL: cfg.PublicBaseURL,
	}, invoices, registrations)
	engine := reconcile.NewEngine(invoices, registrations, tickets, notifier)

	// Handlers
	limiter := security.NewRateLimiter(redisClient)
	paymentHandler := handlers.NewPaymentHandler(dispatcher, engine, limiter)
	ticketHandler := handlers.NewTicketHandler(tickets, cfg.GateKeyHash)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	if cfg.EnableMetrics {
		monitoring.StartMetricsServer(ctx, ":"+cfg.MetricsPort)
	}

	// Drains the metrics listener on SIGTERM; app.Start handles its own.
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Payment endpoints
		e.Router.POST("/api/v1/payments/verify", paymentHandler.VerifyPayment).
			BindFunc(limiter.VerifyLimit(cfg.VerifyRateLimit))

		// Ticket endpoints
		e.Router.GET("/api/v1/tickets/{reference}", ticketHandler.GetTicket)
		e.Router.POST("/api/v1/tickets/{reference}/use", ticketHandler.UseTicket)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
