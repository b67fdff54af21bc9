package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/config"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/cache"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/http/handlers"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/http/middleware"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/integration/amocrm"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/mail"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/queue"
	sheetsinfra "github.com/leadstream/amocrm-sheets-sync/internal/infra/sheets"
	"github.com/leadstream/amocrm-sheets-sync/internal/logger"
	"github.com/leadstream/amocrm-sheets-sync/internal/usecase"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zapLogger := logger.New(cfg.Env)
	defer zapLogger.Sync()

	ctx := context.Background()

	// 1. Tabular store
	sheetsClient, err := sheetsinfra.NewClient(ctx, cfg.GoogleClientEmail, cfg.GooglePrivateKey)
	if err != nil {
		zapLogger.Fatal("failed to create Google Sheets client", zap.Error(err))
	}
	leadRepo := sheetsinfra.NewLeadRepository(sheetsClient, cfg.GoogleSpreadsheetID, cfg.GoogleSheetRange, zapLogger)

	// Header bootstrap is best-effort: every sheet operation re-checks it,
	// so a sheet that is unreachable at boot only delays setup.
	go bootstrapHeaders(ctx, leadRepo, zapLogger)

	// 2. amoCRM clients, one per account subdomain
	registry := amocrm.NewRegistry(cfg.AmoCRMSubdomain, cfg.AmoCRMAccessToken, cfg.HTTPRequestTimeout, zapLogger)
	resolver := usecase.CRMResolverFunc(func(subdomain string) (usecase.CRMGateway, error) {
		return registry.Resolve(subdomain)
	})

	// 3. Optional pipeline catalog cache
	var pipelineCache usecase.PipelineCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pipelineCache = cache.NewPipelineCache(redisClient, cfg.PipelineCacheTTL, zapLogger)
	}

	// 4. Optional won-deal notifications: producer on the webhook side,
	// worker draining the queue into SMTP.
	var producer usecase.NotificationProducer
	rabbitMQ := connectRabbitMQ(cfg, zapLogger)
	if rabbitMQ != nil {
		defer rabbitMQ.Conn.Close()
		defer rabbitMQ.Ch.Close()
		producer = queue.NewProducer(rabbitMQ.Ch)

		if cfg.SMTPHost != "" && cfg.NotifyEmail != "" {
			sender := mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.NotifyEmail)
			worker := queue.NewWorker(rabbitMQ.Ch, sender, zapLogger)
			go worker.Start(queue.QueueName)
		}
	}

	// 5. UseCases
	processUC := usecase.NewProcessWebhookUseCase(
		leadRepo, resolver, pipelineCache, producer, cfg.SuccessfulStatusSet(), zapLogger,
	)
	syncUC := usecase.NewSyncBudgetUseCase(leadRepo, resolver, zapLogger)

	// 6. Handlers
	webhookHandler := handlers.NewWebhookHandler(processUC, zapLogger)
	syncHandler := handlers.NewSyncHandler(syncUC, zapLogger)
	healthHandler := handlers.NewHealthHandler(cfg.GoogleSpreadsheetID, cfg.AmoCRMSubdomain, redisClient, connValue(rabbitMQ))

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
	}))

	r.Get("/api", handleIndex)
	r.Post("/api/webhooks/amocrm", webhookHandler.Handle)
	r.Post("/api/sync/budget/{leadId}", syncHandler.HandleBudgetSync)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(handleNotFound)

	addr := ":" + cfg.Port
	zapLogger.Info("server listening",
		zap.String("addr", addr),
		zap.String("env", cfg.Env))
	if err := http.ListenAndServe(addr, r); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func bootstrapHeaders(ctx context.Context, repo *sheetsinfra.LeadRepository, zapLogger *zap.Logger) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute
	policy.MaxInterval = 15 * time.Second

	err := backoff.RetryNotify(
		func() error {
			err := repo.EnsureHeaders(ctx)
			if errors.Is(err, sheetsinfra.ErrNotConfigured) {
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
		func(err error, next time.Duration) {
			zapLogger.Warn("sheet header bootstrap failed, retrying",
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		zapLogger.Warn("sheet header bootstrap gave up, first webhook will retry", zap.Error(err))
		return
	}
	zapLogger.Info("Google Sheets initialized")
}

func connectRabbitMQ(cfg *config.Config, zapLogger *zap.Logger) *queue.RabbitMQ {
	if cfg.RabbitMQURL == "" {
		return nil
	}
	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Warn("RabbitMQ unavailable, won-deal notifications disabled", zap.Error(err))
		return nil
	}
	return rmq
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.Env == "production" && len(cfg.AllowedOrigins) > 0 {
		return cfg.AllowedOrigins
	}
	return []string{"*"}
}
