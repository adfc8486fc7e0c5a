package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careconnect/cmd/mainconfig"
	"github.com/wolfman30/careconnect/internal/accounts"
	"github.com/wolfman30/careconnect/internal/admin"
	"github.com/wolfman30/careconnect/internal/api/router"
	"github.com/wolfman30/careconnect/internal/app/bootstrap"
	"github.com/wolfman30/careconnect/internal/archive"
	"github.com/wolfman30/careconnect/internal/booking"
	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/internal/compliance"
	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/conversation"
	httpmiddleware "github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/internal/verification"
	"github.com/wolfman30/careconnect/internal/webchat"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// infra holds the shared connections. Any of them may be nil in local runs.
type infra struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	aws   *aws.Config
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting careconnect API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	deps, err := connectInfra(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect infrastructure", "error", err)
		os.Exit(1)
	}
	defer deps.close()

	metricsHandler, chatMetrics := setupMetrics()
	routerCfg, err := buildRouterConfig(ctx, cfg, deps, chatMetrics, logger)
	if err != nil {
		logger.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	routerCfg.MetricsHandler = metricsHandler
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func connectInfra(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*infra, error) {
	deps := &infra{
		redis: bootstrap.BuildRedisClient(ctx, cfg, logger, true),
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	deps.pool = pool

	sqlDB, err := bootstrap.BuildSQLDB(ctx, cfg.DatabaseURL)
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.sqlDB = sqlDB

	if needsAWS(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("failed to load AWS config; bedrock and ses are disabled", "error", err)
		} else {
			deps.aws = &awsCfg
		}
	}
	return deps, nil
}

func (d *infra) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
	if d.sqlDB != nil {
		_ = d.sqlDB.Close()
	}
}

func needsAWS(cfg *appconfig.Config) bool {
	return cfg.BedrockModelID != "" || cfg.EmailProvider == "ses" || cfg.TranscriptArchiveBucket != ""
}

// setupMetrics registers the chat collectors on a dedicated registry and
// returns the handler serving it.
func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics
}

// buildRouterConfig wires every service onto the available infrastructure.
// Features backed by Postgres are left unmounted when no database is set.
func buildRouterConfig(ctx context.Context, cfg *appconfig.Config, deps *infra, chatMetrics *metrics.ChatMetrics, logger *logging.Logger) (*router.Config, error) {
	llm, err := bootstrap.BuildLLMClient(ctx, cfg, deps.aws, deps.redis, logger)
	if err != nil {
		return nil, err
	}
	source, err := bootstrap.BuildClinicSource(ctx, cfg, deps.pool, logger)
	if err != nil {
		return nil, err
	}
	recommender := bootstrap.BuildRecommender(cfg, source, deps.redis, chatMetrics, logger)

	var audit *compliance.AuditService
	if deps.sqlDB != nil {
		audit = compliance.NewAuditService(deps.sqlDB)
	}
	archiver := buildArchiver(cfg, deps, logger)
	onComplete := completionHook(audit, archiver, logger)

	store := bootstrap.BuildStateStore(cfg, deps.redis, logger)
	engine := bootstrap.BuildEngine(cfg, store, llm, recommender, chatMetrics, onComplete, logger)

	var chatLimiter httpmiddleware.WindowLimiter
	if cfg.ChatRateLimitPerMin > 0 {
		chatLimiter = httpmiddleware.NewMemoryWindowLimiter(cfg.ChatRateLimitPerMin)
		if deps.redis != nil {
			chatLimiter = httpmiddleware.NewFallbackWindowLimiter(
				httpmiddleware.NewRedisWindowLimiter(deps.redis, cfg.ChatRateLimitPerMin),
				chatLimiter,
				logger,
			)
		}
	}

	tokens := accounts.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTokenTTL)
	webChat := webchat.NewHandler(engine, chatLimiter, logger)
	routerCfg := &router.Config{
		Logger:               logger,
		Tokens:               tokens,
		ConversationHandler:  conversation.NewHandler(engine, logger, conversation.WithPublisher(webChat)),
		ClinicHandler:        clinic.NewHandler(recommender, logger),
		WebChatHandler:       webChat,
		HealthChecks:         healthChecks(deps),
		CORS:                 corsOptions(cfg),
		ChatLimiter:          chatLimiter,
		IPRateLimitPerSecond: cfg.IPRateLimitPerSecond,
		IPRateLimitBurst:     cfg.IPRateLimitBurst,
	}

	if deps.pool == nil || deps.sqlDB == nil {
		logger.Warn("DATABASE_URL not set; accounts, booking, verification and admin routes are disabled")
		return routerCfg, nil
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when DATABASE_URL is set")
	}

	email, provider := bootstrap.BuildEmailSender(cfg, deps.aws, logger)
	logger.Info("email notifications configured", "provider", provider)
	notifier := notify.NewService(email, cfg.AdminNotifyEmail, logger)

	accountService := accounts.NewService(accounts.NewPostgresRepository(deps.pool), tokens, audit, logger)
	if err := accountService.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	bookingService := booking.NewService(booking.NewSQLRepository(deps.sqlDB), engine, notifier, audit, cfg.DefaultDailyCapacity, logger)
	verificationService := verification.NewService(verification.NewPostgresRepository(deps.pool), audit, notifier, logger)

	routerCfg.AccountsHandler = accounts.NewHandler(accountService, logger)
	routerCfg.BookingHandler = booking.NewHandler(bookingService, logger)
	routerCfg.VerificationHandler = verification.NewHandler(verificationService, logger)
	routerCfg.AdminStatsHandler = admin.NewStatsHandler(admin.NewStatsRepository(deps.pool), logger)
	return routerCfg, nil
}

func buildArchiver(cfg *appconfig.Config, deps *infra, logger *logging.Logger) *archive.TranscriptArchiver {
	if cfg.TranscriptArchiveBucket == "" || deps.aws == nil {
		return nil
	}
	store := archive.NewStore(s3.NewFromConfig(*deps.aws), cfg.TranscriptArchiveBucket, logger)
	logger.Info("transcript archive enabled", "bucket", cfg.TranscriptArchiveBucket)
	return archive.NewTranscriptArchiver(store, logger)
}

// completionHook records the audit event and archives the transcript of a
// finished triage. Either sink may be absent.
func completionHook(audit *compliance.AuditService, archiver *archive.TranscriptArchiver, logger *logging.Logger) conversation.CompletionHook {
	if audit == nil && archiver == nil {
		return nil
	}
	return func(ctx context.Context, state *conversation.State) {
		if audit != nil {
			treatment, location := "", ""
			if state.Slots.TreatmentType != nil {
				treatment = string(*state.Slots.TreatmentType)
			}
			if state.Slots.Location != nil {
				location = *state.Slots.Location
			}
			if err := audit.LogTriageCompleted(ctx, state.ID, treatment, location); err != nil {
				logger.Warn("failed to audit triage completion", "session_id", state.ID, "error", err)
			}
		}
		archiver.ArchiveSession(ctx, state)
	}
}

func corsOptions(cfg *appconfig.Config) httpmiddleware.CORSOptions {
	return httpmiddleware.CORSOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedHeaders: cfg.CORSAllowedHeaders,
		AllowedMethods: cfg.CORSAllowedMethods,
	}
}

func healthChecks(deps *infra) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if deps.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.redis.Ping(ctx).Err() }
	}
	if deps.pool != nil {
		checks["postgres"] = deps.pool.Ping
	}
	return checks
}
