package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/campuswallet/internal/adapter/http"
	"github.com/iho/campuswallet/internal/adapter/http/handler"
	"github.com/iho/campuswallet/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/campuswallet/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/campuswallet/internal/adapter/repository/redis"
	"github.com/iho/campuswallet/internal/infrastructure/auth"
	"github.com/iho/campuswallet/internal/infrastructure/config"
	"github.com/iho/campuswallet/internal/infrastructure/logger"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
	"github.com/iho/campuswallet/internal/infrastructure/notify"
	"github.com/iho/campuswallet/internal/infrastructure/postgres"
	"github.com/iho/campuswallet/internal/infrastructure/redis"
	"github.com/iho/campuswallet/internal/usecase"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	zerolog.DefaultContextLogger = &log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	loc, err := cfg.StatementLocation()
	if err != nil {
		return err
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Connect to Redis
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL empty: running without cache and idempotency store")
	}

	m := metrics.New()

	// Notifications
	hub := notify.NewHub(cfg.NotifyBuffer, log.Logger, m)
	defer hub.Close()

	var notifier usecase.Notifier = hub
	if cfg.NotifyRedisChannel != "" {
		if redisClient == nil {
			return errors.New("NOTIFY_REDIS_CHANNEL requires REDIS_URL")
		}
		bridge := notify.NewRedisBridge(redisClient, cfg.NotifyRedisChannel, hub, log.Logger, m)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("notification bridge stopped")
			}
		}()
		defer bridge.Wait()
		notifier = bridge
	}

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool, cfg.TxLockTimeout)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository()
	retrier := postgresRepo.NewRetrier(log.Logger, int(cfg.TxRetryMax))
	idGen := postgresRepo.NewULIDGenerator()

	var (
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
		redisPinger      handler.Pinger
	)
	if redisClient != nil {
		cache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		redisPinger = handler.PingerFunc(func(ctx context.Context) error { return redis.Ping(ctx, redisClient) })
	}

	passwordHasher := auth.NewBcryptHasher(cfg.BcryptCost)
	pinHasher := auth.NewArgon2Hasher(cfg.PinArgonTime, cfg.PinArgonMemoryKB)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	// Initialize use cases
	gate := usecase.NewPolicyGate(accountRepo)
	authUC := usecase.NewAuthUseCase(accountRepo, passwordHasher)
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, auditRepo, passwordHasher, pinHasher, cache, m)
	transferUC := usecase.NewTransferUseCase(txManager, accountRepo, transactionRepo, idGen, pinHasher, retrier, notifier, m).
		WithMaxRecipients(cfg.MaxGroupRecipients)
	topUpUC := usecase.NewTopUpUseCase(txManager, accountRepo, transactionRepo, auditRepo, idGen, pinHasher, retrier, notifier, m).
		WithAuthority(cfg.TopUpAuthorityName, cfg.TopUpAuthorityID)
	historyUC := usecase.NewHistoryUseCase(transactionRepo, cfg.HistoryMaxPageSize, loc).
		WithMaxExportRows(cfg.HistoryExportRows)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo)

	rateLimiter := middleware.NewRateLimiter(rateLimitPolicies(cfg), m)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go rateLimiter.RunCleanup(time.Minute, cfg.RateLimitIdleTTL, stopCleanup)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:         handler.NewAuthHandler(authUC, jwtManager, m),
		AccountHandler:      handler.NewAccountHandler(accountUC, gate),
		TransferHandler:     handler.NewTransferHandler(transferUC, gate),
		TopUpHandler:        handler.NewTopUpHandler(topUpUC, gate),
		HistoryHandler:      handler.NewHistoryHandler(historyUC, accountUC, gate, loc),
		NotificationHandler: handler.NewNotificationHandler(hub, cfg.NotifyHeartbeat),
		LedgerHandler:       handler.NewLedgerHandler(ledgerUC, gate, m),
		HealthHandler:       handler.NewHealthHandler(pool, redisPinger),
		Verifier:            jwtManager,
		IdempotencyStore:    idempotencyStore,
		IdempotencyTTL:      cfg.IdempotencyTTL,
		RateLimiter:         rateLimiter,
		Logger:              &log.Logger,
	})

	// Create server. The notification stream lifts WriteTimeout per connection.
	server := &http.Server{
		Addr:              listenAddr(cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Open streams would hold Shutdown until the deadline.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

func listenAddr(port string) string {
	return fmt.Sprintf(":%s", port)
}

func rateLimitPolicies(cfg *config.Config) map[string]middleware.Policy {
	return map[string]middleware.Policy{
		middleware.ClassMutate: {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		middleware.ClassRead:   {Rate: cfg.RateLimitReadRPS, Burst: cfg.RateLimitReadBurst},
		middleware.ClassAuth:   {Rate: cfg.RateLimitAuthRPS, Burst: cfg.RateLimitAuthBurst},
	}
}
