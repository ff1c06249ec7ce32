package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "phoneverifier/docs"
	"phoneverifier/internal/config"
	"phoneverifier/internal/database"
	"phoneverifier/internal/handlers"
	"phoneverifier/internal/jobs"
	"phoneverifier/internal/lock"
	"phoneverifier/internal/logging"
	"phoneverifier/internal/middleware"
	"phoneverifier/internal/models"
	"phoneverifier/internal/repositories"
	"phoneverifier/internal/routes"
	"phoneverifier/internal/services"
	"phoneverifier/internal/sms"
)

// Run starts the service and blocks until SIGINT/SIGTERM.
func Run() error {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Sentry ===
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// === Storage ===
	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	svc := buildService(cfg, deps, logger)

	// === Cleanup job ===
	if cfg.Cleanup.Interval > 0 {
		scheduler, err := jobs.NewScheduler(ctx, logger)
		if err != nil {
			return err
		}
		defer func() { _ = scheduler.Shutdown() }()
		if _, err := jobs.RegisterCleanup(ctx, scheduler, svc, cfg.Cleanup.Interval); err != nil {
			return fmt.Errorf("register cleanup job: %w", err)
		}
		logger.Info("cleanup job scheduled", zap.Duration("interval", cfg.Cleanup.Interval))
	}

	// === HTTP ===
	router := NewRouter(cfg, svc, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

type deps struct {
	store   repositories.UserVerificationStore
	log     repositories.RequestLog
	locker  lock.Locker
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	var pool database.DBPool
	switch cfg.Database.Driver {
	case "memory":
		mem := repositories.NewMemoryStore(nil)
		for _, id := range cfg.Database.SeedUsers {
			mem.Put(models.UserVerification{ID: id})
		}
		d.store = mem
		logger.Warn("using in-memory user store", zap.Int("seed_users", len(cfg.Database.SeedUsers)))
	default:
		p, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		pool = p
		d.closers = append(d.closers, p.Close)
		d.store = repositories.NewUserVerificationRepository(p, cfg.Database.UsersTable)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		c, err := database.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		rdb = c
		d.closers = append(d.closers, func() { _ = c.Close() })
	}

	switch cfg.RateLimit.Backend {
	case "redis":
		d.log = repositories.NewRedisRequestLog(rdb, requestLogRetention(cfg.RateLimit))
	case "postgres":
		d.log = repositories.NewRequestLogRepository(pool)
	default:
		d.log = repositories.NewMemoryRequestLog()
	}

	lockOpts := lock.Options{TTL: cfg.Lock.TTL, WaitTimeout: cfg.Lock.WaitTimeout}
	if rdb != nil {
		d.locker = lock.NewRedisLocker(rdb, "", lockOpts)
	} else {
		d.locker = lock.NewLocalLocker(lockOpts)
	}
	return d, nil
}

// requestLogRetention keeps log entries for as long as any limit looks back.
func requestLogRetention(cfg config.RateLimitConfig) time.Duration {
	return max(cfg.Window, cfg.ResendCooldown)
}

func buildService(cfg *config.Config, d *deps, logger *zap.Logger) *services.VerificationService {
	httpClient := &http.Client{Timeout: cfg.SMS.Timeout}
	dispatcher := sms.NewDispatcher(cfg.SMS.Timeout).
		Register(services.ProviderBeOn, sms.NewBeOnSender(cfg.SMS.BeOn, httpClient, logger.Named("beon"))).
		Register(services.ProviderVonage, sms.NewVonageSender(cfg.SMS.Vonage, httpClient, logger.Named("vonage")))

	limiter := services.NewRateLimitService(d.log, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.RateLimit.ResendCooldown)
	return services.NewVerificationService(
		d.store,
		limiter,
		services.NewOTPService(cfg.OTP.Secret),
		services.NewPhoneService(cfg.SMS.Routes, cfg.SMS.DefaultProvider),
		dispatcher,
		d.locker,
		services.VerificationOptions{
			TTL:            cfg.OTP.TTL,
			ResendCooldown: cfg.RateLimit.ResendCooldown,
			MaxAttempts:    cfg.OTP.MaxAttempts,
		},
		logger.Named("verification"),
	)
}

// NewRouter wires middleware, swagger and the verification routes.
func NewRouter(cfg *config.Config, svc handlers.VerificationService, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.RequestLogger(logger.Named("http")))
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{
			Repanic: true,
			Timeout: 2 * time.Second,
		}))
	}
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, handlers.NewVerificationHandler(svc, logger.Named("handler")), routes.Options{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		CookieName:     cfg.Auth.CookieName,
		MaintenanceKey: cfg.Cleanup.MaintenanceKey,
	})
	return router
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := set[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Maintenance-Key, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
