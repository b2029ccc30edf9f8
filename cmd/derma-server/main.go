package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/skinclinic/skinclinic/internal/config"
	"github.com/skinclinic/skinclinic/internal/domain/billing"
	"github.com/skinclinic/skinclinic/internal/domain/catalog"
	"github.com/skinclinic/skinclinic/internal/domain/consultation"
	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/domain/notification"
	"github.com/skinclinic/skinclinic/internal/domain/photo"
	"github.com/skinclinic/skinclinic/internal/domain/scheduling"
	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/blobstore"
	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/internal/platform/events"
	"github.com/skinclinic/skinclinic/internal/platform/kv"
	"github.com/skinclinic/skinclinic/internal/platform/middleware"
	"github.com/skinclinic/skinclinic/internal/platform/mpesa"
	"github.com/skinclinic/skinclinic/internal/platform/websocket"
	"github.com/skinclinic/skinclinic/migrations"
)

const (
	version        = "0.1.0"
	tokenIssuer    = "skinclinic"
	requestTimeout = 30 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "derma-server",
		Short: "Dermatology clinic API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetInt("to")

			ctx := context.Background()
			pool, err := openPool(ctx, newLogger(os.Getenv("ENV")))
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS)
			var count int
			if target > 0 {
				count, err = migrator.UpTo(ctx, target)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx, newLogger(os.Getenv("ENV")))
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openPool(ctx context.Context, logger zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, poolConfig(cfg), logger)
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:       cfg.DatabaseURL,
		MaxConns:  cfg.DBMaxConns,
		MinConns:  cfg.DBMinConns,
		SlowQuery: cfg.DBSlowQuery,
	}
}

func mpesaConfig(cfg *config.Config, loc *time.Location) mpesa.Config {
	return mpesa.Config{
		BaseURL:          cfg.MpesaBaseURL,
		ConsumerKey:      cfg.MpesaConsumerKey,
		ConsumerSecret:   cfg.MpesaConsumerSecret,
		ShortCode:        cfg.MpesaShortCode,
		Passkey:          cfg.MpesaPasskey,
		CallbackURL:      cfg.MpesaCallbackURL,
		AccountReference: cfg.MpesaAccountReference,
		Location:         loc,
	}
}

// infra holds the optional backing services. Each falls back to an
// in-process implementation when its URL is not configured.
type infra struct {
	kv     kv.Store
	blobs  blobstore.BlobStore
	events events.Publisher
	checks []db.Check
	close  []func() error
}

func connectInfra(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.RedisURL != "" {
		client, err := kv.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		in.kv = kv.NewRedisStore(client)
		in.checks = append(in.checks, db.Check{Name: "redis", Probe: in.kv.Ping})
		in.close = append(in.close, client.Close)
		logger.Info().Msg("connected to redis")
	} else {
		in.kv = kv.NewMemoryStore()
		logger.Warn().Msg("REDIS_URL not set; using in-memory key-value store")
	}

	if cfg.MinioEndpoint != "" {
		store, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		in.blobs = store
		in.checks = append(in.checks, db.Check{Name: "minio", Probe: store.Ping})
		logger.Info().Str("bucket", cfg.MinioBucket).Msg("connected to object storage")
	} else {
		in.blobs = blobstore.NewMemoryStore()
		logger.Warn().Msg("MINIO_ENDPOINT not set; photos are kept in memory")
	}

	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, events.DefaultExchange)
		if err != nil {
			return nil, err
		}
		in.events = pub
		in.checks = append(in.checks, db.Check{Name: "amqp", Probe: pub.Ping})
		logger.Info().Str("exchange", events.DefaultExchange).Msg("connected to message broker")
	} else {
		in.events = events.NopPublisher{}
	}
	in.close = append(in.close, in.events.Close)

	return in, nil
}

func (in *infra) Close() {
	for _, fn := range in.close {
		_ = fn()
	}
}

// newEcho installs the global middleware chain. Authentication runs after
// routing so the skipper can match registered public route patterns.
func newEcho(cfg *config.Config, logger zerolog.Logger, tokens *auth.TokenIssuer, revocations *auth.RevocationList) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", "12M", "/api/v1/photos"))
	e.Use(middleware.RequestTimeout(requestTimeout, "/ws/"))
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		Issuer:      tokens,
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	return e
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	loc, _ := cfg.Location()

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	in, err := connectInfra(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect backing services")
	}
	defer in.Close()

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL, tokenIssuer)
	revocations := auth.NewRevocationList(in.kv)
	tx := db.NewTxRunner(pool)

	e := newEcho(cfg, logger, tokens, revocations)
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	// Identity
	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewPatientRepoPG(pool),
		identity.NewSpecialistRepoPG(pool),
		tx, tokens, revocations, logger,
	)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	// Service catalog
	catalogSvc := catalog.NewCatalog(catalog.NewServiceRepoPG(pool))
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)

	// Notifications, pushed live over the websocket hub
	hub := websocket.NewHub(logger)
	notificationSvc := notification.NewService(notification.NewRepoPG(pool), in.kv, hub, nil, logger)
	notification.NewHandler(notificationSvc).RegisterRoutes(apiV1)
	websocket.NewHandler(hub, cfg.CORSOrigins, logger).RegisterRoutes(e.Group("/ws"))

	// Schedules, time off and general appointments
	scheduleRepo := scheduling.NewScheduleRepoPG(pool)
	timeOffRepo := scheduling.NewTimeOffRepoPG(pool)
	schedulingSvc := scheduling.NewService(scheduleRepo, timeOffRepo, scheduling.NewAppointmentRepoPG(pool),
		identitySvc, tx, in.events, loc, logger)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)

	// Consultations
	consultationRepo := consultation.NewConsultationRepoPG(pool)
	validator := consultation.NewValidator(scheduleRepo, timeOffRepo, consultationRepo, loc)
	consultationSvc := consultation.NewService(consultationRepo,
		consultation.NewNoteRepoPG(pool), consultation.NewPrescriptionRepoPG(pool),
		validator, identitySvc, catalogSvc, notificationSvc, tx, in.events, logger)
	consultation.NewHandler(consultationSvc).RegisterRoutes(apiV1)

	// Skin photos
	photoSvc := photo.NewService(photo.NewRepoPG(pool), in.blobs, identitySvc, logger)
	photo.NewHandler(photoSvc).RegisterRoutes(apiV1)

	// Payments
	if !cfg.MpesaConfigured() {
		logger.Warn().Msg("M-Pesa credentials not set; payment endpoints will answer 503")
	}
	gateway := mpesa.NewClient(mpesaConfig(cfg, loc), nil)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), gateway, consultationSvc, notificationSvc, in.events, logger)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	// Dependency health
	e.GET("/health/db", db.HealthHandler(pool, in.checks...))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
