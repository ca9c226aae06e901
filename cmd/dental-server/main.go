package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/smilecare/dental/internal/config"
	"github.com/smilecare/dental/internal/domain/analytics"
	"github.com/smilecare/dental/internal/domain/clinic"
	"github.com/smilecare/dental/internal/domain/messaging"
	"github.com/smilecare/dental/internal/domain/notification"
	"github.com/smilecare/dental/internal/domain/settings"
	"github.com/smilecare/dental/internal/platform/auth"
	"github.com/smilecare/dental/internal/platform/blobstore"
	"github.com/smilecare/dental/internal/platform/kvstore"
	"github.com/smilecare/dental/internal/platform/middleware"
	"github.com/smilecare/dental/internal/platform/telemetry"
	"github.com/smilecare/dental/internal/platform/websocket"
)

const version = "0.1.0"

// loginPath is throttled per client IP.
const loginPath = "/api/v1/auth/login"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dental-server",
		Short: "SmileCare dental practice API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dental API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the demo patients, incidents and notifications",
		Long:  "Seeds every collection that is missing from the state store. With --force the demo data replaces what is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			kv, err := openKV(ctx, cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			store, err := clinic.Open(ctx, kv, clinic.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("open clinic store: %w", err)
			}
			if _, err := notification.Open(ctx, kv, notification.Options{Logger: logger}); err != nil {
				return fmt.Errorf("open notification store: %w", err)
			}
			if !force {
				logger.Info().Msg("missing collections seeded")
				return nil
			}
			if err := store.Reseed(ctx); err != nil {
				return err
			}
			if err := kvstore.PutJSON(ctx, kv, notification.Key, notification.Seed(time.Now())); err != nil {
				return fmt.Errorf("reseed notifications: %w", err)
			}
			logger.Info().Msg("demo data restored")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite stored collections with the demo data")
	return cmd
}

func reportCmd() *cobra.Command {
	var rangeKind string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the practice report for a period as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			kv, err := openKV(ctx, cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			store, err := clinic.Open(ctx, kv, clinic.Options{Logger: logger})
			if err != nil {
				return fmt.Errorf("open clinic store: %w", err)
			}
			patients, err := store.ListPatients(ctx)
			if err != nil {
				return fmt.Errorf("list patients: %w", err)
			}
			incidents, err := store.ListIncidents(ctx)
			if err != nil {
				return fmt.Errorf("list incidents: %w", err)
			}
			report := analytics.Report(patients, incidents, analytics.RangeKind(rangeKind), time.Now())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&rangeKind, "range", string(analytics.RangeThisMonth), "thisMonth, lastMonth, last3Months or last6Months")
	return cmd
}

// bootstrap builds the logger and loads the validated config.
func bootstrap() (zerolog.Logger, *config.Config, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		return logger, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return logger, nil, fmt.Errorf("invalid config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(lvl)
	}
	return logger, cfg, nil
}

func openKV(ctx context.Context, cfg *config.Config) (kvstore.Store, error) {
	path := cfg.StorePath
	if cfg.StoreDriver == kvstore.DriverSQLite {
		path = cfg.SQLitePath()
	}
	kv, err := kvstore.Open(ctx, kvstore.Options{
		Driver:      cfg.StoreDriver,
		Path:        path,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return kv, nil
}

// app holds the long-lived collaborators behind the HTTP server.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	kv        kvstore.Store
	telemetry *telemetry.Provider
	hub       *websocket.Hub
	clinic    *clinic.Service
	notes     *notification.Store
	blobs     blobstore.Store
	directory *auth.Directory
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	kv, err := openKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.StoreDriver).Msg("state store ready")

	prov := telemetry.NewProvider(true)
	hub := websocket.NewHub(logger)

	notes, err := notification.Open(ctx, kv, notification.Options{
		Logger:    logger.With().Str("component", "notifications").Logger(),
		Recorder:  prov,
		Announcer: notification.ToastAnnouncer{Publisher: hub},
		Changes:   hub,
	})
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open notification store: %w", err)
	}

	store, err := clinic.Open(ctx, kv, clinic.Options{
		Logger:   logger.With().Str("component", "clinic").Logger(),
		Recorder: prov,
	})
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open clinic store: %w", err)
	}

	blobs, err := blobstore.Open(ctx, blobstore.Options{
		Driver: blobstore.Driver(cfg.BlobDriver),
		Path:   cfg.BlobPath,
		S3: blobstore.S3Config{
			Bucket:          cfg.BlobS3Bucket,
			Region:          cfg.BlobS3Region,
			Endpoint:        cfg.BlobS3Endpoint,
			PathStyle:       cfg.BlobS3PathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	})
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	logger.Info().Str("driver", string(blobs.Driver())).Msg("blob store ready")

	return &app{
		cfg:       cfg,
		log:       logger,
		kv:        kv,
		telemetry: prov,
		hub:       hub,
		clinic:    clinic.NewService(store, blobs, hub, logger.With().Str("component", "clinic").Logger()),
		notes:     notes,
		blobs:     blobs,
		directory: auth.NewDirectory(auth.DemoAccounts(), 0),
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

// newServer builds the echo instance with every route registered.
func (a *app) newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(a.log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.Secure())
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool { return c.Path() != loginPath },
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(1),
			Burst:     10,
			ExpiresIn: 3 * time.Minute,
		}),
	}))
	e.Use(a.telemetry.MetricsMiddleware())
	e.Use(middleware.Audit(a.log))

	e.GET("/health", a.health)
	e.GET("/metrics", a.telemetry.PrometheusHandler())

	tokens := auth.NewTokens(a.cfg.SessionSecret, a.cfg.SessionTTL)
	revoked := auth.NewRevocations()
	api := e.Group("/api/v1", auth.SessionMiddleware(tokens, revoked, auth.AuthSkipper))

	auth.NewHandler(a.directory, tokens, revoked).RegisterRoutes(api)
	clinic.NewHandler(a.clinic).RegisterRoutes(api)
	analytics.NewHandler(a.clinic.Store(), a.notes).RegisterRoutes(api)
	notification.NewHandler(a.notes).RegisterRoutes(api)
	messaging.NewHandler().RegisterRoutes(api)
	settings.NewHandler(a.notes).RegisterRoutes(api)
	blobstore.NewHandler(a.blobs).RegisterRoutes(api)
	websocket.NewHandler(a.hub, a.cfg.CORSOrigins).RegisterRoutes(api)

	return e
}

// health pings the state store. An unreachable store answers 503.
func (a *app) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := kvstore.Ping(ctx, a.kv); err != nil {
		a.log.Warn().Err(err).Msg("state store health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "version": version, "store": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version, "store": "ok"})
}

func runServer() error {
	logger, cfg, err := bootstrap()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise stores")
	}
	defer a.Close()

	e := a.newServer()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
