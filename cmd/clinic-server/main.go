package main

import (
	"context"
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

	"github.com/vanuse/clinic/internal/config"
	"github.com/vanuse/clinic/internal/domain/notification"
	"github.com/vanuse/clinic/internal/domain/patient"
	"github.com/vanuse/clinic/internal/domain/user"
	"github.com/vanuse/clinic/internal/platform/auth"
	"github.com/vanuse/clinic/internal/platform/db"
	"github.com/vanuse/clinic/internal/platform/mail"
	"github.com/vanuse/clinic/internal/platform/middleware"
	"github.com/vanuse/clinic/internal/realtime"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic management API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
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
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("unsafe configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Token issuance and verification
	issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	// Mail: fall back to the in-memory sender when no relay is configured.
	// Validate() guarantees a relay in production.
	var mailer mail.EmailSender
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	} else {
		logger.Warn().Msg("SMTP_ADDR not set; outgoing mail is captured in memory")
		mailer = &mail.MockEmailSender{}
	}
	templates := mail.NewTemplateEngine()

	// API groups. The public group carries account creation, login and the
	// password-reset flow; everything else requires a bearer token.
	public := e.Group("/api/v1")
	api := e.Group("/api/v1", auth.Middleware(issuer, nil))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// -- Domain wiring --

	userRepo := user.NewRepoPG(pool)
	userSvc := user.NewService(userRepo, issuer, mailer, templates, logger)
	userSvc.SetTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})
	userHandler := user.NewHandler(userSvc)
	userHandler.RegisterRoutes(public, api)

	notifRepo := notification.NewRepoPG(pool)
	notifSvc := notification.NewService(notifRepo, logger)
	notifHandler := notification.NewHandler(notifSvc)
	notifHandler.RegisterRoutes(api)

	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, userSvc, logger)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(api)

	// Realtime channel. The websocket route authenticates in-channel, so it
	// lives outside the bearer-protected group; routed messages are journaled
	// into the notification inbox.
	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, issuer, notifSvc, logger)
	socketHandler := realtime.NewSocketHandler(hub)
	socketHandler.RegisterRoutes(e.Group(""), api)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
