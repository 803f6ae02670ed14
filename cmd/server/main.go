package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"patient-portal-api/internal/auth"
	"patient-portal-api/internal/config"
	"patient-portal-api/internal/db"
	"patient-portal-api/internal/events"
	"patient-portal-api/internal/handler"
	"patient-portal-api/internal/health"
	"patient-portal-api/internal/logger"
	"patient-portal-api/internal/metrics"
	"patient-portal-api/internal/middleware"
	"patient-portal-api/internal/notify"
	"patient-portal-api/internal/server"
	"patient-portal-api/internal/store"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "patient-portal",
		Short:        "Patient portal API server",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Env)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.Migrate(ctx, pool, log)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", n)
			return nil
		},
	}
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Env,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info().Msg("sentry enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if migrate {
		n, err := db.Migrate(ctx, pool, log)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Int("applied", n).Msg("migrations up to date")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Kafka.Broker != "" {
		kp, err := events.NewKafka(cfg.Kafka.Broker)
		if err != nil {
			// events are best effort, serve without them
			log.Warn().Err(err).Msg("kafka unavailable, appointment events disabled")
		} else {
			pub = kp
			log.Info().Str("broker", cfg.Kafka.Broker).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher ready")
		}
	}
	defer pub.Close()

	m := metrics.New()
	st := store.New(pool)
	tokens := auth.NewTokenService(auth.NewKeyring(cfg.JWT.KeyID, cfg.JWT.Secret, cfg.JWT.Previous), cfg.JWT.TTL)
	emitter := notify.New(cfg.Location(), pub, cfg.Kafka.Topic, m)
	checker := health.New(st)

	rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer rl.Close()

	router, err := server.NewRouter(server.Deps{
		Logger:         log,
		Handler:        handler.New(st, tokens, emitter, cfg.IsProduction()),
		Tokens:         tokens,
		Metrics:        m,
		Health:         checker,
		Limiter:        rl,
		CORSOrigins:    cfg.CORS.Origins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		return err
	}

	hctx, stopHealth := context.WithCancel(log.WithContext(context.Background()))
	defer stopHealth()
	go checker.Run(hctx, healthInterval)

	grpcSrv := server.NewGRPC(checker)
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		log.Info().Str("port", cfg.GRPC.Port).Msg("grpc health listening")
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc serve")
		}
	}()

	httpSrv := server.NewHTTP(":"+cfg.HTTP.Port, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Str("env", cfg.Env).Msg("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("http server failed")
	}

	// health reports NOT_SERVING before the listeners close
	stopHealth()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	grpcSrv.GracefulStop()
	emitter.Wait()

	log.Info().Msg("stopped")
	return runErr
}
