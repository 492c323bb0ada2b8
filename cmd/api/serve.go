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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safecircle/server/internal/alert"
	"github.com/safecircle/server/internal/auth"
	"github.com/safecircle/server/internal/classifier"
	"github.com/safecircle/server/internal/config"
	"github.com/safecircle/server/internal/db"
	"github.com/safecircle/server/internal/emergency"
	"github.com/safecircle/server/internal/events"
	"github.com/safecircle/server/internal/geocode"
	"github.com/safecircle/server/internal/health"
	httphandler "github.com/safecircle/server/internal/http"
	"github.com/safecircle/server/internal/http/handlers"
	"github.com/safecircle/server/internal/logger"
	"github.com/safecircle/server/internal/nominee"
	"github.com/safecircle/server/internal/notify"
	"github.com/safecircle/server/internal/repo"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Init(cfg.Environment, cfg.LogLevel, cfg.LogFormat)
			defer logger.Sync()

			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.IsProduction() && cfg.DevMode {
		return errors.New("OTP_DEV_MODE must not be enabled when APP_ENV=production")
	}

	logger.Info("opening database", logger.String("target", cfg.RedactedDatabaseURL()))
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	accounts := repo.NewAccountRepo(database)
	nominees := repo.NewNomineeRepo(database)
	records := repo.NewEmergencyRepo(database)

	ledger, closeLedger, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	var (
		smsSender  alert.Sender
		codeSender auth.CodeSender
	)
	if cfg.DevMode {
		logSender := notify.NewLogSender()
		smsSender, codeSender = logSender, logSender
		logger.Warn("OTP dev mode enabled: codes are returned in responses and messages are only logged")
	} else {
		sns, err := notify.NewSNSSender(ctx, cfg.SMS)
		if err != nil {
			return fmt.Errorf("failed to configure SMS: %w", err)
		}
		smsSender, codeSender = sns, notify.NewMailer(cfg.SMTP)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing emergency events",
			logger.String("topic", cfg.Kafka.Topic),
			zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	defer publisher.Close()

	geocoder := geocode.NewNominatim(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.RPS)
	dispatcher := alert.NewDispatcher(smsSender, geocoder, cfg.FanoutConcurrency)

	model := classifier.Load(cfg.ModelPath)
	if model.Loaded() {
		logger.Info("classifier loaded", logger.String("path", cfg.ModelPath), logger.String("format", model.Format()))
	} else {
		logger.Warn("classifier unavailable", logger.String("path", cfg.ModelPath), logger.Err(model.LoadError()))
	}

	authService := auth.NewAuthService(ledger, accounts, codeSender)
	directory := nominee.NewDirectory(accounts, nominees)
	emergencies := emergency.NewService(accounts, nominees, records, dispatcher, publisher)

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cfg.DevMode),
		Nominees:  handlers.NewNomineeHandler(directory),
		Emergency: handlers.NewEmergencyHandler(emergencies),
		Health:    handlers.NewHealthHandler(health.NewChecker(database, model)),
		Predict:   handlers.NewPredictHandler(model),
	}, cfg.AllowedOrigins, logger.Get())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Fanout plus geocoding can take a while.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func newLedger(ctx context.Context, cfg *config.Config) (auth.Ledger, func(), error) {
	if cfg.OTPStore != "redis" {
		return auth.NewMemoryLedger(cfg.OTPSalt), func() {}, nil
	}

	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis OTP store")
	return auth.NewRedisLedger(client, cfg.OTPSalt), func() { _ = client.Close() }, nil
}
