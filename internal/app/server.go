package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	sessionRedis "github.com/sharetube/watchparty/internal/repository/session/redis"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Secret        string        `json:"-"`
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	MembersLimit  int           `json:"members_limit"`
	SessionExp    time.Duration `json:"session_exp"`
	LogLevel      string        `json:"log_level"`
	RedisPort     int           `json:"redis_port"`
	RedisHost     string        `json:"redis_host"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required),
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.MembersLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.SessionExp, validation.Required, validation.Min(time.Second)),
		validation.Field(&cfg.RedisHost, validation.Required),
		validation.Field(&cfg.RedisPort, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NewHandler wires the session server on top of rc.
func NewHandler(rc *redis.Client, logger *slog.Logger, cfg *AppConfig) http.Handler {
	sessionRepo := sessionRedis.NewRepo(rc, logger.With("component", "session-repo"), cfg.SessionExp)
	connectionRepo := inmemory.NewRepo(logger.With("component", "conn-repo"))
	sessionService := service.New(sessionRepo, connectionRepo, logger.With("component", "service"), &service.Config{
		MembersLimit: cfg.MembersLimit,
		Secret:       cfg.Secret,
	})
	controller := controller.NewController(sessionService, connectionRepo, metrics.New(), logger)

	return controller.GetMux()
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg.LogLevel, os.Stdout)
	if err != nil {
		return err
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           NewHandler(rc, logger, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	serverCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	shutdownErr := make(chan error, 1)
	go func() {
		<-serverCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(serverCtx), shutdownTimeout)
		defer cancel()

		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}

	return nil
}
