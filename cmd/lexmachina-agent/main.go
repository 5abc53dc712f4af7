package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/a2a"
	"github.com/lexmachina/lexmachina-agent/internal/agent"
	"github.com/lexmachina/lexmachina-agent/internal/config"
	"github.com/lexmachina/lexmachina-agent/internal/credential"
	"github.com/lexmachina/lexmachina-agent/internal/enrich"
	"github.com/lexmachina/lexmachina-agent/internal/metrics"
	"github.com/lexmachina/lexmachina-agent/internal/ratelimit"
	"github.com/lexmachina/lexmachina-agent/internal/repository"
	"github.com/lexmachina/lexmachina-agent/internal/repository/memory"
	pgRepo "github.com/lexmachina/lexmachina-agent/internal/repository/postgres"
	"github.com/lexmachina/lexmachina-agent/internal/search/lexmachina"
	"github.com/lexmachina/lexmachina-agent/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	flags := pflag.NewFlagSet("lexmachina-agent", pflag.ExitOnError)
	host := flags.String("host", "localhost", "interface to listen on")
	port := flags.Int("port", 10011, "port to listen on")
	envFile := flags.String("env-file", ".env", "optional dotenv file")
	flags.Parse(os.Args[1:])

	boot := config.BootstrapLogger()

	if _, err := config.LoadDotEnv(*envFile); err != nil {
		boot.Error("failed to load env file", zap.String("path", *envFile), zap.Error(err))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}
	if flags.Changed("host") {
		cfg.Server.Host = *host
	}
	if flags.Changed("port") {
		cfg.Server.Port = *port
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		boot.Error("failed to create logger", zap.Error(err))
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("An error occurred during server startup", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	creds, err := credential.Resolve(ctx, cfg.Auth, cfg.API,
		credential.WithLogger(logger),
		credential.WithRecorder(m),
	)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}
	logger.Info("credentials resolved", zap.String("method", creds.Method().String()))

	client, err := lexmachina.New(lexmachina.Config{
		BaseURL:            cfg.API.BaseURL,
		Timeout:            cfg.API.Timeout,
		DescriptionTimeout: cfg.Enrich.DescriptionTimeout,
	}, creds, logger)
	if err != nil {
		return err
	}
	client.WithRecorder(m)

	enricher := enrich.New(client, enrich.Config{
		MaxConcurrency: cfg.Enrich.MaxConcurrency,
		RateLimitRPS:   cfg.Enrich.RateLimitRPS,
	}, logger).WithRecorder(m)

	queries := service.NewQueryService(service.QueryServiceDeps{
		Search:   client,
		Enricher: enricher,
		Logger:   logger,
		Metrics:  m,
	})

	store, closeStore, err := openTaskStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	card := a2a.DefaultCard(fmt.Sprintf("http://%s:%d/", cfg.Server.Host, cfg.Server.Port))
	if cfg.AgentCardFile != "" {
		if err := a2a.LoadCardFile(cfg.AgentCardFile, &card); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	defer limiter.Close()

	handler := a2a.NewHandler(agent.NewExecutor(queries, logger), store, logger, m)
	srv, err := a2a.NewServer(a2a.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, a2a.ServerDeps{
		Handler:        handler,
		Card:           card,
		Limiter:        limiter,
		Logger:         logger,
		Metrics:        m,
		MetricsHandler: metrics.Handler(),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openTaskStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repository.TaskRepository, func(), error) {
	if cfg.Type != "postgres" {
		return memory.NewTaskRepo(), func() {}, nil
	}

	db, err := pgRepo.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect task store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("using postgres task store")
	return pgRepo.NewTaskRepo(db), db.Close, nil
}
