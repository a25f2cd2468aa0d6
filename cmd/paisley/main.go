package main

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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms/openai"

	app "github.com/kode4food/paisley"
	"github.com/kode4food/paisley/internal/config"
	"github.com/kode4food/paisley/internal/server"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/feed"
	"github.com/kode4food/paisley/pkg/log"
	"github.com/kode4food/paisley/pkg/oracle/langchain"
	"github.com/kode4food/paisley/pkg/process"
	"github.com/kode4food/paisley/pkg/registry"
	"github.com/kode4food/paisley/pkg/script"
)

type paisley struct {
	cfg        *config.Config
	store      process.Store
	registry   *registry.Registry
	scripts    *script.Registry
	oracle     api.Oracle
	catalog    *config.Catalog
	feed       *feed.Feed
	runner     *process.Runner
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

const capabilityTimeout = 30 * time.Second

var (
	ErrCreateStore  = errors.New("failed to create suspended-run store")
	ErrLoadCatalog  = errors.New("failed to load process catalog")
	ErrMountCatalog = errors.New("failed to mount catalog capability")
	ErrCreateOracle = errors.New("failed to create decision oracle")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	_ = godotenv.Load()

	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &paisley{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *paisley) run() error {
	if err := s.initializeStore(); err != nil {
		return err
	}
	if err := s.initializeCatalog(); err != nil {
		return err
	}
	if err := s.initializeOracle(); err != nil {
		return err
	}
	s.initializeRunner()
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *paisley) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Paisley starting",
		slog.String("log_level", s.cfg.LogLevel),
		slog.String("store", s.cfg.StoreBackend),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *paisley) initializeStore() error {
	switch s.cfg.StoreBackend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       s.cfg.RedisDB,
		})
		s.store = process.NewRedisStore(client,
			process.WithPrefix(s.cfg.RedisPrefix),
			process.WithTTL(s.cfg.SuspendTTL),
		)

	case config.StoreBlob:
		store, err := process.NewBlobStore(
			context.Background(), s.cfg.BlobURL, s.cfg.BlobPrefix,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCreateStore, err)
		}
		s.store = store

	default:
		s.store = process.NewMemoryStore()
	}
	return nil
}

func (s *paisley) initializeCatalog() error {
	s.registry = registry.New()
	s.scripts = script.NewRegistry()

	if s.cfg.CatalogPath == "" {
		s.catalog = &config.Catalog{}
		return nil
	}

	catalog, err := config.LoadCatalog(s.cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	s.catalog = catalog

	for _, cd := range catalog.Capabilities {
		timeout := time.Duration(cd.Timeout)
		if timeout <= 0 {
			timeout = capabilityTimeout
		}
		err := s.registry.Register(api.CapabilityInfo{
			Namespace:   cd.Namespace,
			Name:        cd.Name,
			Description: cd.Description,
		}, registry.NewHTTPCapability(cd.Endpoint, timeout))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMountCatalog, err)
		}
	}
	return nil
}

// initializeOracle wires a decision oracle when an OpenAI-compatible key
// is present; extract steps are unavailable otherwise
func (s *paisley) initializeOracle() error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil
	}

	model, err := openai.New()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateOracle, err)
	}
	s.oracle = langchain.New(model)
	return nil
}

func (s *paisley) initializeRunner() {
	s.feed = feed.New()
	s.runner = process.NewRunner(
		process.WithStore(s.store),
		process.WithRegistry(s.registry),
		process.WithObserver(s.feed.Observer()),
	)
}

func (s *paisley) startServer() {
	s.apiServer = server.New(
		s.runner, s.store, s.registry, s.scripts, s.oracle,
		s.catalog, s.feed,
	)
	router := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", log.Error(err))
			s.quit <- syscall.SIGTERM
		}
	}()
}

func (s *paisley) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	s.apiServer.CloseWebSockets()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown failed", log.Error(err))
	}
	s.feed.Close()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	slog.Info("Shutdown complete")
}
