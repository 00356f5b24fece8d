package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/knowledge-assistant/internal/config"
	"github.com/kirillkom/knowledge-assistant/internal/core/ports"
	"github.com/kirillkom/knowledge-assistant/internal/core/usecase"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/backend/httpapi"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/identity/local"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/repository/memory"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/knowledge-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Shell   *usecase.Shell
	Backend *httpapi.Client
	Files   *localfs.Storage
	Metrics *metrics.ClientMetrics

	backendExec *resilience.Executor
	closeFns    []func()
}

type Options struct {
	Logger *slog.Logger
	// Confirmer gates deletions. Nil declines every deletion.
	Confirmer ports.Confirmer
	// Service labels client metrics.
	Service string
}

// New wires the application. On error everything opened so far is closed
// again and no App is returned.
func New(ctx context.Context, cfg config.Config, options Options) (*App, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	if err := app.wire(ctx, cfg, options); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, cfg config.Config, options Options) error {
	logger := a.Logger

	backendCfg := resilience.DefaultConfig().WithoutRetries()
	backendCfg.Breaker.Enabled = cfg.BackendBreakerEnabled
	backendCfg.Logger = logger
	a.backendExec = resilience.NewExecutor(backendCfg)
	a.Backend = httpapi.New(cfg.BackendURL, httpapi.Options{
		Timeout:            time.Duration(cfg.BackendTimeoutSeconds) * time.Second,
		ResilienceExecutor: a.backendExec,
	})

	feed, err := a.openFeed(cfg)
	if err != nil {
		return err
	}

	var (
		store       ports.MetadataStore
		credentials ports.CredentialStore
	)
	switch cfg.MetadataDriver {
	case config.DriverPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.onClose(func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store, credentials = postgresStores(db, feed, logger)
	default:
		store = memory.NewDocumentStore(feed)
		credentials = memory.NewCredentialStore()
	}

	provider, err := local.NewProvider(credentials, local.Options{
		Secret:      []byte(cfg.IdentityTokenSecret),
		TokenTTL:    time.Duration(cfg.IdentityTokenTTLHours) * time.Hour,
		SessionFile: cfg.SessionFile,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("init identity provider: %w", err)
	}
	a.onClose(provider.Close)

	a.Files, err = localfs.New(cfg.StagingPath)
	if err != nil {
		return fmt.Errorf("init staging storage: %w", err)
	}

	service := options.Service
	if service == "" {
		service = "assistant"
	}
	a.Metrics = metrics.NewClientMetrics(service)

	a.Shell = usecase.NewShell(usecase.ShellDeps{
		Identity:  provider,
		Backend:   a.Backend,
		Store:     store,
		Files:     a.Files,
		Confirmer: options.Confirmer,
		Recorder:  a.Metrics,
		Logger:    logger,
	})
	a.onClose(a.Shell.Close)
	a.Shell.Start(ctx)

	logger.Info("bootstrap_ready",
		"metadata_driver", cfg.MetadataDriver,
		"backend_url", cfg.BackendURL,
		"change_feed", feedKind(cfg),
	)
	return nil
}

func (a *App) openFeed(cfg config.Config) (ports.ChangeFeed, error) {
	if cfg.NATSURL == "" {
		return memory.NewFeed(), nil
	}
	natsCfg := resilience.DefaultConfig()
	natsCfg.Logger = a.Logger
	feed, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(natsCfg),
		Logger:             a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init change feed: %w", err)
	}
	a.onClose(feed.Close)
	return feed, nil
}

func postgresStores(db *sql.DB, feed ports.ChangeFeed, logger *slog.Logger) (ports.MetadataStore, ports.CredentialStore) {
	return postgres.NewDocumentStore(db, feed, logger), postgres.NewCredentialStore(db)
}

func feedKind(cfg config.Config) string {
	if cfg.NATSURL == "" {
		return "in-process"
	}
	return "nats"
}

// BreakerStates reports the backend circuit breakers by operation.
func (a *App) BreakerStates() map[string]string {
	if a.backendExec == nil {
		return nil
	}
	return a.backendExec.BreakerStates()
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
