// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/mux"

	"github.com/jobrunner/waypost/internal/adapters/cache"
	"github.com/jobrunner/waypost/internal/adapters/gpx"
	httpAdapter "github.com/jobrunner/waypost/internal/adapters/http"
	"github.com/jobrunner/waypost/internal/adapters/metrics"
	"github.com/jobrunner/waypost/internal/adapters/spatial"
	"github.com/jobrunner/waypost/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/waypost/internal/adapters/tls"
	"github.com/jobrunner/waypost/internal/adapters/watcher"
	"github.com/jobrunner/waypost/internal/application"
	"github.com/jobrunner/waypost/internal/config"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Cache         *cache.Memory
	Store         *spatial.Store
	Files         output.FileStore
	SearchService *application.SearchService
	TileService   *application.TileService
	ExportManager *application.ExportManager
	RouteService  *application.RouteService
	HealthService *application.HealthService
	HTTPServer    *httpAdapter.Server
	TLSServer     *tlsAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector

	exportCancel context.CancelFunc
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("waypost")
		metricsCollector = app.Metrics
	}

	mem, err := cache.New(cfg.Cache.Capacity)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	app.Cache = mem

	store, err := spatial.NewStore(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing spatial store: %w", err)
	}
	app.Store = store

	files, err := initFileStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing file storage: %w", err)
	}
	app.Files = files

	codec := gpx.NewCodec()

	app.SearchService = application.NewSearchService(
		app.Store,
		app.Cache,
		metricsCollector,
		logger,
		cfg.Cache.SearchTTL,
	)

	app.TileService = application.NewTileService(
		app.Store,
		app.Cache,
		metricsCollector,
		logger,
		application.TileServiceConfig{
			LayerName: cfg.Tiles.Layer,
			Extent:    cfg.Tiles.Extent,
			MinZoom:   cfg.Tiles.MinZoom,
			MaxZoom:   cfg.Tiles.MaxZoom,
			TTL:       cfg.Cache.TileTTL,
		},
	)

	app.ExportManager = application.NewExportManager(
		app.Store,
		app.Files,
		codec,
		metricsCollector,
		logger,
		application.ExportManagerConfig{
			Workers:    cfg.Export.Workers,
			QueueSize:  cfg.Export.QueueSize,
			JobTimeout: cfg.Export.JobTimeout,
		},
	)

	app.RouteService = application.NewRouteService(app.Store, logger)
	app.HealthService = application.NewHealthService(app.Store, app.Cache)

	opts := httpAdapter.Options{}
	if app.Metrics != nil {
		opts.MetricsHandler = metrics.Handler()
		opts.MetricsPath = cfg.Metrics.Path
		opts.Middleware = []mux.MiddlewareFunc{app.Metrics.Middleware}
	}

	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		app.SearchService,
		app.TileService,
		app.ExportManager,
		app.RouteService,
		app.HealthService,
		codec,
		app.Files,
		logger,
		opts,
	)

	if cfg.TLS.Enabled {
		tlsServer, err := tlsAdapter.NewServer(
			tlsAdapter.Config{
				Enabled:  cfg.TLS.Enabled,
				Domains:  cfg.TLS.Domains,
				Email:    cfg.TLS.Email,
				CacheDir: cfg.TLS.CacheDir,
				Staging:  cfg.TLS.Staging,
			},
			app.HTTPServer.Router(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
		app.TLSServer = tlsServer
	}

	if cfg.Database.Watch {
		w, err := watcher.New(
			watcher.Config{Path: cfg.Database.Path},
			app.handleDatabaseChange,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize database watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components and blocks serving HTTP.
func (a *App) Start(ctx context.Context) error {
	exportCtx, cancel := context.WithCancel(context.Background())
	a.exportCancel = cancel
	a.ExportManager.Start(exportCtx)

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start database watcher", "error", err)
		}
	}

	if a.Config.TLS.Enabled && a.TLSServer != nil {
		return a.TLSServer.ListenAndServe(a.Config.Server.Address())
	}
	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop export workers and drain them before closing the store.
	if a.exportCancel != nil {
		a.exportCancel()
	}
	a.ExportManager.Wait()

	if err := a.Store.Close(); err != nil {
		a.Logger.Error("spatial store close error", "error", err)
	}

	return nil
}

// handleDatabaseChange reopens the store and drops all cached results when
// the database file is replaced.
func (a *App) handleDatabaseChange(ctx context.Context) error {
	a.Logger.Info("database file changed, reopening store")

	if err := a.Store.Reopen(ctx); err != nil {
		return fmt.Errorf("reopening store: %w", err)
	}
	a.Cache.Purge()
	return nil
}

// initFileStore initializes the configured file storage backend.
func initFileStore(ctx context.Context, cfg config.StorageConfig) (output.FileStore, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalStorage(cfg.LocalPath)

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
