// Package app initializes and runs the service.
// It configures logging, storage, authentication, and routing,
// seeds the subscription catalog and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/wikisubs/internal/auth"
	"github.com/patric-chuzhbe/wikisubs/internal/config"
	"github.com/patric-chuzhbe/wikisubs/internal/db/jsondb"
	"github.com/patric-chuzhbe/wikisubs/internal/db/memorystorage"
	"github.com/patric-chuzhbe/wikisubs/internal/db/redisdb"
	"github.com/patric-chuzhbe/wikisubs/internal/db/sqldb"
	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/grpcserver"
	"github.com/patric-chuzhbe/wikisubs/internal/ipchecker"
	"github.com/patric-chuzhbe/wikisubs/internal/logger"
	"github.com/patric-chuzhbe/wikisubs/internal/models"
	"github.com/patric-chuzhbe/wikisubs/internal/router"
	"github.com/patric-chuzhbe/wikisubs/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the configuration, HTTP handler, optional gRPC server
// and storage backend needed to run the service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	service     *service.Service
	httpHandler http.Handler
	healthCheck *grpcserver.HealthHandler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - seeding the subscription catalog
// - setting up the router and middleware
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	app.warnAboutDefaults()

	app.db, err = getStorageByType(context.Background(), app.cfg)
	if err != nil {
		return nil, err
	}

	issuer := auth.NewIssuer([]byte(app.cfg.JWTSecret))
	app.service = service.New(app.db, issuer)

	seeded, err := app.service.SeedSubscriptionOptions(context.Background())
	if err != nil {
		app.db.Close()
		return nil, err
	}
	if seeded {
		logger.Log.Infow("Seeded the default subscription options")
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		app.db.Close()
		return nil, err
	}

	app.httpHandler = router.New(app.service, issuer, ipChecker, app.cfg.FrontendURL)
	app.healthCheck = grpcserver.NewHealthHandler(app.db)

	return app, nil
}

func (a *App) warnAboutDefaults() {
	if a.cfg.UsesDefaultJWTSecret() {
		logger.Log.Warnw("JWT_SECRET is not set, the built-in development secret is used")
	}
	if a.cfg.IsProduction() && a.cfg.UsesDefaultDatabaseURL() {
		logger.Log.Warnw("DATABASE_URL is not set in production, the local development database is used", "dsn", a.cfg.DatabaseDSN)
	}
}

// Run starts the HTTP server, and the gRPC health server when an address is configured,
// and blocks until a shutdown signal arrives or a server fails. The store is closed on every return path.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		grpcServer   *grpc.Server
		grpcListener net.Listener
	)
	if a.cfg.GRPCAddr != "" {
		var err error
		grpcServer, grpcListener, err = grpcserver.NewGRPCServer(a.cfg.GRPCAddr, a.healthCheck)
		if err != nil {
			return errors.Join(
				fmt.Errorf("in internal/app/app.go/Run(): error while `grpcserver.NewGRPCServer()` calling: %w", err),
				a.db.Close(),
			)
		}
	}

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 2)
	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr, "Environment", a.cfg.Environment)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()
	if grpcServer != nil {
		logger.Log.Infow("gRPC server running", "GRPCAddr", a.cfg.GRPCAddr)
		go func() {
			serverErrCh <- grpcServer.Serve(grpcListener)
		}()
	}

	stopGRPC := func() {
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		stopGRPC()
		if shutdownErr != nil {
			return errors.Join(fmt.Errorf("server shutdown error: %w", shutdownErr), a.db.Close())
		}

		return a.db.Close()

	case err := <-serverErrCh:
		server.Close()
		stopGRPC()
		if errors.Is(err, http.ErrServerClosed) {
			return a.db.Close()
		}
		return errors.Join(fmt.Errorf("server error: %w", err), a.db.Close())
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	switch cfg.StorageType {
	case config.StoragePostgres:
		return models.StorageTypePostgresql
	case config.StorageSqlite:
		return models.StorageTypeSqlite
	case config.StorageRedis:
		return models.StorageTypeRedis
	case config.StorageFile:
		return models.StorageTypeFile
	case config.StorageMemory:
		return models.StorageTypeMemory
	case config.StorageAuto:
	default:
		return models.StorageTypeUnknown
	}

	// An explicit file path beats the built-in development database.
	if cfg.DBFileName != "" && cfg.UsesDefaultDatabaseURL() {
		return models.StorageTypeFile
	}

	dsn := cfg.DatabaseDSN
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return models.StorageTypePostgresql
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return models.StorageTypeRedis
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"):
		return models.StorageTypeSqlite
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return sqldb.New(ctx, sqldb.Postgres, cfg.DatabaseDSN, cfg.DBConnectionTimeout)

	case models.StorageTypeSqlite:
		return sqldb.New(ctx, sqldb.SQLite, cfg.DatabaseDSN, cfg.DBConnectionTimeout)

	case models.StorageTypeRedis:
		return redisdb.New(ctx, cfg.DatabaseDSN, cfg.DBConnectionTimeout)

	case models.StorageTypeFile:
		if cfg.DBFileName == "" {
			return nil, errors.New("file storage requires FILE_STORAGE_PATH")
		}
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
