package cmd

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

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/asset"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	checklistPostgres "github.com/frahmantamala/tracker-workorders/internal/checklist/postgres"
	"github.com/frahmantamala/tracker-workorders/internal/core/events"
	"github.com/frahmantamala/tracker-workorders/internal/messaging/rabbitmq"
	"github.com/frahmantamala/tracker-workorders/internal/report"
	"github.com/frahmantamala/tracker-workorders/internal/stats"
	statsPostgres "github.com/frahmantamala/tracker-workorders/internal/stats/postgres"
	"github.com/frahmantamala/tracker-workorders/internal/transport"
	"github.com/frahmantamala/tracker-workorders/internal/transport/rest"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	userPostgres "github.com/frahmantamala/tracker-workorders/internal/user/postgres"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	workorderPostgres "github.com/frahmantamala/tracker-workorders/internal/workorder/postgres"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const rabbitConnectAttempts = 5

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies holds every long-lived client and service of the process.
type Dependencies struct {
	Config *internal.Config
	Logger *slog.Logger
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Minio  *minio.Client
	Redis  *redis.Client
	Rabbit *rabbitmq.Connection
	Bus    *events.EventBus

	Gate       *auth.Gate
	Auth       *auth.Service
	Users      *user.Service
	Checklists *checklist.Service
	WorkOrders *workorder.Service
	Stats      *stats.Service
	Reports    *report.Service
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	setupRoutes(router, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Close()
	deps.Logger.Info("Server stopped")
}

func setupRoutes(router *chi.Mux, deps *Dependencies) {
	base := transport.NewBaseHandler(deps.Logger)
	rest.RegisterAllRoutes(router, rest.Handlers{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		Health:         rest.NewHealthHandler(deps.healthChecks()),
		Auth:           auth.NewHandler(deps.Auth, deps.Gate),
		RBAC:           auth.NewRBACAuthorization(deps.Gate, deps.Logger),
		User:           user.NewHandler(deps.Users),
		Checklist:      checklist.NewHandler(base, deps.Checklists),
		WorkOrder:      workorder.NewHandler(deps.WorkOrders),
		Stats:          stats.NewHandler(base, deps.Stats),
		Report:         report.NewHandler(base, deps.Reports),
	}, deps.Logger)
}

func (d *Dependencies) healthChecks() map[string]rest.CheckFunc {
	checks := map[string]rest.CheckFunc{
		"postgres": d.DB.PingContext,
		"minio": func(ctx context.Context) error {
			_, err := d.Minio.BucketExists(ctx, d.Config.Storage.PhotoBucket)
			return err
		},
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	if d.Rabbit != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if d.Rabbit.Conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	deps := &Dependencies{Config: config, Logger: logger.LoggerWrapper()}

	if err := deps.initStores(ctx); err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.initServices(ctx); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) initStores(ctx context.Context) error {
	var err error
	if d.DB, d.Gorm, err = openDatabase(d.Config.Database); err != nil {
		return err
	}

	storage := d.Config.Storage
	if d.Minio, err = asset.NewMinioClient(storage.Endpoint, storage.AccessKey, storage.SecretKey, storage.UseSSL); err != nil {
		return err
	}

	if d.Config.Redis.Enabled {
		d.Redis = redis.NewClient(&redis.Options{
			Addr:     d.Config.Redis.Addr,
			Password: d.Config.Redis.Password,
			DB:       d.Config.Redis.DB,
			PoolSize: d.Config.Redis.PoolSize,
		})
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			d.Logger.Warn("redis unreachable, stats will be counted directly until it recovers", "addr", d.Config.Redis.Addr, "error", err)
		}
	}

	if d.Config.RabbitMQ.Enabled {
		if d.Rabbit, err = rabbitmq.Connect(ctx, d.Config.RabbitMQ.URL, rabbitConnectAttempts, d.Logger); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dependencies) initServices(ctx context.Context) error {
	cfg := d.Config
	lg := d.Logger

	userRepo := userPostgres.NewUserRepository(d.Gorm, cfg.Database.QueryTimeout)
	d.Gate = auth.NewGate(userRepo, lg)
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.RefreshSecret,
		cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration)
	d.Auth = auth.NewService(userRepo, tokens, lg)
	d.Users = user.NewService(userRepo, cfg.Security.BCryptCost, lg)
	d.Checklists = checklist.NewService(checklistPostgres.NewTemplateRepository(d.Gorm, cfg.Database.QueryTimeout), d.Gate, lg)

	bucket := asset.NewMinioBucket(d.Minio)
	if err := bucket.EnsureBuckets(ctx, cfg.Storage.PhotoBucket, cfg.Storage.SignatureBucket); err != nil {
		return err
	}
	uploader := asset.NewUploader(bucket, asset.Config{
		PublicURL:       cfg.Storage.BaseURL(),
		PhotoBucket:     cfg.Storage.PhotoBucket,
		SignatureBucket: cfg.Storage.SignatureBucket,
		Timeout:         cfg.Storage.Timeout,
	}, lg)

	d.Bus = events.NewEventBus(lg)
	d.WorkOrders = workorder.NewService(workorderPostgres.NewWorkOrderRepository(d.Gorm, cfg.Database.QueryTimeout), d.Gate,
		d.Checklists, userRepo, uploader, d.Bus, lg)

	var cache stats.Cache = stats.NoopCache{}
	if d.Redis != nil {
		cache = stats.NewRedisCache(d.Redis)
	}
	d.Stats = stats.NewService(statsPostgres.NewCounter(d.DB, cfg.Database.QueryTimeout), cache, d.Gate, cfg.Redis.StatsTTL, lg)
	d.Bus.SubscribeMany(events.WorkOrderEventTypes, d.Stats.HandleEvent)

	if d.Rabbit != nil {
		publisher, err := rabbitmq.NewPublisher(d.Rabbit.Chan, cfg.RabbitMQ.Exchange, lg)
		if err != nil {
			return err
		}
		d.Bus.SubscribeMany(events.WorkOrderEventTypes, publisher.Publish)
	}

	generator := report.NewGenerator(uploader, report.NewPDFRenderer(), cfg.Report.LayoutPath, lg)
	d.Reports = report.NewService(d.WorkOrders, d.Gate, generator, lg)
	return nil
}

// Close waits for in-flight event handlers, then releases every client.
func (d *Dependencies) Close() {
	if d.Bus != nil {
		d.Bus.Wait()
	}
	if d.Rabbit != nil {
		if err := d.Rabbit.Close(); err != nil {
			d.Logger.Error("RabbitMQ close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
	}
}

// openDatabase returns one pgx pool exposed through both sqlx and gorm.
func openDatabase(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}
	return db, gdb, nil
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbConn, nil
}
