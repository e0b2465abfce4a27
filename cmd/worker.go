package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/messaging/rabbitmq"
	"github.com/frahmantamala/tracker-workorders/internal/stats"
	statsPostgres "github.com/frahmantamala/tracker-workorders/internal/stats/postgres"
	userPostgres "github.com/frahmantamala/tracker-workorders/internal/user/postgres"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start workers that consume relayed work order events from RabbitMQ.`,
}

var statsWorkerCmd = &cobra.Command{
	Use:   "stats-invalidator",
	Short: "Drop cached dashboard counters as work orders change",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startStatsWorker()
	},
}

func startStatsWorker() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.RabbitMQ.Enabled || !cfg.Redis.Enabled {
		return fmt.Errorf("stats-invalidator needs both rabbitmq and redis enabled")
	}
	lg := logger.LoggerWrapper()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, gdb, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer rdb.Close()

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, rabbitConnectAttempts, lg)
	if err != nil {
		return err
	}
	defer conn.Close()

	consumer, err := rabbitmq.NewConsumer(conn.Chan, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, lg)
	if err != nil {
		return err
	}

	gate := auth.NewGate(userPostgres.NewUserRepository(gdb, cfg.Database.QueryTimeout), lg)
	svc := stats.NewService(statsPostgres.NewCounter(db, cfg.Database.QueryTimeout), stats.NewRedisCache(rdb), gate, cfg.Redis.StatsTTL, lg)

	lg.Info("stats invalidator running", "queue", cfg.RabbitMQ.Queue, "exchange", cfg.RabbitMQ.Exchange)
	if err := consumer.Run(ctx, svc.HandleEvent); err != nil {
		return err
	}
	lg.Info("stats invalidator stopped")
	return nil
}

func init() {
	workerCmd.AddCommand(statsWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
