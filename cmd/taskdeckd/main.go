package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"taskdeck/internal/api"
	"taskdeck/internal/auth"
	"taskdeck/internal/config"
	"taskdeck/internal/events"
	"taskdeck/internal/observability/metrics"
	"taskdeck/internal/storage/sqldb"
	"taskdeck/internal/task"
	"taskdeck/internal/template"
	"taskdeck/pkg/logger"
)

// main 是 TaskDeck 守护进程的入口。
func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("taskdeckd 运行失败: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "taskdeckd",
		Usage: "TaskDeck 任务与模板服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML 配置文件路径",
				EnvVars: []string{"TASKDECK_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "初始化数据库并启动 HTTP 服务",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "只执行数据库迁移并写入演示用户",
				Action: migrate,
			},
		},
	}
}

func setup(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	publisher, err := events.New(ctx, events.Config{
		Driver: cfg.Events.Driver,
		Buffer: cfg.Events.Buffer,
		Redis: events.RedisConfig{
			Address:  cfg.Events.Redis.Address,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
			Key:      cfg.Events.Redis.Key,
			MaxLen:   cfg.Events.Redis.MaxLen,
		},
		RabbitMQ: events.RabbitMQConfig{
			URL:     cfg.Events.RabbitMQ.URL,
			Queue:   cfg.Events.RabbitMQ.Queue,
			Durable: cfg.Events.RabbitMQ.Durable,
		},
	})
	if err != nil {
		return err
	}
	defer publisher.Close()

	taskSvc := task.NewService(st.tasks, publisher)
	server := api.NewServer(api.Options{
		Address:           cfg.Server.Address,
		StaticDir:         cfg.Server.StaticDir,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout(),
		CORSOrigins:       cfg.Server.CORSOrigins,
		Health:            st.health,
	}, api.Services{
		Tasks:     taskSvc,
		Templates: template.NewService(st.templates, taskSvc, publisher),
		Auth:      auth.NewService(st.users),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	if cfg.Metrics.Address != "" {
		g.Go(func() error { return metrics.StartServer(gctx, cfg.Metrics.Address) })
	}
	if mem, ok := publisher.(*events.MemoryPublisher); ok {
		eventLog := logger.Named("events")
		g.Go(func() error {
			return mem.Consume(gctx, func(ctx context.Context, evt events.Event) {
				eventLog.DebugContext(ctx, "事件", slog.String("type", string(evt.Type)), slog.Int64("resource_id", evt.ResourceID))
			})
		})
	}

	logger.L().Info("TaskDeck 已启动",
		slog.String("addr", cfg.Server.Address),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("events", cfg.Events.Driver),
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Storage.Driver == "memory" {
		logger.L().Info("内存存储无需迁移")
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	db, err := sqldb.Open(ctx, sqlConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx, seedOf(cfg)); err != nil {
		return err
	}
	logger.L().Info("数据库迁移完成", slog.String("driver", db.Driver()))
	return nil
}

// stores 汇总一种存储驱动下的全部仓库。
type stores struct {
	tasks     task.Store
	templates template.Store
	users     auth.Store
	health    api.Pinger
	close     func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		users, err := auth.NewMemoryStore(seedOf(cfg))
		if err != nil {
			return nil, err
		}
		return &stores{
			tasks:     task.NewMemoryStore(),
			templates: template.NewMemoryStore(),
			users:     users,
			close:     func() error { return nil },
		}, nil
	}

	db, err := sqldb.Open(ctx, sqlConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, seedOf(cfg)); err != nil {
		db.Close()
		return nil, err
	}
	return &stores{
		tasks:     db.Tasks(),
		templates: db.Templates(),
		users:     db.Users(),
		health:    db,
		close:     db.Close,
	}, nil
}

func sqlConfig(cfg *config.Config) sqldb.Config {
	return sqldb.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Storage.ConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Storage.ConnMaxIdleTimeSeconds) * time.Second,
	}
}

func seedOf(cfg *config.Config) auth.Seed {
	return auth.Seed{Username: cfg.Auth.Seed.Username, Password: cfg.Auth.Seed.Password}
}
