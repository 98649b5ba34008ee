package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	eventbus "github.com/yungbote/estate-backend/internal/clients/redis"
	"github.com/yungbote/estate-backend/internal/data/db"
	estaterepos "github.com/yungbote/estate-backend/internal/data/repos/estate"
	"github.com/yungbote/estate-backend/internal/observability"
	"github.com/yungbote/estate-backend/internal/platform/config"
	"github.com/yungbote/estate-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      config.Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	bus          eventbus.EventBus
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv())
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log, db.PostgresConfigFromEnv())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	var bus eventbus.EventBus
	if cfg.RedisAddr != "" {
		if bus, err = eventbus.NewEventBus(log, cfg.RedisAddr, cfg.RedisChannel); err != nil {
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("init event bus: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set; outbox relay disabled")
	}

	reposet := wireRepos(pg.DB(), log)
	serviceset, err := wireServices(pg.DB(), log, cfg, reposet, metrics, bus)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           pg.DB(),
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		bus:          bus,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves metrics and runs the outbox relay until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.DB == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	a.Metrics.StartOutboxCollector(ctx, a.Log, a.DB, estaterepos.OutboxTable)

	if a.Services.Relay != nil {
		g.Go(func() error { return a.Services.Relay.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	a.Log.Info("estated running", "metrics_addr", a.Cfg.MetricsAddr, "relay", a.Services.Relay != nil)
	return g.Wait()
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("event bus close failed", "error", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
