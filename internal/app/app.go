package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/courseflow-backend/internal/data/db"
	httpapi "github.com/yungbote/courseflow-backend/internal/http"
	httpH "github.com/yungbote/courseflow-backend/internal/http/handlers"
	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/realtime"
	"github.com/yungbote/courseflow-backend/internal/realtime/bus"
	"github.com/yungbote/courseflow-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Metrics  *observability.Metrics
	Hub      *realtime.SSEHub
	Bus      bus.Bus
	Services Services
	Server   *httpapi.Server

	redis        *goredis.Client
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	boot, err := logger.New("development")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := LoadConfig(boot)
	if err != nil {
		boot.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := boot
	if cfg.LogMode != "development" {
		if log, err = logger.New(cfg.LogMode); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.otel())
	a.Metrics = observability.Init(log, observability.MetricsConfig{Enabled: cfg.Metrics.Enabled})

	a.DB, err = db.Open(db.Config{
		Driver:           cfg.Database.Driver,
		PostgresHost:     cfg.Database.Host,
		PostgresPort:     cfg.Database.Port,
		PostgresUser:     cfg.Database.User,
		PostgresPassword: cfg.Database.Password,
		PostgresName:     cfg.Database.Name,
		PostgresSSLMode:  cfg.Database.SSLMode,
		SQLitePath:       cfg.Database.SQLitePath,
		MaxOpenConns:     cfg.Database.MaxOpenConns,
		MaxIdleConns:     cfg.Database.MaxIdleConns,
		ConnMaxLifetime:  cfg.Database.lifetime(),
	}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(a.DB.DB()); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	a.Hub = realtime.NewSSEHub(log)
	a.Bus, a.redis, err = wireBus(cfg.Redis, log, a.Hub)
	if err != nil {
		a.Close()
		return nil, err
	}
	bucket, err := wireBucket(ctx, cfg.Storage, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init content bucket: %w", err)
	}
	gateway, err := wireGateway(cfg.Midtrans, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init midtrans: %w", err)
	}

	a.Services = NewServices(ServiceDeps{
		DB:       a.DB.DB(),
		Log:      log,
		Metrics:  a.Metrics,
		Emitter:  &services.BusEmitter{Bus: a.Bus, Log: log, Metrics: a.Metrics},
		Bucket:   bucket,
		Gateway:  gateway,
		Storage:  cfg.Storage,
		Currency: cfg.Midtrans.Currency,
	})

	checks := map[string]httpH.Pinger{}
	if sqlDB, err := a.DB.DB().DB(); err == nil {
		checks["database"] = pingFunc(sqlDB)
	}
	if a.redis != nil {
		rdb := a.redis
		checks["redis"] = httpH.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	a.Server = httpapi.NewServer(NewRouterConfig(cfg, log, a.Metrics, a.Services, a.Hub, checks))
	return a, nil
}

// Run blocks until ctx is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB())
	a.Metrics.StartRedisCollector(ctx, a.Log, a.redis)

	g.Go(func() error {
		a.Log.Info("http server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run(ctx, a.Cfg.HTTPAddr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("close realtime bus", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
