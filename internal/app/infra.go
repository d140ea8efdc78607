package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/courseflow-backend/internal/platform/gcp"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
	"github.com/yungbote/courseflow-backend/internal/platform/midtrans"
	"github.com/yungbote/courseflow-backend/internal/realtime"
	"github.com/yungbote/courseflow-backend/internal/realtime/bus"
)

// wireBus returns the redis bus when configured, else an in-process one.
func wireBus(cfg RedisConfig, log *logger.Logger, hub *realtime.SSEHub) (bus.Bus, *goredis.Client, error) {
	if cfg.Addr == "" {
		log.Info("realtime bus: in-process")
		return bus.Local{Hub: hub}, nil, nil
	}
	b, err := bus.NewRedisBus(bus.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Channel:  cfg.Channel,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis bus: %w", err)
	}
	log.Info("realtime bus: redis", "addr", cfg.Addr, "channel", cfg.Channel)
	var rdb *goredis.Client
	if c, ok := b.(interface{ Client() *goredis.Client }); ok {
		rdb = c.Client()
	}
	return b, rdb, nil
}

func wireBucket(ctx context.Context, cfg StorageConfig, log *logger.Logger) (gcp.ContentBucket, error) {
	if cfg.Bucket == "" {
		log.Info("content bucket not configured; content urls pass through")
		return nil, nil
	}
	storage, err := gcp.ResolveObjectStorageConfig(cfg.Mode, cfg.EmulatorHost)
	if err != nil {
		return nil, err
	}
	return gcp.NewContentBucket(ctx, log, gcp.BucketConfig{
		Name:          cfg.Bucket,
		CDNDomain:     cfg.CDNDomain,
		PublicBaseURL: cfg.PublicBaseURL,
		Credentials:   cfg.Credentials,
		Storage:       storage,
	})
}

func wireGateway(cfg MidtransConfig, log *logger.Logger) (midtrans.Gateway, error) {
	if cfg.ServerKey == "" {
		log.Warn("midtrans not configured; checkout disabled")
		return nil, nil
	}
	return midtrans.New(log, midtrans.Config{
		ServerKey:  cfg.ServerKey,
		Production: cfg.Production,
	})
}
