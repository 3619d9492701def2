package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SORA112117/At00-sub000/config"
	"github.com/SORA112117/At00-sub000/internal/service"
	"github.com/SORA112117/At00-sub000/pkg/notify"
	"github.com/SORA112117/At00-sub000/pkg/redis"
)

// startup 并行连接 Redis 与初始化默认学期，两者都结束后前台加载派生状态
// Redis 可选，连接失败只保留进程内通知，返回的客户端为 nil
func startup(
	ctx context.Context,
	cfg *config.Config,
	svc *service.Service,
	coordinator *notify.Coordinator,
	now time.Time,
	logger *zap.Logger,
) (*redis.Client, error) {
	var rdb *redis.Client

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Redis.Enabled {
		g.Go(func() error {
			client, err := redis.NewClient(&cfg.Redis, logger)
			if err != nil {
				logger.Warn("Redis 连接失败，变更广播不可用", zap.Error(err))
				return nil
			}
			rdb = client
			return nil
		})
	}
	g.Go(func() error {
		created, err := svc.Semester.Bootstrap(gctx, now)
		if err != nil {
			return fmt.Errorf("初始化默认学期失败: %w", err)
		}
		if created {
			logger.Info("已创建默认学期")
		}
		return nil
	})

	closeRedis := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	if err := g.Wait(); err != nil {
		closeRedis()
		return nil, err
	}

	if rdb != nil {
		coordinator.Subscribe(rdb.Listener())
	}
	if err := svc.Load(ctx); err != nil {
		closeRedis()
		return nil, fmt.Errorf("加载派生状态失败: %w", err)
	}
	return rdb, nil
}
