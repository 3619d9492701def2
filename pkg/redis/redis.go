package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SORA112117/At00-sub000/config"
	"github.com/SORA112117/At00-sub000/pkg/notify"
)

// publishTimeout 单次广播的超时时间
const publishTimeout = 2 * time.Second

// Client Redis 客户端封装
// 用于将数据变更信号广播给进程外的观察者
type Client struct {
	rdb     goredis.UniversalClient
	channel string
	logger  *zap.Logger
}

// ChangeMessage 广播到频道上的消息体
type ChangeMessage struct {
	Kind      string    `json:"kind"`
	EmittedAt time.Time `json:"emitted_at"`
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))

	return NewWithClient(rdb, cfg.Channel, logger), nil
}

// NewWithClient 使用已有连接创建 Client（测试或共享连接时使用）
func NewWithClient(rdb goredis.UniversalClient, channel string, logger *zap.Logger) *Client {
	if channel == "" {
		channel = "attendance:changes"
	}
	return &Client{rdb: rdb, channel: channel, logger: logger}
}

// ── 变更广播 ──

// PublishChange 将一次变更信号发布到频道
func (c *Client) PublishChange(ctx context.Context, kind notify.Kind) error {
	payload, err := json.Marshal(ChangeMessage{Kind: string(kind), EmittedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("序列化变更消息失败: %w", err)
	}
	return c.rdb.Publish(ctx, c.channel, payload).Err()
}

// Listener 返回可注册到 notify.Coordinator 的观察者
// 广播失败只记录日志，不影响进程内观察者
func (c *Client) Listener() notify.Listener {
	return func(kind notify.Kind) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := c.PublishChange(ctx, kind); err != nil {
			c.logger.Warn("广播数据变更失败", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}

// Subscribe 订阅变更频道（供进程外观察者或测试使用）
func (c *Client) Subscribe(ctx context.Context) *goredis.PubSub {
	return c.rdb.Subscribe(ctx, c.channel)
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
