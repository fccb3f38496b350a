package events

import (
	"context"
	"fmt"
	"strings"
)

// Config 选择事件驱动及其参数。
type Config struct {
	Driver   string
	Buffer   int
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

// New 根据配置创建事件发布器。
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemoryPublisher(cfg.Buffer), nil
	case "none":
		return NopPublisher{}, nil
	case "redis":
		return NewRedisPublisher(ctx, cfg.Redis)
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", cfg.Driver)
	}
}
