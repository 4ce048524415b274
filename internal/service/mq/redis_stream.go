package mq

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisProducer 基于 Redis Streams 的 Producer 实现
// 单机部署不想拉 Kafka 时的轻量选项，配置 redis.mq_type = "redis" 启用
type RedisProducer struct {
	client *redis.Client
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// Publish XADD 到以 topic 命名的 stream
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// Close Redis 连接由外层统一管理，这里无事可做
func (p *RedisProducer) Close() error {
	return nil
}
