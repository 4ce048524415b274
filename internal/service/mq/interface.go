package mq

import "context"

// Producer 事件投递接口，由 RelayService 驱动。
// 下游 (风控 / 通知 / 报表) 自行消费对应 topic。
type Producer interface {
	// Publish 发送消息
	// key 用于分区排序 (例如 UserID)，同一 key 的消息保证有序；传空随机分区
	Publish(ctx context.Context, topic string, key string, payload []byte) error

	// Close 释放底层连接
	Close() error
}
