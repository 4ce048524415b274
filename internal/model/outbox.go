package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// OutboxMessage 本地消息表 (Transactional Outbox)
// 账本变更与事件写入同一个数据库事务，RelayService 负责搬运到 MQ
type OutboxMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string    `gorm:"type:varchar(128);not null" json:"topic"`
	Key       string    `gorm:"type:varchar(64)" json:"key"` // 分区键 (UserID)，保证同一用户事件有序
	Payload   []byte    `gorm:"type:text;not null" json:"payload"`
	Status    string    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"` // PENDING, SENT
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// CreateOutboxMessage 在调用方事务内写入一条待投递事件
func CreateOutboxMessage(tx *gorm.DB, topic string, key string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := OutboxMessage{
		Topic:   topic,
		Key:     key,
		Payload: payloadBytes,
		Status:  "PENDING",
	}
	return tx.Create(&msg).Error
}
