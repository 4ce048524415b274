package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sweep 资金归集记录
// 每次向热钱包广播一笔归集交易就落一行，tx_hash 唯一防止重复记账
type Sweep struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletID    uint64          `gorm:"not null;index" json:"wallet_id"`
	Network     Network         `gorm:"type:varchar(20);not null" json:"network"`
	TxHash      string          `gorm:"type:varchar(128);not null;uniqueIndex" json:"tx_hash"`
	FromAddress string          `gorm:"type:varchar(128);not null" json:"from_address"`
	ToAddress   string          `gorm:"type:varchar(128);not null" json:"to_address"` // 热钱包地址
	Amount      decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"amount"`
	TokenSymbol string          `gorm:"type:varchar(16);not null" json:"token_symbol"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"` // pending, confirmed, failed
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

const (
	SweepStatusPending   = "pending"
	SweepStatusConfirmed = "confirmed"
	SweepStatusFailed    = "failed"
)

func (Sweep) TableName() string {
	return "sweeps"
}
