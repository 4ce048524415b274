package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Network 支持的链枚举 (封闭集合，新增链需同时提供 Adapter 实现)
type Network string

const (
	NetworkTron     Network = "tron"
	NetworkEthereum Network = "ethereum"
	NetworkBSC      Network = "bsc"
	NetworkPolygon  Network = "polygon"
	NetworkSolana   Network = "solana"
	NetworkBitcoin  Network = "bitcoin"
)

// AllNetworks 返回全部支持的链 (顺序固定，便于遍历)
func AllNetworks() []Network {
	return []Network{
		NetworkTron,
		NetworkEthereum,
		NetworkBSC,
		NetworkPolygon,
		NetworkSolana,
		NetworkBitcoin,
	}
}

// Valid 判断是否为已知链
func (n Network) Valid() bool {
	switch n {
	case NetworkTron, NetworkEthereum, NetworkBSC, NetworkPolygon, NetworkSolana, NetworkBitcoin:
		return true
	}
	return false
}

// Wallet 用户充值地址表
// 核心设计: address_index 是跨用户/跨链的全局递增计数器 (Redis INCR 分配)，
// 保证派生路径永不冲突。同一 (user_id, network) 以 address_index 最大的一条为当前地址，
// regenerate 保留旧行作为历史。
type Wallet struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint64    `gorm:"not null;index:idx_user_network" json:"user_id"`
	Network        Network   `gorm:"type:varchar(20);not null;index:idx_user_network" json:"network"`
	AddressIndex   uint32    `gorm:"not null;uniqueIndex" json:"address_index"`
	DepositAddress string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_network_address" json:"deposit_address"`
	Path           string    `gorm:"type:varchar(64);not null" json:"path"` // BIP-44 派生路径
	CreatedAt      time.Time `json:"created_at"`
}

// Deposit 充值记录表; tx_hash 全局唯一，是幂等入账的天然约束
type Deposit struct {
	ID                    uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TxHash                string          `gorm:"type:varchar(128);not null;uniqueIndex" json:"tx_hash"`
	WalletID              uint64          `gorm:"not null;index" json:"wallet_id"`
	UserID                uint64          `gorm:"not null;index" json:"user_id"`
	Network               Network         `gorm:"type:varchar(20);not null;index" json:"network"`
	FromAddress           string          `gorm:"type:varchar(128)" json:"from_address"`
	Amount                decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"amount"`
	TokenSymbol           string          `gorm:"type:varchar(16);not null" json:"token_symbol"`
	Confirmations         uint64          `gorm:"not null;default:0" json:"confirmations"`
	RequiredConfirmations uint64          `gorm:"not null" json:"required_confirmations"`
	Status                string          `gorm:"type:varchar(20);not null;index" json:"status"`
	CreditedAt            *time.Time      `json:"credited_at,omitempty"`
	SweepTxHash           string          `gorm:"type:varchar(128)" json:"sweep_tx_hash,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// Deposit 状态机: 只允许前进
// pending -> confirming -> confirmed -> credited (终态)
// 任意未入账状态 -> failed (终态)
const (
	DepositStatusPending    = "pending"
	DepositStatusConfirming = "confirming"
	DepositStatusConfirmed  = "confirmed"
	DepositStatusCredited   = "credited"
	DepositStatusFailed     = "failed"
)

// Withdrawal 提现记录表
type Withdrawal struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64          `gorm:"not null;index" json:"user_id"`
	Network     Network         `gorm:"type:varchar(20);not null" json:"network"`
	ToAddress   string          `gorm:"type:varchar(128);not null" json:"to_address"`
	Amount      decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"amount"`
	Fee         decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"fee"`
	TokenSymbol string          `gorm:"type:varchar(16);not null" json:"token_symbol"`
	Status      string          `gorm:"type:varchar(20);not null;index" json:"status"`
	TxHash      string          `gorm:"type:varchar(128)" json:"tx_hash,omitempty"`
	ReviewedBy  string          `gorm:"type:varchar(64)" json:"reviewed_by,omitempty"`
	AdminNote   string          `gorm:"type:text" json:"admin_note,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Withdrawal 状态机:
// pending -> approved -> processing -> completed (终态)
// pending -> rejected (终态, 触发补偿入账)
// 任意非终态 -> failed (终态)
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusApproved   = "approved"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
	WithdrawalStatusFailed     = "failed"
)

// Balance 用户余额表 (USDT 计价)
// 只允许 LedgerService 在行锁事务内修改，且必须同事务写入一条 Transaction
type Balance struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64          `gorm:"not null;uniqueIndex" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(32,8);not null;default:0" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction 追加式流水表
// 不变式: 每个用户带符号金额之和恒等于 Balance.Amount
type Transaction struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64          `gorm:"not null;index" json:"user_id"`
	Type        string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"amount"` // 带符号
	Description string          `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

const (
	TxTypeDeposit   = "deposit"
	TxTypeWithdraw  = "withdraw"
	TxTypeBetPlace  = "bet_place"
	TxTypeBetWin    = "bet_win"
	TxTypeBetRefund = "bet_refund"
)

func (Wallet) TableName() string {
	return "wallets"
}

func (Deposit) TableName() string {
	return "deposits"
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}

func (Balance) TableName() string {
	return "balances"
}

func (Transaction) TableName() string {
	return "transactions"
}
