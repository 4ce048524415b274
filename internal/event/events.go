package event

// 事件经由本地消息表投递到 MQ，消费方按 (topic, 事件名) 路由。
// 金额一律传 decimal 字符串，避免下游 float 精度踩坑。

const (
	TopicDeposits    = "deposit_events"
	TopicWithdrawals = "withdrawal_events"
)

// DepositCreditedEvent 充值入账完成
type DepositCreditedEvent struct {
	Event     string `json:"event"` // "deposit.credited"
	DepositID uint64 `json:"deposit_id"`
	UserID    uint64 `json:"user_id"`
	Network   string `json:"network"`
	TxHash    string `json:"tx_hash"`
	Amount    string `json:"amount"`
}

// WithdrawalRequestedEvent 提现申请创建 (含小额自动放行)
type WithdrawalRequestedEvent struct {
	Event        string `json:"event"` // "withdrawal.requested"
	WithdrawalID uint64 `json:"withdrawal_id"`
	UserID       uint64 `json:"user_id"`
	Network      string `json:"network"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
}

// WithdrawalRejectedEvent 审核拒绝，余额已返还
type WithdrawalRejectedEvent struct {
	Event        string `json:"event"` // "withdrawal.rejected"
	WithdrawalID uint64 `json:"withdrawal_id"`
	UserID       uint64 `json:"user_id"`
	Amount       string `json:"amount"`
}

// WithdrawalCompletedEvent 链上转账已广播成功
type WithdrawalCompletedEvent struct {
	Event        string `json:"event"` // "withdrawal.completed"
	WithdrawalID uint64 `json:"withdrawal_id"`
	UserID       uint64 `json:"user_id"`
	Network      string `json:"network"`
	TxHash       string `json:"tx_hash"`
	Amount       string `json:"amount"`
}
