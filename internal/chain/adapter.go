package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"custody-core/internal/model"
	"custody-core/pkg/hdwallet"
)

// Balances 某个地址上的资产快照
type Balances struct {
	Native decimal.Decimal // 原生币 (TRX/ETH/BNB/POL/SOL/BTC)
	Token  decimal.Decimal // USDT (Bitcoin 链恒为 0)
}

// Transfer 链上入账事件的统一表示
type Transfer struct {
	TxHash        string
	FromAddress   string
	Amount        decimal.Decimal
	TokenSymbol   string
	Confirmations uint64
}

// Adapter 每条链实现一次的统一能力面 (策略模式)
// 编排方 (DepositMonitor / SweeperService) 只依赖该接口，
// 除了选择 Adapter 以外不出现任何链相关分支。
//
// 失败语义: 任何 RPC 错误都视为瞬态，不得污染本地状态；
// 调用方按"下个周期重试"处理并继续其他地址。
type Adapter interface {
	// Network 返回该实例服务的链
	Network() model.Network

	// GetBalance 查询地址的原生币与 USDT 余额
	GetBalance(ctx context.Context, addr string) (Balances, error)

	// ListIncomingTransfers 发现打到该地址的入账
	// sinceHint 是尽力而为的游标 (扫描窗口起点)，实现可以忽略;
	// 超时/未找到必须返回错误而不是空结果，否则会造成静默漏账
	ListIncomingTransfers(ctx context.Context, addr string, sinceHint time.Time) ([]Transfer, error)

	// GetConfirmations 返回交易确认数，未确认/未知返回 0
	GetConfirmations(ctx context.Context, txHash string) (uint64, error)

	// BroadcastTransfer 用给定密钥签名并广播一笔转账，返回 txHash
	// key 是一次性材料，调用结束即弃
	BroadcastTransfer(ctx context.Context, key *hdwallet.Key, to string, amount decimal.Decimal) (string, error)
}

// Registry 启动时构造一次的 Adapter 集合，按链名索引
type Registry map[model.Network]Adapter

// Get 取出某条链的 Adapter
func (r Registry) Get(n model.Network) (Adapter, error) {
	a, ok := r[n]
	if !ok {
		return nil, fmt.Errorf("链 %s 没有已注册的 adapter", n)
	}
	return a, nil
}

// toBaseUnits 十进制金额转链上最小单位
func toBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// fromBaseUnits 链上最小单位转十进制金额
func fromBaseUnits(units *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units, 0).Shift(-decimals)
}
