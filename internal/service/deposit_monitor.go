package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"custody-core/internal/chain"
	"custody-core/internal/model"
	"custody-core/pkg/config"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
)

// depositLookback 入账发现的时间窗口。
// 比扫描周期大得多，单次 RPC 抖动漏掉的入账后续轮次还能捞回来，
// tx_hash 唯一索引保证重复发现不会重复建单。
const depositLookback = 24 * time.Hour

// DepositMonitor 轮询式充值监控，分两道巡检:
//   - ScanDeposits: 逐地址发现新入账，建 pending 充值单
//   - ConfirmDeposits: 跟踪在途充值的确认数，达标后触发入账
type DepositMonitor struct {
	db       *gorm.DB
	adapters chain.Registry
	ledger   *LedgerService
	cfg      *config.Config
}

func NewDepositMonitor(db *gorm.DB, adapters chain.Registry, ledger *LedgerService, cfg *config.Config) *DepositMonitor {
	return &DepositMonitor{db: db, adapters: adapters, ledger: ledger, cfg: cfg}
}

// ScanDeposits 一轮入账发现
func (m *DepositMonitor) ScanDeposits(ctx context.Context) {
	if monitor.Business != nil {
		timer := prometheus.NewTimer(monitor.Business.ScanJobDuration.WithLabelValues("discover"))
		defer timer.ObserveDuration()
	}

	for network, adapter := range m.adapters {
		if err := m.scanNetwork(ctx, network, adapter); err != nil {
			logger.Error("入账扫描失败",
				zap.String("network", string(network)),
				zap.Error(err))
		}
	}
}

func (m *DepositMonitor) scanNetwork(ctx context.Context, network model.Network, adapter chain.Adapter) error {
	nc := m.cfg.Networks[string(network)]
	since := time.Now().Add(-depositLookback)

	// 分批遍历该链的所有充值地址
	var wallets []model.Wallet
	err := m.db.WithContext(ctx).
		Where("network = ?", network).
		FindInBatches(&wallets, 200, func(_ *gorm.DB, _ int) error {
			for i := range wallets {
				m.scanWallet(ctx, adapter, nc, &wallets[i], since)
			}
			return nil
		}).Error
	return err
}

func (m *DepositMonitor) scanWallet(ctx context.Context, adapter chain.Adapter, nc config.NetworkConfig, wallet *model.Wallet, since time.Time) {
	transfers, err := adapter.ListIncomingTransfers(ctx, wallet.DepositAddress, since)
	if err != nil {
		// 单个地址失败不拖垮整轮扫描，下个周期重试
		if monitor.Business != nil {
			monitor.Business.AdapterErrorsTotal.WithLabelValues(string(wallet.Network), "list_transfers").Inc()
		}
		logger.Warn("拉取入账失败",
			zap.String("network", string(wallet.Network)),
			zap.String("address", wallet.DepositAddress),
			zap.Error(err))
		return
	}

	for _, t := range transfers {
		if !m.accepted(wallet.Network, t.TokenSymbol) {
			continue
		}
		// 低于最小充值额的直接忽略，不建单
		if t.Amount.LessThan(nc.MinDeposit) {
			continue
		}

		deposit := model.Deposit{
			TxHash:                t.TxHash,
			WalletID:              wallet.ID,
			UserID:                wallet.UserID,
			Network:               wallet.Network,
			FromAddress:           t.FromAddress,
			Amount:                t.Amount,
			TokenSymbol:           t.TokenSymbol,
			Confirmations:         t.Confirmations,
			RequiredConfirmations: nc.RequiredConfirmations,
			Status:                model.DepositStatusPending,
		}
		// tx_hash 唯一索引: 已存在的单子这里不会重复创建
		result := m.db.WithContext(ctx).
			Where("tx_hash = ?", t.TxHash).
			FirstOrCreate(&deposit)
		if result.Error != nil {
			logger.Error("创建充值单失败",
				zap.String("tx_hash", t.TxHash),
				zap.Error(result.Error))
			continue
		}
		if result.RowsAffected > 0 {
			logger.Info("发现新充值",
				zap.String("network", string(wallet.Network)),
				zap.Uint64("user_id", wallet.UserID),
				zap.String("tx_hash", t.TxHash),
				zap.String("amount", t.Amount.String()))
		}
	}
}

// accepted 该链上允许入账的币种
func (m *DepositMonitor) accepted(network model.Network, symbol string) bool {
	if network == model.NetworkBitcoin {
		return symbol == "BTC"
	}
	return symbol == "USDT"
}

// ConfirmDeposits 一轮确认巡检，确认数达标的充值单推进到 confirmed 并入账。
// confirmed 也在巡检范围内: 上一轮状态已推进但入账失败的单子，
// 这一轮直接补记账，不会有确认达标却永远不到账的充值。
func (m *DepositMonitor) ConfirmDeposits(ctx context.Context) {
	if monitor.Business != nil {
		timer := prometheus.NewTimer(monitor.Business.ScanJobDuration.WithLabelValues("confirm"))
		defer timer.ObserveDuration()
	}

	var deposits []model.Deposit
	err := m.db.WithContext(ctx).
		Where("status IN ?", []string{model.DepositStatusPending, model.DepositStatusConfirming, model.DepositStatusConfirmed}).
		Limit(200).
		Find(&deposits).Error
	if err != nil {
		logger.Error("查询在途充值失败", zap.Error(err))
		return
	}

	for i := range deposits {
		m.confirmOne(ctx, &deposits[i])
	}
}

func (m *DepositMonitor) confirmOne(ctx context.Context, deposit *model.Deposit) {
	// 已 confirmed 未入账的单子不用再查链，直接重试记账
	if deposit.Status == model.DepositStatusConfirmed {
		if err := m.ledger.CreditDeposit(ctx, deposit.ID); err != nil {
			logger.Error("充值入账失败",
				zap.Uint64("deposit_id", deposit.ID),
				zap.Error(err))
		}
		return
	}

	adapter, err := m.adapters.Get(deposit.Network)
	if err != nil {
		logger.Error("充值单对应的链未注册", zap.String("network", string(deposit.Network)))
		return
	}

	confs, err := adapter.GetConfirmations(ctx, deposit.TxHash)
	if err != nil {
		if monitor.Business != nil {
			monitor.Business.AdapterErrorsTotal.WithLabelValues(string(deposit.Network), "confirmations").Inc()
		}
		logger.Warn("查询确认数失败",
			zap.String("tx_hash", deposit.TxHash),
			zap.Error(err))
		return
	}

	updates := map[string]interface{}{"confirmations": confs}
	switch {
	case confs >= deposit.RequiredConfirmations:
		updates["status"] = model.DepositStatusConfirmed
	case confs > 0:
		updates["status"] = model.DepositStatusConfirming
	}
	// 只推进未入账的单子，和 CreditDeposit 的状态复核互为兜底
	if err := m.db.WithContext(ctx).Model(&model.Deposit{}).
		Where("id = ? AND status IN ?", deposit.ID,
			[]string{model.DepositStatusPending, model.DepositStatusConfirming}).
		Updates(updates).Error; err != nil {
		logger.Error("更新充值确认数失败",
			zap.String("tx_hash", deposit.TxHash),
			zap.Error(err))
		return
	}

	if confs >= deposit.RequiredConfirmations {
		if err := m.ledger.CreditDeposit(ctx, deposit.ID); err != nil {
			logger.Error("充值入账失败",
				zap.Uint64("deposit_id", deposit.ID),
				zap.Error(err))
		}
	}
}
