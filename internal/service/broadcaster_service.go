package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"custody-core/internal/chain"
	"custody-core/internal/event"
	"custody-core/internal/model"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
)

// BroadcasterService 把审核通过的提现单搬到链上。
// 热钱包私钥按需从主种子派生 (index 0)，用完即弃。
//
// 失败处理分两类:
//   - 广播前的错误 (派生/组装/余额查询): 回退 approved，下个周期重试
//   - 广播本身的错误: 交易可能已经上链，停在 processing 等人工核对，
//     绝不能自动重发，否则可能双花热钱包资金
type BroadcasterService struct {
	db       *gorm.DB
	adapters chain.Registry
	deriver  *hdwallet.Deriver
}

func NewBroadcasterService(db *gorm.DB, adapters chain.Registry, deriver *hdwallet.Deriver) *BroadcasterService {
	return &BroadcasterService{db: db, adapters: adapters, deriver: deriver}
}

// ProcessApproved 一轮广播巡检: 逐笔认领 approved 的提现单并上链
func (s *BroadcasterService) ProcessApproved(ctx context.Context) {
	var ids []uint64
	if err := s.db.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("status = ?", model.WithdrawalStatusApproved).
		Order("created_at").Limit(20).
		Pluck("id", &ids).Error; err != nil {
		logger.Error("查询待广播提现失败", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := s.broadcastOne(ctx, id); err != nil {
			logger.Error("广播提现失败",
				zap.Uint64("withdrawal_id", id),
				zap.Error(err))
		}
	}
}

func (s *BroadcasterService) broadcastOne(ctx context.Context, id uint64) error {
	// 第一段事务: 认领，approved -> processing
	// 认领和广播分开，广播的网络耗时不占着行锁
	var w model.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&w, "id = ?", id).Error; err != nil {
			return err
		}
		if w.Status != model.WithdrawalStatusApproved {
			return nil
		}
		w.Status = model.WithdrawalStatusProcessing
		return tx.Save(&w).Error
	})
	if err != nil || w.Status != model.WithdrawalStatusProcessing {
		return err
	}

	adapter, err := s.adapters.Get(w.Network)
	if err != nil {
		return s.revertToApproved(ctx, w.ID, err)
	}
	key, err := s.deriver.PrivateKey(string(w.Network), hdwallet.HotWalletIndex)
	if err != nil {
		return s.revertToApproved(ctx, w.ID, err)
	}

	// 手续费在申请时已额外扣除，链上实付申请金额
	txHash, err := adapter.BroadcastTransfer(ctx, key, w.ToAddress, w.Amount)
	if err != nil {
		// 广播结果不确定，可能已上链。停在 processing 等人工处理
		if monitor.Business != nil {
			monitor.Business.AdapterErrorsTotal.WithLabelValues(string(w.Network), "broadcast").Inc()
		}
		return err
	}

	// 第二段事务: 落地结果，processing -> completed
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&model.Withdrawal{}).
			Where("id = ?", w.ID).
			Updates(map[string]interface{}{
				"status":       model.WithdrawalStatusCompleted,
				"tx_hash":      txHash,
				"processed_at": &now,
			}).Error; err != nil {
			return err
		}
		return model.CreateOutboxMessage(tx, event.TopicWithdrawals, strconv.FormatUint(w.UserID, 10),
			event.WithdrawalCompletedEvent{
				Event:        "withdrawal.completed",
				WithdrawalID: w.ID,
				UserID:       w.UserID,
				Network:      string(w.Network),
				TxHash:       txHash,
				Amount:       w.Amount.String(),
			})
	})
	if err != nil {
		// 链上已成功但本地没记上，日志里留全量信息供恢复
		logger.Error("提现已上链但状态落库失败",
			zap.Uint64("withdrawal_id", w.ID),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return err
	}

	if monitor.Business != nil {
		amountF, _ := w.Amount.Float64()
		monitor.Business.WithdrawAmountTotal.WithLabelValues(string(w.Network)).Add(amountF)
	}
	logger.Info("提现已完成",
		zap.Uint64("withdrawal_id", w.ID),
		zap.String("network", string(w.Network)),
		zap.String("tx_hash", txHash))
	return nil
}

// revertToApproved 广播前失败的回退，单子回到 approved 等下轮重试
func (s *BroadcasterService) revertToApproved(ctx context.Context, id uint64, cause error) error {
	if err := s.db.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawalStatusProcessing).
		Update("status", model.WithdrawalStatusApproved).Error; err != nil {
		logger.Error("回退提现状态失败", zap.Uint64("withdrawal_id", id), zap.Error(err))
	}
	return cause
}
