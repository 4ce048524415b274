package service

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"custody-core/internal/event"
	"custody-core/internal/model"
	"custody-core/pkg/errno"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
)

// LedgerService 平台内部账本的唯一入口。
// 核心不变量: balances.amount 恒等于该用户 transactions 带符号金额之和，
// 这是靠"所有余额变更都在一个事务里同时写 balances 和 transactions"保证的，
// 任何绕过本服务直接 UPDATE balances 的代码都是 bug。
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// creditInTx 在调用方事务内给用户加钱
// 余额行按 user_id 懒创建，并发下靠行锁串行化
func (s *LedgerService) creditInTx(tx *gorm.DB, userID uint64, amount decimal.Decimal, txType, desc string) error {
	var balance model.Balance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&balance).Error
	if err == gorm.ErrRecordNotFound {
		balance = model.Balance{UserID: userID, Amount: decimal.Zero}
		if err := tx.Create(&balance).Error; err != nil {
			return err
		}
		// 重新加锁，防止并发创建后读到旧值
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&balance).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	balance.Amount = balance.Amount.Add(amount)
	if err := tx.Save(&balance).Error; err != nil {
		return err
	}
	return tx.Create(&model.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: desc,
	}).Error
}

// debitInTx 在调用方事务内给用户扣钱，余额不足返回业务错误
func (s *LedgerService) debitInTx(tx *gorm.DB, userID uint64, amount decimal.Decimal, txType, desc string) error {
	var balance model.Balance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&balance).Error
	if err == gorm.ErrRecordNotFound {
		return errno.ErrInsufficientBalance
	}
	if err != nil {
		return err
	}
	if balance.Amount.LessThan(amount) {
		return errno.ErrInsufficientBalance
	}

	balance.Amount = balance.Amount.Sub(amount)
	if err := tx.Save(&balance).Error; err != nil {
		return err
	}
	return tx.Create(&model.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount.Neg(),
		Description: desc,
	}).Error
}

// ApplyCredit 独立事务加钱 (投注派彩 / 退款等场景)
func (s *LedgerService) ApplyCredit(ctx context.Context, userID uint64, amount decimal.Decimal, txType, desc string) error {
	if !amount.IsPositive() {
		return errno.ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.creditInTx(tx, userID, amount, txType, desc)
	})
}

// ApplyDebit 独立事务扣钱 (投注下注等场景)
func (s *LedgerService) ApplyDebit(ctx context.Context, userID uint64, amount decimal.Decimal, txType, desc string) error {
	if !amount.IsPositive() {
		return errno.ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.debitInTx(tx, userID, amount, txType, desc)
	})
}

// CreditDeposit 把一笔已确认的充值入账。
// 恰好一次语义的三道防线:
// 1. deposits.tx_hash 唯一索引挡住重复发现
// 2. FOR UPDATE 行锁串行化并发的入账尝试
// 3. 锁内复核状态，已 credited 的直接当 no-op 返回
func (s *LedgerService) CreditDeposit(ctx context.Context, depositID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deposit model.Deposit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&deposit, "id = ?", depositID).Error; err != nil {
			return err
		}

		if deposit.Status == model.DepositStatusCredited {
			logger.Debug("充值已入账，跳过", zap.Uint64("deposit_id", depositID))
			return nil
		}
		if deposit.Status != model.DepositStatusConfirmed {
			return errno.ErrInvalidStateChange
		}

		if err := s.creditInTx(tx, deposit.UserID, deposit.Amount, model.TxTypeDeposit,
			"链上充值 "+deposit.TxHash); err != nil {
			return err
		}

		now := time.Now()
		deposit.Status = model.DepositStatusCredited
		deposit.CreditedAt = &now
		if err := tx.Save(&deposit).Error; err != nil {
			return err
		}

		if err := model.CreateOutboxMessage(tx, event.TopicDeposits, strconv.FormatUint(deposit.UserID, 10),
			event.DepositCreditedEvent{
				Event:     "deposit.credited",
				DepositID: deposit.ID,
				UserID:    deposit.UserID,
				Network:   string(deposit.Network),
				TxHash:    deposit.TxHash,
				Amount:    deposit.Amount.String(),
			}); err != nil {
			return err
		}

		if monitor.Business != nil {
			monitor.Business.DepositCreditedTotal.WithLabelValues(string(deposit.Network)).Inc()
			amountF, _ := deposit.Amount.Float64()
			monitor.Business.DepositAmountTotal.WithLabelValues(string(deposit.Network)).Add(amountF)
		}

		logger.Info("充值入账完成",
			zap.Uint64("deposit_id", deposit.ID),
			zap.Uint64("user_id", deposit.UserID),
			zap.String("network", string(deposit.Network)),
			zap.String("amount", deposit.Amount.String()))
		return nil
	})
}

// GetBalance 查询用户可用余额，没有余额行视为 0
func (s *LedgerService) GetBalance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	var balance model.Balance
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Amount, nil
}

// ListTransactions 用户流水，按时间倒序分页
func (s *LedgerService) ListTransactions(ctx context.Context, userID uint64, page, pageSize int) ([]model.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64
	query := s.db.WithContext(ctx).Model(&model.Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []model.Transaction
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}
