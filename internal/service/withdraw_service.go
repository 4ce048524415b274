package service

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"custody-core/internal/event"
	"custody-core/internal/model"
	"custody-core/pkg/config"
	"custody-core/pkg/errno"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
)

// 各链地址的格式校验，只做形式检查，不做链上存在性检查
var (
	evmAddrRe    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	tronAddrRe   = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	solanaAddrRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	btcAddrRe    = regexp.MustCompile(`^(bc1[02-9ac-hj-np-z]{11,71}|[13][1-9A-HJ-NP-Za-km-z]{25,34})$`)
)

// ValidateAddress 按链校验提现地址格式
func ValidateAddress(network model.Network, addr string) bool {
	switch network {
	case model.NetworkEthereum, model.NetworkBSC, model.NetworkPolygon:
		return evmAddrRe.MatchString(addr)
	case model.NetworkTron:
		return tronAddrRe.MatchString(addr)
	case model.NetworkSolana:
		return solanaAddrRe.MatchString(addr)
	case model.NetworkBitcoin:
		return btcAddrRe.MatchString(addr)
	}
	return false
}

// WithdrawService 提现申请与人工审核。
// 状态机: pending -> approved -> processing -> completed
//         pending -> rejected (补偿入账)
//         非终态 -> failed
type WithdrawService struct {
	db     *gorm.DB
	ledger *LedgerService
	cfg    *config.Config
}

func NewWithdrawService(db *gorm.DB, ledger *LedgerService, cfg *config.Config) *WithdrawService {
	return &WithdrawService{db: db, ledger: ledger, cfg: cfg}
}

// Request 创建提现申请。
// 余额在申请时一次性扣除 amount + fee，审核拒绝再全额补偿回去，
// 这样审核期间用户不能重复花同一笔钱。链上实付 amount。
func (s *WithdrawService) Request(ctx context.Context, userID uint64, network model.Network, toAddress string, amount decimal.Decimal) (*model.Withdrawal, error) {
	nc, ok := s.cfg.Networks[string(network)]
	if !network.Valid() || !ok {
		return nil, errno.ErrUnsupportedNetwork
	}
	if !amount.IsPositive() {
		return nil, errno.ErrInvalidAmount
	}
	if amount.GreaterThan(s.cfg.Custody.PerTransactionLimit) {
		return nil, errno.ErrAmountTooLarge
	}
	if !ValidateAddress(network, toAddress) {
		return nil, errno.ErrInvalidAddress
	}

	var withdrawal *model.Withdrawal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 滚动 24 小时累计限额: 统计未被拒绝/失败的申请
		windowStart := time.Now().Add(-24 * time.Hour)
		var used decimal.Decimal
		if err := tx.Model(&model.Withdrawal{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("user_id = ? AND created_at >= ? AND status NOT IN ?",
				userID, windowStart, []string{model.WithdrawalStatusRejected, model.WithdrawalStatusFailed}).
			Scan(&used).Error; err != nil {
			return err
		}
		if used.Add(amount).GreaterThan(s.cfg.Custody.DailyTotalLimit) {
			return errno.ErrDailyLimitExceeded
		}

		totalCost := amount.Add(nc.WithdrawalFee)
		if err := s.ledger.debitInTx(tx, userID, totalCost, model.TxTypeWithdraw,
			"提现申请 "+string(network)); err != nil {
			return err
		}

		// 比特币网络出金走原生 BTC，其余链统一 USDT
		symbol := "USDT"
		if network == model.NetworkBitcoin {
			symbol = "BTC"
		}
		w := model.Withdrawal{
			UserID:      userID,
			Network:     network,
			ToAddress:   toAddress,
			Amount:      amount,
			Fee:         nc.WithdrawalFee,
			TokenSymbol: symbol,
			Status:      model.WithdrawalStatusPending,
		}
		// 小额直接放行，免去人工审核
		if amount.LessThanOrEqual(s.cfg.Custody.AutoApproveLimit) {
			w.Status = model.WithdrawalStatusApproved
			w.ReviewedBy = "auto"
		}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}

		if err := model.CreateOutboxMessage(tx, event.TopicWithdrawals, strconv.FormatUint(userID, 10),
			event.WithdrawalRequestedEvent{
				Event:        "withdrawal.requested",
				WithdrawalID: w.ID,
				UserID:       userID,
				Network:      string(network),
				Amount:       amount.String(),
				Status:       w.Status,
			}); err != nil {
			return err
		}
		withdrawal = &w
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("提现申请已创建",
		zap.Uint64("withdrawal_id", withdrawal.ID),
		zap.Uint64("user_id", userID),
		zap.String("network", string(network)),
		zap.String("amount", amount.String()),
		zap.String("status", withdrawal.Status))
	return withdrawal, nil
}

// Approve 审核通过: pending -> approved，等待广播巡检发起链上转账
func (s *WithdrawService) Approve(ctx context.Context, id uint64, admin, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w model.Withdrawal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&w, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errno.ErrWithdrawalNotFound
			}
			return err
		}
		if w.Status != model.WithdrawalStatusPending {
			return errno.ErrInvalidStateChange
		}

		w.Status = model.WithdrawalStatusApproved
		w.ReviewedBy = admin
		w.AdminNote = note
		return tx.Save(&w).Error
	})
}

// Reject 审核拒绝: pending -> rejected，并把扣掉的 amount + fee 补偿回去
func (s *WithdrawService) Reject(ctx context.Context, id uint64, admin, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w model.Withdrawal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&w, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errno.ErrWithdrawalNotFound
			}
			return err
		}
		if w.Status != model.WithdrawalStatusPending {
			return errno.ErrInvalidStateChange
		}

		if err := s.ledger.creditInTx(tx, w.UserID, w.Amount.Add(w.Fee), model.TxTypeWithdraw,
			"提现被拒绝，余额返还"); err != nil {
			return err
		}

		w.Status = model.WithdrawalStatusRejected
		w.ReviewedBy = admin
		w.AdminNote = note
		if err := tx.Save(&w).Error; err != nil {
			return err
		}

		if err := model.CreateOutboxMessage(tx, event.TopicWithdrawals, strconv.FormatUint(w.UserID, 10),
			event.WithdrawalRejectedEvent{
				Event:        "withdrawal.rejected",
				WithdrawalID: w.ID,
				UserID:       w.UserID,
				Amount:       w.Amount.String(),
			}); err != nil {
			return err
		}

		if monitor.Business != nil {
			monitor.Business.WithdrawRejectedTotal.WithLabelValues(string(w.Network)).Inc()
		}
		return nil
	})
}

// ListPending 审核队列
func (s *WithdrawService) ListPending(ctx context.Context) ([]model.Withdrawal, error) {
	var list []model.Withdrawal
	err := s.db.WithContext(ctx).
		Where("status = ?", model.WithdrawalStatusPending).
		Order("created_at").
		Find(&list).Error
	return list, err
}

// ListByUser 用户自己的提现历史
func (s *WithdrawService) ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]model.Withdrawal, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64
	query := s.db.WithContext(ctx).Model(&model.Withdrawal{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Withdrawal
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&list).Error
	return list, total, err
}
