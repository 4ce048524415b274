package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"custody-core/internal/model"
	"custody-core/pkg/errno"
)

func newTestDeposit(uid uint64, status string, amount string) model.Deposit {
	return model.Deposit{
		TxHash:                fmt.Sprintf("tx-%s-%d", status, uid),
		WalletID:              1,
		UserID:                uid,
		Network:               model.NetworkTron,
		Amount:                decimal.RequireFromString(amount),
		TokenSymbol:           "USDT",
		RequiredConfirmations: 20,
		Status:                status,
	}
}

// 重复触发入账只会加钱一次，这是确认巡检可以放心重试的前提
func TestCreditDepositExactlyOnce(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	dep := newTestDeposit(uid, model.DepositStatusConfirmed, "50")
	if err := db.Create(&dep).Error; err != nil {
		t.Fatalf("建充值单失败: %v", err)
	}

	if err := ledger.CreditDeposit(ctx, dep.ID); err != nil {
		t.Fatalf("首次入账失败: %v", err)
	}
	if err := ledger.CreditDeposit(ctx, dep.ID); err != nil {
		t.Fatalf("重复入账应当是 no-op: %v", err)
	}

	balance, err := ledger.GetBalance(ctx, uid)
	if err != nil {
		t.Fatalf("查余额失败: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("50")) {
		t.Errorf("余额应为 50, 实际 %s", balance)
	}

	var count int64
	db.Model(&model.Transaction{}).Where("user_id = ?", uid).Count(&count)
	if count != 1 {
		t.Errorf("应只有一条流水, 实际 %d", count)
	}

	var got model.Deposit
	if err := db.First(&got, dep.ID).Error; err != nil {
		t.Fatalf("回读充值单失败: %v", err)
	}
	if got.Status != model.DepositStatusCredited || got.CreditedAt == nil {
		t.Errorf("充值单应为 credited 且带入账时间: %+v", got)
	}
}

func TestCreditDepositRequiresConfirmed(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	dep := newTestDeposit(uid, model.DepositStatusPending, "30")
	if err := db.Create(&dep).Error; err != nil {
		t.Fatalf("建充值单失败: %v", err)
	}

	if err := ledger.CreditDeposit(ctx, dep.ID); err != errno.ErrInvalidStateChange {
		t.Errorf("未确认的充值入账应拒绝, 实际 %v", err)
	}
	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.IsZero() {
		t.Errorf("未入账不应产生余额: %s", balance)
	}
}

// 余额恒等于带符号流水之和
func TestLedgerBalanceMatchesTransactions(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	if err := ledger.ApplyCredit(ctx, uid, decimal.RequireFromString("100"), model.TxTypeBetWin, "派彩"); err != nil {
		t.Fatalf("入账失败: %v", err)
	}
	if err := ledger.ApplyDebit(ctx, uid, decimal.RequireFromString("30"), model.TxTypeBetPlace, "下注"); err != nil {
		t.Fatalf("扣款失败: %v", err)
	}
	if err := ledger.ApplyCredit(ctx, uid, decimal.RequireFromString("7.5"), model.TxTypeBetRefund, "退款"); err != nil {
		t.Fatalf("入账失败: %v", err)
	}

	balance, err := ledger.GetBalance(ctx, uid)
	if err != nil {
		t.Fatalf("查余额失败: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("77.5")) {
		t.Errorf("余额应为 77.5, 实际 %s", balance)
	}

	var sum decimal.Decimal
	if err := db.Model(&model.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", uid).
		Scan(&sum).Error; err != nil {
		t.Fatalf("汇总流水失败: %v", err)
	}
	if !sum.Equal(balance) {
		t.Errorf("流水之和 %s 与余额 %s 不一致", sum, balance)
	}
}

func TestApplyDebitInsufficient(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	// 没有余额行的用户直接拒绝
	if err := ledger.ApplyDebit(ctx, uid, decimal.NewFromInt(1), model.TxTypeBetPlace, "下注"); err != errno.ErrInsufficientBalance {
		t.Errorf("无余额扣款应拒绝, 实际 %v", err)
	}

	if err := ledger.ApplyCredit(ctx, uid, decimal.NewFromInt(10), model.TxTypeBetWin, "派彩"); err != nil {
		t.Fatalf("入账失败: %v", err)
	}
	if err := ledger.ApplyDebit(ctx, uid, decimal.NewFromInt(20), model.TxTypeBetPlace, "下注"); err != errno.ErrInsufficientBalance {
		t.Errorf("超额扣款应拒绝, 实际 %v", err)
	}

	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("失败的扣款不应影响余额: %s", balance)
	}
	var count int64
	db.Model(&model.Transaction{}).Where("user_id = ?", uid).Count(&count)
	if count != 1 {
		t.Errorf("失败的扣款不应留下流水, 实际 %d 条", count)
	}
}
