package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"custody-core/internal/model"
	"custody-core/pkg/config"
	"custody-core/pkg/errno"
)

const testEVMAddr = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"

func withdrawTestConfig() *config.Config {
	return &config.Config{
		Custody: config.CustodyConfig{
			PerTransactionLimit: decimal.RequireFromString("5000"),
			DailyTotalLimit:     decimal.RequireFromString("10000"),
			AutoApproveLimit:    decimal.RequireFromString("100"),
		},
		Networks: map[string]config.NetworkConfig{
			"ethereum": {
				WithdrawalFee:         decimal.RequireFromString("5"),
				RequiredConfirmations: 12,
			},
		},
	}
}

func newWithdrawEnv(t *testing.T, cfg *config.Config) (*WithdrawService, *LedgerService, uint64) {
	t.Helper()
	db := testDB(t)
	ledger := NewLedgerService(db)
	return NewWithdrawService(db, ledger, cfg), ledger, testUserID()
}

// 申请时扣 amount + fee，链上实付 amount
func TestWithdrawRequestDebitsAmountPlusFee(t *testing.T) {
	svc, ledger, uid := newWithdrawEnv(t, withdrawTestConfig())
	ctx := context.Background()

	if err := ledger.ApplyCredit(ctx, uid, decimal.RequireFromString("200"), model.TxTypeDeposit, "期初余额"); err != nil {
		t.Fatalf("铺底余额失败: %v", err)
	}

	w, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("80"))
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if !w.Amount.Equal(decimal.RequireFromString("80")) || !w.Fee.Equal(decimal.RequireFromString("5")) {
		t.Errorf("金额/手续费不匹配: amount=%s fee=%s", w.Amount, w.Fee)
	}

	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("115")) {
		t.Errorf("余额应扣除 85 剩 115, 实际 %s", balance)
	}
}

// 小额自动放行的边界: 等于阈值放行，超过进入人工审核
func TestWithdrawAutoApproveBoundary(t *testing.T) {
	svc, ledger, uid := newWithdrawEnv(t, withdrawTestConfig())
	ctx := context.Background()

	if err := ledger.ApplyCredit(ctx, uid, decimal.RequireFromString("500"), model.TxTypeDeposit, "期初余额"); err != nil {
		t.Fatalf("铺底余额失败: %v", err)
	}

	atLimit, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("100"))
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if atLimit.Status != model.WithdrawalStatusApproved || atLimit.ReviewedBy != "auto" {
		t.Errorf("等于阈值的申请应自动放行: status=%s reviewed_by=%s", atLimit.Status, atLimit.ReviewedBy)
	}

	overLimit, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("101"))
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if overLimit.Status != model.WithdrawalStatusPending {
		t.Errorf("超过阈值的申请应进入审核队列, 实际 %s", overLimit.Status)
	}
}

// 拒绝恰好返还 amount + fee 一次，二次拒绝被状态机挡住
func TestWithdrawRejectRefundsExactly(t *testing.T) {
	svc, ledger, uid := newWithdrawEnv(t, withdrawTestConfig())
	ctx := context.Background()

	if err := ledger.ApplyCredit(ctx, uid, decimal.RequireFromString("500"), model.TxTypeDeposit, "期初余额"); err != nil {
		t.Fatalf("铺底余额失败: %v", err)
	}

	w, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("150"))
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("345")) {
		t.Fatalf("申请后余额应为 345, 实际 %s", balance)
	}

	if err := svc.Reject(ctx, w.ID, "ops", "风控拦截"); err != nil {
		t.Fatalf("审核拒绝失败: %v", err)
	}
	balance, _ = ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("500")) {
		t.Errorf("拒绝后余额应完整返还到 500, 实际 %s", balance)
	}

	if err := svc.Reject(ctx, w.ID, "ops", "重复操作"); err != errno.ErrInvalidStateChange {
		t.Errorf("二次拒绝应被拒, 实际 %v", err)
	}
	balance, _ = ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("500")) {
		t.Errorf("二次拒绝不应再次返还: %s", balance)
	}
}

// 滚动 24 小时限额拦截时整个申请回滚，不扣钱不建单
func TestWithdrawDailyLimit(t *testing.T) {
	cfg := withdrawTestConfig()
	cfg.Custody.DailyTotalLimit = decimal.RequireFromString("200")
	svc, ledger, uid := newWithdrawEnv(t, cfg)
	ctx := context.Background()

	if err := ledger.ApplyCredit(ctx, uid, decimal.RequireFromString("1000"), model.TxTypeDeposit, "期初余额"); err != nil {
		t.Fatalf("铺底余额失败: %v", err)
	}

	if _, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("150")); err != nil {
		t.Fatalf("首笔申请失败: %v", err)
	}
	_, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("100"))
	if err != errno.ErrDailyLimitExceeded {
		t.Fatalf("超出当日限额应拒绝, 实际 %v", err)
	}

	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("845")) {
		t.Errorf("被拒申请不应扣款, 余额应为 845, 实际 %s", balance)
	}
	var count int64
	svc.db.Model(&model.Withdrawal{}).Where("user_id = ?", uid).Count(&count)
	if count != 1 {
		t.Errorf("被拒申请不应留下提现单, 实际 %d 张", count)
	}
}

func TestWithdrawInsufficientBalanceNoRow(t *testing.T) {
	svc, _, uid := newWithdrawEnv(t, withdrawTestConfig())
	ctx := context.Background()

	_, err := svc.Request(ctx, uid, model.NetworkEthereum, testEVMAddr, decimal.RequireFromString("50"))
	if err != errno.ErrInsufficientBalance {
		t.Fatalf("余额不足应拒绝, 实际 %v", err)
	}
	var count int64
	svc.db.Model(&model.Withdrawal{}).Where("user_id = ?", uid).Count(&count)
	if count != 0 {
		t.Errorf("余额不足不应留下提现单, 实际 %d 张", count)
	}
}
