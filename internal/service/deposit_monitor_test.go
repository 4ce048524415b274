package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"custody-core/internal/chain"
	"custody-core/internal/model"
	"custody-core/pkg/config"
	"custody-core/pkg/hdwallet"
)

// stubAdapter 固定确认数的链桩
type stubAdapter struct {
	network model.Network
	confs   uint64
}

func (s stubAdapter) Network() model.Network { return s.network }

func (s stubAdapter) GetBalance(context.Context, string) (chain.Balances, error) {
	return chain.Balances{Native: decimal.Zero, Token: decimal.Zero}, nil
}

func (s stubAdapter) ListIncomingTransfers(context.Context, string, time.Time) ([]chain.Transfer, error) {
	return nil, nil
}

func (s stubAdapter) GetConfirmations(context.Context, string) (uint64, error) {
	return s.confs, nil
}

func (s stubAdapter) BroadcastTransfer(context.Context, *hdwallet.Key, string, decimal.Decimal) (string, error) {
	return "", nil
}

func TestConfirmDepositsCreditsAtThreshold(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	dep := newTestDeposit(uid, model.DepositStatusPending, "25")
	if err := db.Create(&dep).Error; err != nil {
		t.Fatalf("建充值单失败: %v", err)
	}

	adapters := chain.Registry{
		model.NetworkTron: stubAdapter{network: model.NetworkTron, confs: 20},
	}
	m := NewDepositMonitor(db, adapters, ledger, &config.Config{})
	m.ConfirmDeposits(ctx)

	var got model.Deposit
	if err := db.First(&got, dep.ID).Error; err != nil {
		t.Fatalf("回读充值单失败: %v", err)
	}
	if got.Status != model.DepositStatusCredited {
		t.Errorf("确认数达标后应入账, 实际状态 %s", got.Status)
	}
	if got.Confirmations != 20 {
		t.Errorf("确认数应更新为 20, 实际 %d", got.Confirmations)
	}
	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("25")) {
		t.Errorf("入账后余额应为 25, 实际 %s", balance)
	}
}

func TestConfirmDepositsBelowThreshold(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	dep := newTestDeposit(uid, model.DepositStatusPending, "25")
	if err := db.Create(&dep).Error; err != nil {
		t.Fatalf("建充值单失败: %v", err)
	}

	adapters := chain.Registry{
		model.NetworkTron: stubAdapter{network: model.NetworkTron, confs: 5},
	}
	m := NewDepositMonitor(db, adapters, ledger, &config.Config{})
	m.ConfirmDeposits(ctx)

	var got model.Deposit
	if err := db.First(&got, dep.ID).Error; err != nil {
		t.Fatalf("回读充值单失败: %v", err)
	}
	if got.Status != model.DepositStatusConfirming {
		t.Errorf("确认数不足应停在 confirming, 实际 %s", got.Status)
	}
	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.IsZero() {
		t.Errorf("确认数不足不应入账: %s", balance)
	}
}

// 状态已推进到 confirmed 但记账没成功的单子 (比如两步之间崩溃)，
// 下一轮巡检直接补记账，不依赖链上查询
func TestConfirmDepositsRetriesUncredited(t *testing.T) {
	db := testDB(t)
	ledger := NewLedgerService(db)
	ctx := context.Background()
	uid := testUserID()

	dep := newTestDeposit(uid, model.DepositStatusConfirmed, "40")
	dep.Confirmations = 20
	if err := db.Create(&dep).Error; err != nil {
		t.Fatalf("建充值单失败: %v", err)
	}

	m := NewDepositMonitor(db, chain.Registry{}, ledger, &config.Config{})
	m.ConfirmDeposits(ctx)

	var got model.Deposit
	if err := db.First(&got, dep.ID).Error; err != nil {
		t.Fatalf("回读充值单失败: %v", err)
	}
	if got.Status != model.DepositStatusCredited {
		t.Errorf("confirmed 未入账的单子应被补记账, 实际状态 %s", got.Status)
	}
	balance, _ := ledger.GetBalance(ctx, uid)
	if !balance.Equal(decimal.RequireFromString("40")) {
		t.Errorf("补记账后余额应为 40, 实际 %s", balance)
	}
}
