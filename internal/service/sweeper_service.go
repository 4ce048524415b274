package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"custody-core/internal/chain"
	"custody-core/internal/model"
	"custody-core/pkg/config"
	"custody-core/pkg/errno"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
)

// SweepResult 单个充值地址的归集结果
type SweepResult struct {
	WalletID uint64          `json:"wallet_id"`
	Network  model.Network   `json:"network"`
	Address  string          `json:"address"`
	Amount   decimal.Decimal `json:"amount"`
	TxHash   string          `json:"tx_hash,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// SweepSummary 一轮归集的汇总
type SweepSummary struct {
	Results    []SweepResult   `json:"results"`
	TotalSwept decimal.Decimal `json:"total_swept"`
}

// DepositBalance 单个充值地址的链上余额快照
type DepositBalance struct {
	WalletID uint64          `json:"wallet_id"`
	UserID   uint64          `json:"user_id"`
	Network  model.Network   `json:"network"`
	Address  string          `json:"address"`
	Native   decimal.Decimal `json:"native"`
	Token    decimal.Decimal `json:"token"`
}

// SweeperService 把充值地址上的资金归集到热钱包。
// 归集是资金运营动作，链上失败不影响用户余额 (入账早已完成)，
// 失败的地址记录在结果里，下一轮重试。
type SweeperService struct {
	db       *gorm.DB
	adapters chain.Registry
	deriver  *hdwallet.Deriver
	cfg      *config.Config
}

func NewSweeperService(db *gorm.DB, adapters chain.Registry, deriver *hdwallet.Deriver, cfg *config.Config) *SweeperService {
	return &SweeperService{db: db, adapters: adapters, deriver: deriver, cfg: cfg}
}

// SweepAll 一轮归集: 遍历每条链的所有充值地址，余额为正的整额转到热钱包。
// 单个地址的失败只记入结果，不中断整轮
func (s *SweeperService) SweepAll(ctx context.Context) SweepSummary {
	summary := SweepSummary{TotalSwept: decimal.Zero}
	for network, adapter := range s.adapters {
		s.sweepNetwork(ctx, network, adapter, &summary)
	}
	return summary
}

func (s *SweeperService) sweepNetwork(ctx context.Context, network model.Network, adapter chain.Adapter, summary *SweepSummary) {
	if monitor.Business != nil {
		timer := prometheus.NewTimer(monitor.Business.SweepJobDuration.WithLabelValues(string(network)))
		defer timer.ObserveDuration()
	}

	hotWallet, err := s.hotWalletAddress(network)
	if err != nil {
		logger.Error("获取热钱包地址失败",
			zap.String("network", string(network)), zap.Error(err))
		summary.Results = append(summary.Results, SweepResult{
			Network: network,
			Error:   err.Error(),
		})
		return
	}

	var wallets []model.Wallet
	err = s.db.WithContext(ctx).
		Where("network = ?", network).
		FindInBatches(&wallets, 200, func(_ *gorm.DB, _ int) error {
			for i := range wallets {
				result := s.sweepWallet(ctx, adapter, &wallets[i], hotWallet)
				if result == nil {
					continue // 余额为零，跳过
				}
				summary.Results = append(summary.Results, *result)
				if result.TxHash != "" {
					summary.TotalSwept = summary.TotalSwept.Add(result.Amount)
				}
			}
			return nil
		}).Error
	if err != nil {
		logger.Error("遍历充值地址失败",
			zap.String("network", string(network)), zap.Error(err))
	}
}

// sweepWallet 归集单个地址，余额为零返回 nil
func (s *SweeperService) sweepWallet(ctx context.Context, adapter chain.Adapter, wallet *model.Wallet, hotWallet string) *SweepResult {
	result := &SweepResult{
		WalletID: wallet.ID,
		Network:  wallet.Network,
		Address:  wallet.DepositAddress,
	}

	balances, err := adapter.GetBalance(ctx, wallet.DepositAddress)
	if err != nil {
		if monitor.Business != nil {
			monitor.Business.AdapterErrorsTotal.WithLabelValues(string(wallet.Network), "balance").Inc()
		}
		result.Error = err.Error()
		return result
	}

	amount := balances.Token
	symbol := "USDT"
	if wallet.Network == model.NetworkBitcoin {
		amount = balances.Native
		symbol = "BTC"
	}
	if !amount.IsPositive() {
		return nil
	}
	result.Amount = amount

	key, err := s.deriver.PrivateKey(string(wallet.Network), wallet.AddressIndex)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	txHash, err := adapter.BroadcastTransfer(ctx, key, hotWallet, amount)
	if err != nil {
		if monitor.Business != nil {
			monitor.Business.AdapterErrorsTotal.WithLabelValues(string(wallet.Network), "broadcast").Inc()
		}
		result.Error = err.Error()
		logger.Warn("归集失败，留待下轮",
			zap.String("network", string(wallet.Network)),
			zap.String("address", wallet.DepositAddress),
			zap.Error(err))
		return result
	}
	result.TxHash = txHash

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sweep := model.Sweep{
			WalletID:    wallet.ID,
			Network:     wallet.Network,
			TxHash:      txHash,
			FromAddress: wallet.DepositAddress,
			ToAddress:   hotWallet,
			Amount:      amount,
			TokenSymbol: symbol,
			Status:      model.SweepStatusPending,
		}
		if err := tx.Create(&sweep).Error; err != nil {
			return err
		}
		// 该地址已入账的充值单归于本次归集
		return tx.Model(&model.Deposit{}).
			Where("wallet_id = ? AND status = ? AND sweep_tx_hash = ''",
				wallet.ID, model.DepositStatusCredited).
			Update("sweep_tx_hash", txHash).Error
	})
	if err != nil {
		// 链上已转出但审计行没落库，日志留全量信息供核对
		logger.Error("归集已上链但落库失败",
			zap.String("tx_hash", txHash), zap.Error(err))
		result.Error = err.Error()
		return result
	}

	if monitor.Business != nil {
		amountF, _ := amount.Float64()
		monitor.Business.SweepAmountTotal.WithLabelValues(string(wallet.Network)).Add(amountF)
	}
	logger.Info("归集完成",
		zap.String("network", string(wallet.Network)),
		zap.String("from", wallet.DepositAddress),
		zap.String("tx_hash", txHash),
		zap.String("amount", amount.String()))
	return result
}

// ConfirmSweeps 跟踪归集交易的确认状态
func (s *SweeperService) ConfirmSweeps(ctx context.Context) {
	var sweeps []model.Sweep
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.SweepStatusPending).
		Limit(100).Find(&sweeps).Error; err != nil {
		logger.Error("查询在途归集失败", zap.Error(err))
		return
	}
	for i := range sweeps {
		sw := &sweeps[i]
		adapter, err := s.adapters.Get(sw.Network)
		if err != nil {
			continue
		}
		nc := s.cfg.Networks[string(sw.Network)]
		confs, err := adapter.GetConfirmations(ctx, sw.TxHash)
		if err != nil || confs < nc.RequiredConfirmations {
			continue
		}
		if err := s.db.WithContext(ctx).Model(sw).
			Update("status", model.SweepStatusConfirmed).Error; err != nil {
			logger.Error("更新归集状态失败", zap.String("tx_hash", sw.TxHash), zap.Error(err))
		}
	}
}

// hotWalletAddress 热钱包地址: 配置优先，缺省派生保留序号 0
func (s *SweeperService) hotWalletAddress(network model.Network) (string, error) {
	if nc, ok := s.cfg.Networks[string(network)]; ok && nc.HotWallet != "" {
		return nc.HotWallet, nil
	}
	derived, err := s.deriver.Derive(string(network), hdwallet.HotWalletIndex)
	if err != nil {
		return "", fmt.Errorf("%w (%s): %v", errno.ErrHotWalletUnset, network, err)
	}
	return derived.Address, nil
}

// HotWalletBalances 各链热钱包余额，供运维巡查备付金
func (s *SweeperService) HotWalletBalances(ctx context.Context) map[model.Network]chain.Balances {
	result := make(map[model.Network]chain.Balances, len(s.adapters))
	for network, adapter := range s.adapters {
		addr, err := s.hotWalletAddress(network)
		if err != nil {
			continue
		}
		balances, err := adapter.GetBalance(ctx, addr)
		if err != nil {
			logger.Warn("查询热钱包余额失败",
				zap.String("network", string(network)), zap.Error(err))
			continue
		}
		result[network] = balances
	}
	return result
}

// AllDepositBalances 全部充值地址的链上余额快照，运维排查资金滞留用
func (s *SweeperService) AllDepositBalances(ctx context.Context) ([]DepositBalance, error) {
	var snapshots []DepositBalance
	var wallets []model.Wallet
	err := s.db.WithContext(ctx).
		FindInBatches(&wallets, 200, func(_ *gorm.DB, _ int) error {
			for i := range wallets {
				w := &wallets[i]
				adapter, err := s.adapters.Get(w.Network)
				if err != nil {
					continue
				}
				balances, err := adapter.GetBalance(ctx, w.DepositAddress)
				if err != nil {
					logger.Warn("查询充值地址余额失败",
						zap.String("address", w.DepositAddress), zap.Error(err))
					continue
				}
				snapshots = append(snapshots, DepositBalance{
					WalletID: w.ID,
					UserID:   w.UserID,
					Network:  w.Network,
					Address:  w.DepositAddress,
					Native:   balances.Native,
					Token:    balances.Token,
				})
			}
			return nil
		}).Error
	return snapshots, err
}
