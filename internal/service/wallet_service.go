package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"custody-core/internal/model"
	"custody-core/pkg/cache"
	"custody-core/pkg/errno"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
)

// addrIndexKey 全局派生序号计数器。
// 所有链共用一个序号，保证 (user, network) 的地址互不冲突且可审计；
// 计数器从 1 开始，index 0 保留给各链热钱包。
const addrIndexKey = "custody:addr_index"

// WalletService 负责给用户分配充值地址。
// 同一个用户在同一条链上只有一个地址，重复请求返回已有记录。
type WalletService struct {
	db      *gorm.DB
	redis   *redis.Client
	deriver *hdwallet.Deriver
	cache   cache.Cache
}

func NewWalletService(db *gorm.DB, rdb *redis.Client, deriver *hdwallet.Deriver, c cache.Cache) *WalletService {
	return &WalletService{db: db, redis: rdb, deriver: deriver, cache: c}
}

func walletCacheKey(userID uint64, network model.Network) string {
	return fmt.Sprintf("custody:wallet:%d:%s", userID, network)
}

// GetOrCreateWallet 获取 (必要时创建) 用户在某条链上的当前充值地址。
// 同一 (user, network) 可能因 regenerate 留有多行历史，序号最大的一行是当前地址。
// 并发下的安全性: Redis INCR 原子分配派生序号，多实例不会撞号；
// 并发重复创建最多多出一行历史记录，以序号最大者为准。
func (s *WalletService) GetOrCreateWallet(ctx context.Context, userID uint64, network model.Network) (*model.Wallet, error) {
	if !network.Valid() {
		return nil, errno.ErrUnsupportedNetwork
	}

	// 地址分配后只会被 regenerate 顶替，先走多级缓存
	var cached model.Wallet
	if s.cache != nil {
		if err := s.cache.Get(ctx, walletCacheKey(userID, network), &cached); err == nil && cached.ID != 0 {
			return &cached, nil
		}
	}

	var existing model.Wallet
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND network = ?", userID, network).
		Order("address_index DESC").
		First(&existing).Error
	if err == nil {
		if s.cache != nil {
			_ = s.cache.Set(ctx, walletCacheKey(userID, network), &existing, time.Hour)
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("查询钱包失败: %w", err)
	}

	return s.issueWallet(ctx, userID, network)
}

// RegenerateAddress 给用户换一个新的充值地址。
// 旧行保留: 历史地址上的后续入账仍会被扫描入账，派生路径也可追溯
func (s *WalletService) RegenerateAddress(ctx context.Context, userID uint64, network model.Network) (*model.Wallet, error) {
	if !network.Valid() {
		return nil, errno.ErrUnsupportedNetwork
	}
	return s.issueWallet(ctx, userID, network)
}

// issueWallet 分配新序号并落库，写穿缓存
func (s *WalletService) issueWallet(ctx context.Context, userID uint64, network model.Network) (*model.Wallet, error) {
	index, err := s.redis.Incr(ctx, addrIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("Redis 分配派生序号失败: %w", err)
	}

	derived, err := s.deriver.Derive(string(network), uint32(index))
	if err != nil {
		return nil, fmt.Errorf("派生地址失败: %w", err)
	}

	wallet := model.Wallet{
		UserID:         userID,
		Network:        network,
		AddressIndex:   uint32(index),
		DepositAddress: derived.Address,
		Path:           derived.Path,
	}
	if err := s.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("创建钱包失败: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, walletCacheKey(userID, network), &wallet, time.Hour)
	}

	logger.Info("分配充值地址",
		zap.Uint64("user_id", userID),
		zap.String("network", string(network)),
		zap.Uint32("index", wallet.AddressIndex),
		zap.String("address", wallet.DepositAddress))
	return &wallet, nil
}

// ListWallets 用户已分配的所有充值地址
func (s *WalletService) ListWallets(ctx context.Context, userID uint64) ([]model.Wallet, error) {
	var wallets []model.Wallet
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("network").
		Find(&wallets).Error
	return wallets, err
}
