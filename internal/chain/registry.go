package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"

	"custody-core/internal/model"
	"custody-core/pkg/config"
)

// NewRegistry 按配置逐链构造 Adapter。
// 未出现在配置里的链不注册，调用方拿不到 adapter 自然跳过。
func NewRegistry(cfg *config.Config) (Registry, error) {
	registry := make(Registry, len(cfg.Networks))

	for name, nc := range cfg.Networks {
		network := model.Network(name)
		if !network.Valid() {
			return nil, fmt.Errorf("配置了不支持的链: %s", name)
		}

		var (
			adapter Adapter
			err     error
		)
		switch network {
		case model.NetworkEthereum, model.NetworkBSC, model.NetworkPolygon:
			adapter, err = NewEVMAdapter(network, nc.RpcURL, nc.UsdtContract, nc.ChainID, nc.TokenDecimals)
		case model.NetworkTron:
			adapter = NewTronAdapter(nc.RpcURL, nc.UsdtContract, nc.TokenDecimals)
		case model.NetworkSolana:
			adapter, err = NewSolanaAdapter(nc.RpcURL, nc.UsdtContract)
		case model.NetworkBitcoin:
			adapter = NewBitcoinAdapter(nc.ExplorerURL, &chaincfg.MainNetParams)
		}
		if err != nil {
			return nil, fmt.Errorf("初始化 %s adapter 失败: %w", name, err)
		}
		if adapter != nil {
			registry[network] = adapter
		}
	}
	return registry, nil
}
