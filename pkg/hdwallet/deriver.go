package hdwallet

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/mr-tron/base58"

	"custody-core/pkg/address"
	"custody-core/pkg/errno"
)

// BIP-44 coin type 常量
const (
	CoinTypeBitcoin = 0
	CoinTypeEVM     = 60
	CoinTypeTron    = 195
	CoinTypeSolana  = 501
)

// HotWalletIndex 预留给热钱包的派生索引
// 用户索引由 Redis INCR 从 1 开始分配，0 永远不会派发给用户
const HotWalletIndex = 0

// DerivedAddress 一次派生的结果
type DerivedAddress struct {
	Address string
	Path    string
}

// Key 一次性密钥材料: 只在单次签名/广播操作的生命周期内存在，
// 不落库、不打日志，用完即丢
type Key struct {
	Path    string
	Address string
	ECDSA   *btcec.PrivateKey  // secp256k1 链 (EVM/Tron/Bitcoin)
	Ed25519 ed25519.PrivateKey // Solana
}

// Deriver 按 (network, index) 确定性派生充值地址与签名密钥
// 种子延迟加载: 配置缺失只会让用到它的那次操作失败，不影响进程启动
type Deriver struct {
	seedFn func() ([]byte, error)
	params *chaincfg.Params

	once   sync.Once
	seed   []byte
	wallet *Wallet
	err    error

	ethGen  *address.ETHGenerator
	btcGen  *address.BTCGenerator
	tronGen *address.TronGenerator
}

// NewDeriver 构造派生器
// seedFn: 返回 BIP-39 种子的回调 (从助记词或加密 keystore 解出)
// params: 比特币网络参数，nil 默认主网; 同一部署必须统一主网/测试网
func NewDeriver(seedFn func() ([]byte, error), params *chaincfg.Params) *Deriver {
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	return &Deriver{
		seedFn:  seedFn,
		params:  params,
		ethGen:  address.NewETHGenerator(),
		btcGen:  address.NewBTCGenerator(params),
		tronGen: address.NewTronGenerator(),
	}
}

func (d *Deriver) init() error {
	d.once.Do(func() {
		if d.seedFn == nil {
			d.err = errno.ErrMasterSeedMissing
			return
		}
		seed, err := d.seedFn()
		if err != nil {
			d.err = fmt.Errorf("加载主种子失败: %w", err)
			return
		}
		if len(seed) == 0 {
			d.err = errno.ErrMasterSeedMissing
			return
		}
		d.seed = seed
		d.wallet, d.err = NewMasterKeyFromSeed(seed, d.params)
	})
	return d.err
}

// PathFor 返回 (network, index) 的标准派生路径
func PathFor(network string, index uint32) (string, error) {
	switch network {
	case "ethereum", "bsc", "polygon":
		return fmt.Sprintf("m/44'/%d'/%d'/0/0", CoinTypeEVM, index), nil
	case "tron":
		return fmt.Sprintf("m/44'/%d'/%d'/0/0", CoinTypeTron, index), nil
	case "bitcoin":
		return fmt.Sprintf("m/44'/%d'/%d'/0/0", CoinTypeBitcoin, index), nil
	case "solana":
		return fmt.Sprintf("m/44'/%d'/%d'/0'", CoinTypeSolana, index), nil
	default:
		return "", fmt.Errorf("不支持的链: %s", network)
	}
}

// Derive 派生 (network, index) 的充值地址
// 确定性保证: 相同入参永远得到相同地址
func (d *Deriver) Derive(network string, index uint32) (DerivedAddress, error) {
	path, err := PathFor(network, index)
	if err != nil {
		return DerivedAddress{}, err
	}
	if err := d.init(); err != nil {
		return DerivedAddress{}, err
	}

	// Solana 走 SLIP-10 Ed25519，地址就是公钥的 Base58
	if network == "solana" {
		priv, err := DeriveEd25519(d.seed, path)
		if err != nil {
			return DerivedAddress{}, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		return DerivedAddress{Address: base58.Encode(pub), Path: path}, nil
	}

	key, err := d.wallet.DerivePath(path)
	if err != nil {
		return DerivedAddress{}, err
	}
	pubKey, err := key.ECPubKey()
	if err != nil {
		return DerivedAddress{}, err
	}

	var addr string
	switch network {
	case "ethereum", "bsc", "polygon":
		addr, err = d.ethGen.PubKeyToAddress(pubKey.SerializeUncompressed())
	case "tron":
		addr, err = d.tronGen.PubKeyToAddress(pubKey.SerializeUncompressed())
	case "bitcoin":
		addr, err = d.btcGen.PubKeyToAddress(pubKey.SerializeCompressed())
	}
	if err != nil {
		return DerivedAddress{}, fmt.Errorf("地址生成失败: %w", err)
	}
	return DerivedAddress{Address: addr, Path: path}, nil
}

// PrivateKey 派生 (network, index) 的签名密钥材料
// !! 安全不变式: 返回值仅供当次签名使用，调用方不得持久化或记录 !!
func (d *Deriver) PrivateKey(network string, index uint32) (*Key, error) {
	derived, err := d.Derive(network, index)
	if err != nil {
		return nil, err
	}

	if network == "solana" {
		priv, err := DeriveEd25519(d.seed, derived.Path)
		if err != nil {
			return nil, err
		}
		return &Key{Path: derived.Path, Address: derived.Address, Ed25519: priv}, nil
	}

	key, err := d.wallet.DerivePath(derived.Path)
	if err != nil {
		return nil, err
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return &Key{Path: derived.Path, Address: derived.Address, ECDSA: priv}, nil
}
