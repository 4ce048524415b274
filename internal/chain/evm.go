package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"custody-core/internal/model"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
)

// erc20TransferTopic = keccak256("Transfer(address,address,uint256)")
var erc20TransferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// transferSelector = keccak256("transfer(address,uint256)")[:4]
var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// balanceOfSelector = keccak256("balanceOf(address)")[:4]
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// evmLookbackBlocks 入账发现的扫描窗口，覆盖两个扫描周期之间
// 可能产生的区块数并留足余量
const evmLookbackBlocks = 5000

// EVMAdapter 同一套代码服务 ethereum/bsc/polygon 三条链，
// 只有 rpcURL / chainID / USDT 合约地址 / 精度不同。
// USDT 以 ERC-20 Transfer 事件发现入账，以 EIP-1559 交易发起转账。
type EVMAdapter struct {
	network   model.Network
	client    *ethclient.Client
	chainID   *big.Int
	usdt      common.Address
	decimals  int32
	gasLimit  uint64
}

// NewEVMAdapter 连接 RPC 节点并构造 adapter
func NewEVMAdapter(network model.Network, rpcURL, usdtContract string, chainID int64, decimals int32) (*EVMAdapter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 节点失败: %w", network, err)
	}
	return &EVMAdapter{
		network:  network,
		client:   client,
		chainID:  big.NewInt(chainID),
		usdt:     common.HexToAddress(usdtContract),
		decimals: decimals,
		gasLimit: 90000, // ERC-20 transfer 上限，含 SSTORE 首写
	}, nil
}

func (a *EVMAdapter) Network() model.Network {
	return a.network
}

func (a *EVMAdapter) GetBalance(ctx context.Context, addr string) (Balances, error) {
	account := common.HexToAddress(addr)

	native, err := a.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return Balances{}, fmt.Errorf("查询原生币余额失败: %w", err)
	}

	// balanceOf(address) 常量调用
	data := append(balanceOfSelector, common.LeftPadBytes(account.Bytes(), 32)...)
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &a.usdt, Data: data}, nil)
	if err != nil {
		return Balances{}, fmt.Errorf("查询 USDT 余额失败: %w", err)
	}
	token := new(big.Int)
	if len(out) >= 32 {
		token.SetBytes(out[:32])
	}

	return Balances{
		Native: fromBaseUnits(native, 18),
		Token:  fromBaseUnits(token, a.decimals),
	}, nil
}

func (a *EVMAdapter) ListIncomingTransfers(ctx context.Context, addr string, _ time.Time) ([]Transfer, error) {
	head, err := a.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	from := uint64(0)
	if head > evmLookbackBlocks {
		from = head - evmLookbackBlocks
	}

	// Transfer(from, to, value) 按 to == addr 过滤
	toTopic := common.HexToHash("0x" + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(addr), "0x"))
	logs, err := a.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{a.usdt},
		Topics:    [][]common.Hash{{erc20TransferTopic}, nil, {toTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("过滤 Transfer 日志失败: %w", err)
	}

	transfers := make([]Transfer, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 || len(lg.Data) < 32 {
			continue
		}
		value := new(big.Int).SetBytes(lg.Data[:32])
		transfers = append(transfers, Transfer{
			TxHash:        lg.TxHash.Hex(),
			FromAddress:   common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
			Amount:        fromBaseUnits(value, a.decimals),
			TokenSymbol:   "USDT",
			Confirmations: head - lg.BlockNumber + 1,
		})
	}
	return transfers, nil
}

func (a *EVMAdapter) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	receipt, err := a.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err == ethereum.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("查询交易回执失败: %w", err)
	}
	head, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	if receipt.BlockNumber == nil || head < receipt.BlockNumber.Uint64() {
		return 0, nil
	}
	return head - receipt.BlockNumber.Uint64() + 1, nil
}

// BroadcastTransfer 发起一笔 USDT 转账: 组装 transfer(to, value) calldata，
// 用当前建议费用构造 EIP-1559 交易并签名广播
func (a *EVMAdapter) BroadcastTransfer(ctx context.Context, key *hdwallet.Key, to string, amount decimal.Decimal) (string, error) {
	priv := key.ECDSA.ToECDSA()
	from := crypto.PubkeyToAddress(priv.PublicKey)

	nonce, err := a.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("获取 nonce 失败: %w", err)
	}
	tipCap, err := a.client.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("获取小费建议失败: %w", err)
	}
	header, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("获取区块头失败: %w", err)
	}
	// feeCap = 2*baseFee + tip，容忍 basefee 短期翻倍
	feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tipCap)

	toAddr := common.HexToAddress(to)
	value := toBaseUnits(amount, a.decimals)
	data := append(append(append([]byte{}, transferSelector...),
		common.LeftPadBytes(toAddr.Bytes(), 32)...),
		common.LeftPadBytes(value.Bytes(), 32)...)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   a.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       a.gasLimit,
		To:        &a.usdt,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(a.chainID), priv)
	if err != nil {
		return "", fmt.Errorf("签名交易失败: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("广播交易失败: %w", err)
	}

	logger.Info("EVM 转账已广播",
		zap.String("network", string(a.network)),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to),
		zap.String("amount", amount.String()))
	return signed.Hash().Hex(), nil
}
