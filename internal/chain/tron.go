package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"custody-core/internal/model"
	"custody-core/pkg/address"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
)

// tronFeeLimit TRC-20 转账能量折算的硬上限 (sun)，超出即失败而不是烧光余额
const tronFeeLimit = 50_000_000

// TronAdapter 基于 TronGrid 风格的 HTTP JSON 接口实现。
// Tron 没有可用的 Go SDK，所有交互走 /wallet 与 /v1 两组 REST 端点；
// 签名在本地完成: 对 txID (raw_data 的 SHA256) 做 secp256k1 签名。
type TronAdapter struct {
	apiURL   string
	usdt     string // base58 合约地址
	decimals int32
	client   *http.Client
}

func NewTronAdapter(apiURL, usdtContract string, decimals int32) *TronAdapter {
	return &TronAdapter{
		apiURL:   apiURL,
		usdt:     usdtContract,
		decimals: decimals,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *TronAdapter) Network() model.Network {
	return model.NetworkTron
}

// post 向节点发一个 JSON 请求并解码响应到 out
func (a *TronAdapter) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s 返回状态码 %d: %s", path, resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}

func (a *TronAdapter) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s 返回状态码 %d: %s", path, resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}

func (a *TronAdapter) GetBalance(ctx context.Context, addr string) (Balances, error) {
	// TRX 余额
	var account struct {
		Balance int64 `json:"balance"`
	}
	err := a.post(ctx, "/wallet/getaccount", map[string]interface{}{
		"address": addr,
		"visible": true,
	}, &account)
	if err != nil {
		return Balances{}, err
	}

	// USDT 余额: balanceOf(address) 常量调用
	param, err := tronAddressParam(addr)
	if err != nil {
		return Balances{}, err
	}
	var result struct {
		ConstantResult []string `json:"constant_result"`
	}
	err = a.post(ctx, "/wallet/triggerconstantcontract", map[string]interface{}{
		"owner_address":     addr,
		"contract_address":  a.usdt,
		"function_selector": "balanceOf(address)",
		"parameter":         param,
		"visible":           true,
	}, &result)
	if err != nil {
		return Balances{}, err
	}
	token := new(big.Int)
	if len(result.ConstantResult) > 0 {
		raw, err := hex.DecodeString(result.ConstantResult[0])
		if err != nil {
			return Balances{}, fmt.Errorf("解析 balanceOf 返回值失败: %w", err)
		}
		token.SetBytes(raw)
	}

	return Balances{
		Native: fromBaseUnits(big.NewInt(account.Balance), 6),
		Token:  fromBaseUnits(token, a.decimals),
	}, nil
}

func (a *TronAdapter) ListIncomingTransfers(ctx context.Context, addr string, sinceHint time.Time) ([]Transfer, error) {
	path := fmt.Sprintf("/v1/accounts/%s/transactions/trc20?only_to=true&limit=100&contract_address=%s&min_timestamp=%d",
		url.PathEscape(addr), url.QueryEscape(a.usdt), sinceHint.UnixMilli())

	var resp struct {
		Data []struct {
			TransactionID string `json:"transaction_id"`
			From          string `json:"from"`
			Value         string `json:"value"`
			TokenInfo     struct {
				Symbol   string `json:"symbol"`
				Decimals int32  `json:"decimals"`
			} `json:"token_info"`
		} `json:"data"`
	}
	if err := a.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(resp.Data))
	for _, item := range resp.Data {
		units, ok := new(big.Int).SetString(item.Value, 10)
		if !ok {
			continue
		}
		decimals := a.decimals
		if item.TokenInfo.Decimals > 0 {
			decimals = item.TokenInfo.Decimals
		}
		transfers = append(transfers, Transfer{
			TxHash:      item.TransactionID,
			FromAddress: item.From,
			Amount:      fromBaseUnits(units, decimals),
			TokenSymbol: item.TokenInfo.Symbol,
			// 确认数由确认巡检单独查询
			Confirmations: 0,
		})
	}
	return transfers, nil
}

func (a *TronAdapter) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	var info struct {
		BlockNumber int64 `json:"blockNumber"`
	}
	err := a.post(ctx, "/wallet/gettransactioninfobyid", map[string]interface{}{
		"value": txHash,
	}, &info)
	if err != nil {
		return 0, err
	}
	if info.BlockNumber == 0 {
		return 0, nil
	}

	var now struct {
		BlockHeader struct {
			RawData struct {
				Number int64 `json:"number"`
			} `json:"raw_data"`
		} `json:"block_header"`
	}
	if err := a.post(ctx, "/wallet/getnowblock", map[string]interface{}{}, &now); err != nil {
		return 0, err
	}
	head := now.BlockHeader.RawData.Number
	if head < info.BlockNumber {
		return 0, nil
	}
	return uint64(head-info.BlockNumber) + 1, nil
}

// BroadcastTransfer 三步完成一笔 TRC-20 转账:
// 1. triggersmartcontract 让节点组装未签名交易
// 2. 本地对 txID 做 secp256k1 签名 (r‖s‖v, 65 字节)
// 3. broadcasttransaction 广播
func (a *TronAdapter) BroadcastTransfer(ctx context.Context, key *hdwallet.Key, to string, amount decimal.Decimal) (string, error) {
	toParam, err := tronAddressParam(to)
	if err != nil {
		return "", err
	}
	valueParam, err := tronAmountParam(toBaseUnits(amount, a.decimals))
	if err != nil {
		return "", err
	}
	parameter := toParam + valueParam

	var created struct {
		Result struct {
			Result  bool   `json:"result"`
			Message string `json:"message"`
		} `json:"result"`
		Transaction map[string]interface{} `json:"transaction"`
	}
	err = a.post(ctx, "/wallet/triggersmartcontract", map[string]interface{}{
		"owner_address":     key.Address,
		"contract_address":  a.usdt,
		"function_selector": "transfer(address,uint256)",
		"parameter":         parameter,
		"fee_limit":         tronFeeLimit,
		"call_value":        0,
		"visible":           true,
	}, &created)
	if err != nil {
		return "", err
	}
	if !created.Result.Result || created.Transaction == nil {
		return "", fmt.Errorf("节点拒绝组装交易: %s", created.Result.Message)
	}

	txID, _ := created.Transaction["txID"].(string)
	txIDBytes, err := hex.DecodeString(txID)
	if err != nil {
		return "", fmt.Errorf("解析 txID 失败: %w", err)
	}
	sig, err := crypto.Sign(txIDBytes, key.ECDSA.ToECDSA())
	if err != nil {
		return "", fmt.Errorf("签名交易失败: %w", err)
	}
	created.Transaction["signature"] = []string{hex.EncodeToString(sig)}

	var broadcast struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := a.post(ctx, "/wallet/broadcasttransaction", created.Transaction, &broadcast); err != nil {
		return "", err
	}
	if !broadcast.Result {
		return "", fmt.Errorf("广播失败 code=%s message=%s", broadcast.Code, broadcast.Message)
	}

	logger.Info("Tron 转账已广播",
		zap.String("tx_hash", txID),
		zap.String("to", to),
		zap.String("amount", amount.String()))
	return txID, nil
}

// tronAddressParam base58 地址转 ABI 编码的 32 字节参数 (去掉 0x41 前缀后左补零)
func tronAddressParam(b58 string) (string, error) {
	raw, err := address.Base58CheckDecode(b58)
	if err != nil {
		return "", fmt.Errorf("非法 Tron 地址 %s: %w", b58, err)
	}
	if len(raw) != 21 || raw[0] != address.TronPrefix {
		return "", fmt.Errorf("非法 Tron 地址 %s", b58)
	}
	return fmt.Sprintf("%064s", hex.EncodeToString(raw[1:])), nil
}

// tronAmountParam 金额转 ABI 编码的 uint256 参数，超出 256 位直接拒绝
func tronAmountParam(value *big.Int) (string, error) {
	if value.Sign() < 0 || value.BitLen() > 256 {
		return "", fmt.Errorf("金额超出 uint256 范围: %s", value)
	}
	return fmt.Sprintf("%064s", value.Text(16)), nil
}
