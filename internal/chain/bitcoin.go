package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"custody-core/internal/model"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/logger"
)

const (
	btcDustLimit   = 546  // sat，低于此值的找零直接并入手续费
	btcDefaultRate = 10   // sat/vB，费率接口不可用时的兜底
)

// BitcoinAdapter 基于 esplora 风格的区块浏览器 API (blockstream.info 兼容)。
// Bitcoin 链只承载原生 BTC，Token 余额恒为 0；
// 转账走 UTXO 模型: 贪心选币 + P2PKH 签名 + 找零回付款地址。
type BitcoinAdapter struct {
	apiURL string
	params *chaincfg.Params
	client *http.Client
}

func NewBitcoinAdapter(apiURL string, params *chaincfg.Params) *BitcoinAdapter {
	return &BitcoinAdapter{
		apiURL: apiURL,
		params: params,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *BitcoinAdapter) Network() model.Network {
	return model.NetworkBitcoin
}

type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

type esploraTx struct {
	TxID string `json:"txid"`
	Vin  []struct {
		Prevout struct {
			ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		} `json:"prevout"`
	} `json:"vin"`
	Vout []struct {
		ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		Value               int64  `json:"value"`
	} `json:"vout"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
}

func (a *BitcoinAdapter) get(ctx context.Context, path string, out interface{}) error {
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

func (a *BitcoinAdapter) tipHeight(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"/blocks/tip/height", nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("获取链顶高度失败: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	var height int64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &height); err != nil {
		return 0, fmt.Errorf("解析链顶高度失败: %w", err)
	}
	return height, nil
}

func (a *BitcoinAdapter) GetBalance(ctx context.Context, addr string) (Balances, error) {
	var utxos []esploraUTXO
	if err := a.get(ctx, "/address/"+addr+"/utxo", &utxos); err != nil {
		return Balances{}, err
	}
	var total int64
	for _, u := range utxos {
		if u.Status.Confirmed {
			total += u.Value
		}
	}
	return Balances{
		Native: decimal.New(total, -8),
		Token:  decimal.Zero,
	}, nil
}

func (a *BitcoinAdapter) ListIncomingTransfers(ctx context.Context, addr string, _ time.Time) ([]Transfer, error) {
	tip, err := a.tipHeight(ctx)
	if err != nil {
		return nil, err
	}
	var txs []esploraTx
	if err := a.get(ctx, "/address/"+addr+"/txs", &txs); err != nil {
		return nil, err
	}

	var transfers []Transfer
	for _, tx := range txs {
		var received int64
		for _, out := range tx.Vout {
			if out.ScriptPubKeyAddress == addr {
				received += out.Value
			}
		}
		if received == 0 {
			continue
		}
		// 自己发起的交易 (归集) 的找零不算入账
		from := ""
		if len(tx.Vin) > 0 {
			from = tx.Vin[0].Prevout.ScriptPubKeyAddress
		}
		if from == addr {
			continue
		}
		var conf uint64
		if tx.Status.Confirmed && tip >= tx.Status.BlockHeight {
			conf = uint64(tip-tx.Status.BlockHeight) + 1
		}
		transfers = append(transfers, Transfer{
			TxHash:        tx.TxID,
			FromAddress:   from,
			Amount:        decimal.New(received, -8),
			TokenSymbol:   "BTC",
			Confirmations: conf,
		})
	}
	return transfers, nil
}

func (a *BitcoinAdapter) GetConfirmations(ctx context.Context, txHash string) (uint64, error) {
	var status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	}
	if err := a.get(ctx, "/tx/"+txHash+"/status", &status); err != nil {
		return 0, err
	}
	if !status.Confirmed {
		return 0, nil
	}
	tip, err := a.tipHeight(ctx)
	if err != nil {
		return 0, err
	}
	if tip < status.BlockHeight {
		return 0, nil
	}
	return uint64(tip-status.BlockHeight) + 1, nil
}

func (a *BitcoinAdapter) feeRate(ctx context.Context) int64 {
	var estimates map[string]float64
	if err := a.get(ctx, "/fee-estimates", &estimates); err != nil {
		logger.Warn("获取费率失败，使用兜底费率", zap.Error(err))
		return btcDefaultRate
	}
	if rate, ok := estimates["2"]; ok && rate >= 1 {
		return int64(rate + 0.5)
	}
	return btcDefaultRate
}

// BroadcastTransfer 从 key 对应的 P2PKH 地址发起一笔 BTC 转账:
// 贪心挑选已确认 UTXO 覆盖金额与手续费，找零回付款地址，逐输入签名后广播。
// amount 恰好等于地址全部已确认余额时视为整额转出 (归集场景)，
// 手续费改从输出里扣，否则全额归集永远凑不齐 amount + fee。
func (a *BitcoinAdapter) BroadcastTransfer(ctx context.Context, key *hdwallet.Key, to string, amount decimal.Decimal) (string, error) {
	fromAddr, err := btcutil.DecodeAddress(key.Address, a.params)
	if err != nil {
		return "", fmt.Errorf("解析付款地址失败: %w", err)
	}
	toAddr, err := btcutil.DecodeAddress(to, a.params)
	if err != nil {
		return "", fmt.Errorf("解析收款地址失败: %w", err)
	}
	fromScript, err := txscript.PayToAddrScript(fromAddr)
	if err != nil {
		return "", err
	}
	toScript, err := txscript.PayToAddrScript(toAddr)
	if err != nil {
		return "", err
	}

	var utxos []esploraUTXO
	if err := a.get(ctx, "/address/"+key.Address+"/utxo", &utxos); err != nil {
		return "", err
	}

	target := toBaseUnits(amount, 8).Int64()
	rate := a.feeRate(ctx)

	var confirmed []esploraUTXO
	var available int64
	for _, u := range utxos {
		if u.Status.Confirmed {
			confirmed = append(confirmed, u)
			available += u.Value
		}
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if target == available && available > 0 {
		// 整额转出: 全部 UTXO 作输入，单输出，手续费从输出扣，不留找零
		for _, u := range confirmed {
			hash, err := chainhash.NewHashFromStr(u.TxID)
			if err != nil {
				return "", fmt.Errorf("解析 UTXO txid 失败: %w", err)
			}
			tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
		}
		// P2PKH 估算: 每输入 148 vB，单输出 + 头部约 44 vB
		fee := rate * int64(len(tx.TxIn)*148+44)
		payout := available - fee
		if payout <= btcDustLimit {
			return "", fmt.Errorf("扣除手续费 %d sat 后只剩 %d sat，低于粉尘限制", fee, payout)
		}
		tx.AddTxOut(wire.NewTxOut(payout, toScript))
	} else {
		var selected int64
		var fee int64
		for _, u := range confirmed {
			hash, err := chainhash.NewHashFromStr(u.TxID)
			if err != nil {
				return "", fmt.Errorf("解析 UTXO txid 失败: %w", err)
			}
			tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
			selected += u.Value

			// P2PKH 估算: 每输入 148 vB，两个输出 + 头部约 78 vB
			fee = rate * int64(len(tx.TxIn)*148+78)
			if selected >= target+fee {
				break
			}
		}
		if selected < target+fee {
			return "", fmt.Errorf("UTXO 总额不足: 需要 %d sat (含手续费 %d)，只有 %d", target+fee, fee, selected)
		}

		tx.AddTxOut(wire.NewTxOut(target, toScript))
		if change := selected - target - fee; change > btcDustLimit {
			tx.AddTxOut(wire.NewTxOut(change, fromScript))
		}
	}

	for i := range tx.TxIn {
		sigScript, err := txscript.SignatureScript(tx, i, fromScript, txscript.SigHashAll, key.ECDSA, true)
		if err != nil {
			return "", fmt.Errorf("签名第 %d 个输入失败: %w", i, err)
		}
		tx.TxIn[i].SignatureScript = sigScript
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	rawHex := hex.EncodeToString(buf.Bytes())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/tx", strings.NewReader(rawHex))
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("广播交易失败: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("广播被拒绝: %s", string(body))
	}

	txid := strings.TrimSpace(string(body))
	logger.Info("Bitcoin 转账已广播",
		zap.String("tx_hash", txid),
		zap.String("to", to),
		zap.String("amount", amount.String()))
	return txid, nil
}
