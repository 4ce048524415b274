package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"

	"custody-core/pkg/hdwallet"
)

func testBTCDeriver() *hdwallet.Deriver {
	seed := bytes.Repeat([]byte{0x42}, 64)
	return hdwallet.NewDeriver(func() ([]byte, error) { return seed, nil }, &chaincfg.MainNetParams)
}

func confirmedUTXO(txid string, vout uint32, value int64) esploraUTXO {
	u := esploraUTXO{TxID: txid, Vout: vout, Value: value}
	u.Status.Confirmed = true
	return u
}

// mockEsplora 两笔已确认 UTXO 共 100000 sat，费率 10 sat/vB，
// 广播的裸交易 hex 写入 broadcasted
func mockEsplora(broadcasted *string) *httptest.Server {
	utxos := []esploraUTXO{
		confirmedUTXO(strings.Repeat("aa", 32), 0, 60000),
		confirmedUTXO(strings.Repeat("bb", 32), 1, 40000),
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/utxo"):
			_ = json.NewEncoder(w).Encode(utxos)
		case r.URL.Path == "/fee-estimates":
			fmt.Fprint(w, `{"2": 10}`)
		case r.URL.Path == "/tx" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			*broadcasted = string(body)
			fmt.Fprint(w, strings.Repeat("cc", 32))
		default:
			http.NotFound(w, r)
		}
	}))
}

func decodeRawTx(t *testing.T, rawHex string) *wire.MsgTx {
	t.Helper()
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		t.Fatalf("广播内容不是合法 hex: %v", err)
	}
	var msg wire.MsgTx
	if err := msg.Deserialize(bytes.NewReader(raw)); err != nil {
		t.Fatalf("反序列化广播交易失败: %v", err)
	}
	return &msg
}

func TestBitcoinGetBalance(t *testing.T) {
	var broadcasted string
	srv := mockEsplora(&broadcasted)
	defer srv.Close()

	adapter := NewBitcoinAdapter(srv.URL, &chaincfg.MainNetParams)
	balances, err := adapter.GetBalance(context.Background(), "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	if err != nil {
		t.Fatalf("查询余额失败: %v", err)
	}
	if !balances.Native.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("已确认 UTXO 余额应为 0.001 BTC, 实际 %s", balances.Native)
	}
	if !balances.Token.IsZero() {
		t.Errorf("Bitcoin 链 Token 余额应恒为 0")
	}
}

// 整额转出: 金额等于全部已确认余额时手续费从输出里扣，
// 全部 UTXO 作输入且不留找零
func TestBitcoinBroadcastFullBalance(t *testing.T) {
	var broadcasted string
	srv := mockEsplora(&broadcasted)
	defer srv.Close()

	adapter := NewBitcoinAdapter(srv.URL, &chaincfg.MainNetParams)
	d := testBTCDeriver()
	key, err := d.PrivateKey("bitcoin", 1)
	if err != nil {
		t.Fatalf("派生付款密钥失败: %v", err)
	}
	hot, err := d.Derive("bitcoin", 0)
	if err != nil {
		t.Fatalf("派生收款地址失败: %v", err)
	}

	txid, err := adapter.BroadcastTransfer(context.Background(), key, hot.Address,
		decimal.RequireFromString("0.001"))
	if err != nil {
		t.Fatalf("整额转出不应失败: %v", err)
	}
	if txid != strings.Repeat("cc", 32) {
		t.Errorf("返回的 txid 不匹配: %s", txid)
	}

	msg := decodeRawTx(t, broadcasted)
	if len(msg.TxIn) != 2 {
		t.Fatalf("整额转出应消费全部 2 笔 UTXO, 实际 %d", len(msg.TxIn))
	}
	if len(msg.TxOut) != 1 {
		t.Fatalf("整额转出应只有单输出, 实际 %d", len(msg.TxOut))
	}
	// 100000 - 10 sat/vB * (2*148 + 44) vB = 96600
	if msg.TxOut[0].Value != 96600 {
		t.Errorf("输出金额应为扣费后的 96600 sat, 实际 %d", msg.TxOut[0].Value)
	}
}

func TestBitcoinBroadcastWithChange(t *testing.T) {
	var broadcasted string
	srv := mockEsplora(&broadcasted)
	defer srv.Close()

	adapter := NewBitcoinAdapter(srv.URL, &chaincfg.MainNetParams)
	d := testBTCDeriver()
	key, err := d.PrivateKey("bitcoin", 1)
	if err != nil {
		t.Fatalf("派生付款密钥失败: %v", err)
	}
	hot, err := d.Derive("bitcoin", 0)
	if err != nil {
		t.Fatalf("派生收款地址失败: %v", err)
	}

	_, err = adapter.BroadcastTransfer(context.Background(), key, hot.Address,
		decimal.RequireFromString("0.0004"))
	if err != nil {
		t.Fatalf("部分转出不应失败: %v", err)
	}

	msg := decodeRawTx(t, broadcasted)
	if len(msg.TxIn) != 1 {
		t.Fatalf("贪心选币应只消费第一笔 UTXO, 实际 %d", len(msg.TxIn))
	}
	if len(msg.TxOut) != 2 {
		t.Fatalf("应有收款和找零两个输出, 实际 %d", len(msg.TxOut))
	}
	if msg.TxOut[0].Value != 40000 {
		t.Errorf("收款输出应为 40000 sat, 实际 %d", msg.TxOut[0].Value)
	}
	// 60000 - 40000 - 10*(148+78) = 17740
	if msg.TxOut[1].Value != 17740 {
		t.Errorf("找零输出应为 17740 sat, 实际 %d", msg.TxOut[1].Value)
	}
}

func TestBitcoinBroadcastInsufficient(t *testing.T) {
	var broadcasted string
	srv := mockEsplora(&broadcasted)
	defer srv.Close()

	adapter := NewBitcoinAdapter(srv.URL, &chaincfg.MainNetParams)
	d := testBTCDeriver()
	key, err := d.PrivateKey("bitcoin", 1)
	if err != nil {
		t.Fatalf("派生付款密钥失败: %v", err)
	}
	hot, err := d.Derive("bitcoin", 0)
	if err != nil {
		t.Fatalf("派生收款地址失败: %v", err)
	}

	_, err = adapter.BroadcastTransfer(context.Background(), key, hot.Address,
		decimal.RequireFromString("0.002"))
	if err == nil {
		t.Fatalf("超出余额的转出应该失败")
	}
	if !strings.Contains(err.Error(), "UTXO 总额不足") {
		t.Errorf("错误信息不符: %v", err)
	}
	if broadcasted != "" {
		t.Errorf("失败的转出不应触发广播")
	}
}
