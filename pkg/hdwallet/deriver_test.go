package hdwallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"custody-core/pkg/errno"
)

func testDeriver(t *testing.T) *Deriver {
	t.Helper()
	seed, _ := hex.DecodeString("5eb00bbbdf1673af7ed1f4a82a5a8f489d2b9463e011699b1b352b35efa6e4f2")
	return NewDeriver(func() ([]byte, error) { return seed, nil }, nil)
}

func TestPathFor(t *testing.T) {
	cases := []struct {
		network string
		index   uint32
		want    string
	}{
		{"ethereum", 0, "m/44'/60'/0'/0/0"},
		{"bsc", 7, "m/44'/60'/7'/0/0"},
		{"polygon", 3, "m/44'/60'/3'/0/0"},
		{"tron", 1, "m/44'/195'/1'/0/0"},
		{"bitcoin", 2, "m/44'/0'/2'/0/0"},
		{"solana", 5, "m/44'/501'/5'/0'"},
	}
	for _, c := range cases {
		got, err := PathFor(c.network, c.index)
		if err != nil {
			t.Fatalf("PathFor(%s, %d) 失败: %v", c.network, c.index, err)
		}
		if got != c.want {
			t.Errorf("PathFor(%s, %d) = %s, 期望 %s", c.network, c.index, got, c.want)
		}
	}

	if _, err := PathFor("dogecoin", 0); err == nil {
		t.Errorf("不支持的链应该返回错误")
	}
}

func TestDeriveDeterministic(t *testing.T) {
	d := testDeriver(t)

	for _, network := range []string{"ethereum", "tron", "bitcoin", "solana"} {
		a, err := d.Derive(network, 1)
		if err != nil {
			t.Fatalf("派生 %s 地址失败: %v", network, err)
		}
		b, err := d.Derive(network, 1)
		if err != nil {
			t.Fatalf("二次派生 %s 地址失败: %v", network, err)
		}
		if a.Address != b.Address || a.Path != b.Path {
			t.Errorf("%s 相同索引两次派生结果不一致: %v vs %v", network, a, b)
		}

		other, err := d.Derive(network, 2)
		if err != nil {
			t.Fatalf("派生 %s 索引 2 失败: %v", network, err)
		}
		if other.Address == a.Address {
			t.Errorf("%s 不同索引派生出相同地址: %s", network, a.Address)
		}
	}
}

func TestDeriveAddressFormat(t *testing.T) {
	d := testDeriver(t)

	eth, err := d.Derive("ethereum", 1)
	if err != nil {
		t.Fatalf("派生 ETH 地址失败: %v", err)
	}
	if !strings.HasPrefix(eth.Address, "0x") || len(eth.Address) != 42 {
		t.Errorf("ETH 地址格式错误: %s", eth.Address)
	}

	// EVM 系共享 coin type 60, 同索引地址一致
	bsc, err := d.Derive("bsc", 1)
	if err != nil {
		t.Fatalf("派生 BSC 地址失败: %v", err)
	}
	if bsc.Address != eth.Address {
		t.Errorf("BSC 与 ETH 同索引地址应一致: %s vs %s", bsc.Address, eth.Address)
	}

	tron, err := d.Derive("tron", 1)
	if err != nil {
		t.Fatalf("派生 Tron 地址失败: %v", err)
	}
	if !strings.HasPrefix(tron.Address, "T") {
		t.Errorf("Tron 地址格式错误: %s", tron.Address)
	}

	btc, err := d.Derive("bitcoin", 1)
	if err != nil {
		t.Fatalf("派生 BTC 地址失败: %v", err)
	}
	if !strings.HasPrefix(btc.Address, "1") {
		t.Errorf("BTC 主网 P2PKH 地址格式错误: %s", btc.Address)
	}
}

func TestPrivateKeyMatchesAddress(t *testing.T) {
	d := testDeriver(t)

	key, err := d.PrivateKey("ethereum", 1)
	if err != nil {
		t.Fatalf("派生 ETH 私钥失败: %v", err)
	}
	if key.ECDSA == nil {
		t.Fatalf("ETH 私钥为空")
	}
	addr, err := d.Derive("ethereum", 1)
	if err != nil {
		t.Fatalf("派生 ETH 地址失败: %v", err)
	}
	if key.Address != addr.Address {
		t.Errorf("私钥附带地址与派生地址不一致: %s vs %s", key.Address, addr.Address)
	}

	solKey, err := d.PrivateKey("solana", 1)
	if err != nil {
		t.Fatalf("派生 Solana 私钥失败: %v", err)
	}
	if solKey.Ed25519 == nil {
		t.Fatalf("Solana 私钥为空")
	}
	if solKey.ECDSA != nil {
		t.Errorf("Solana 私钥不应包含 secp256k1 密钥")
	}
}

// SLIP-0010 Ed25519 官方测试向量 1
func TestDeriveEd25519Vectors(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")

	cases := []struct {
		path    string
		privHex string
		pubHex  string
	}{
		{
			path:    "m/0'",
			privHex: "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3",
			pubHex:  "8c8a13df77a28f3445213a0f432fde644acaa215fc72dcdf300d5efaa85d350c",
		},
		{
			path:    "m/0'/1'",
			privHex: "b1d0bad404bf35da785a64ca1ac54b2617211d2777696fbffaf208f746ae84f2",
			pubHex:  "1932a5270f335bed617d5b935c80aedb1a35bd9fc1e31acafd5372c30f5c1187",
		},
		{
			path:    "m/0'/1'/2'/2'/1000000000'",
			privHex: "8f94d394a8e8fd6b1bc2f3f49f5c47e385281d5c17e65324b0f62483e37e8793",
			pubHex:  "3c24da049451555d51a7014a37337aa4e12d41e485abccfa46b47dfb2af54b7a",
		},
	}

	for _, c := range cases {
		priv, err := DeriveEd25519(seed, c.path)
		if err != nil {
			t.Fatalf("派生路径 %s 失败: %v", c.path, err)
		}
		if got := hex.EncodeToString(priv.Seed()); got != c.privHex {
			t.Errorf("路径 %s 私钥不匹配: 得到 %s", c.path, got)
		}
		pub := priv.Public().(ed25519.PublicKey)
		if got := hex.EncodeToString(pub); got != c.pubHex {
			t.Errorf("路径 %s 公钥不匹配: 得到 %s", c.path, got)
		}
	}
}

func TestDeriveSeedMissing(t *testing.T) {
	d := NewDeriver(func() ([]byte, error) { return nil, nil }, nil)
	if _, err := d.Derive("ethereum", 1); err != errno.ErrMasterSeedMissing {
		t.Errorf("空种子应该返回 ErrMasterSeedMissing, 实际 %v", err)
	}

	d = NewDeriver(nil, nil)
	if _, err := d.PrivateKey("tron", 1); err != errno.ErrMasterSeedMissing {
		t.Errorf("缺少种子回调应该返回 ErrMasterSeedMissing, 实际 %v", err)
	}
}

func TestDeriveEd25519Invalid(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")

	if _, err := DeriveEd25519(seed, "m"); err == nil {
		t.Errorf("空路径应该返回错误")
	}
	if _, err := DeriveEd25519([]byte{0x01}, "m/0'"); err == nil {
		t.Errorf("过短种子应该返回错误")
	}
}
