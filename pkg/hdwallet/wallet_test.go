package hdwallet

import (
	"encoding/hex"
	"testing"

	"custody-core/pkg/bip39"

	"github.com/btcsuite/btcd/chaincfg"
)

func TestNewMasterKeyFromSeed(t *testing.T) {
	// 使用 BIP-39 生成种子
	mnemonicService := bip39.NewMnemonicService()
	mnemonic, err := mnemonicService.GenerateMnemonic(128)
	if err != nil {
		t.Fatalf("生成助记词失败: %v", err)
	}
	seed := mnemonicService.MnemonicToSeed(mnemonic, "")

	wallet, err := NewMasterKeyFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}

	if wallet.MasterKey() == nil {
		t.Fatalf("主密钥为空")
	}
}

func TestDerivePath(t *testing.T) {
	seedHex := "fffcf9f6da3247d8a846f4b6113e6173"
	seed, _ := hex.DecodeString(seedHex)

	wallet, err := NewMasterKeyFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}

	// 普通路径
	child1, err := wallet.DerivePath("m/0")
	if err != nil {
		t.Errorf("派生路径 m/0 失败: %v", err)
	}
	if !child1.IsPrivate() {
		t.Errorf("m/0 应该派生出私钥")
	}

	// Hardened 路径
	if _, err := wallet.DerivePath("m/0'"); err != nil {
		t.Errorf("派生路径 m/0' 失败: %v", err)
	}

	// 多层路径 (BIP-44 BTC)
	child3, err := wallet.DerivePath("m/44'/0'/0'/0/0")
	if err != nil {
		t.Errorf("派生路径 m/44'/0'/0'/0/0 失败: %v", err)
	}

	// 确定性: 相同路径两次派生结果一致
	again, err := wallet.DerivePath("m/44'/0'/0'/0/0")
	if err != nil {
		t.Fatalf("二次派生失败: %v", err)
	}
	if child3.String() != again.String() {
		t.Errorf("相同路径两次派生结果不一致")
	}

	// Neuter 转扩展公钥
	pubKey, err := child3.Neuter()
	if err != nil {
		t.Fatalf("转换为扩展公钥失败: %v", err)
	}
	if pubKey.IsPrivate() {
		t.Errorf("Neuter() 应该返回公钥，但 IsPrivate() 返回 true")
	}
}

func TestDerivePathInvalid(t *testing.T) {
	seed, _ := hex.DecodeString("fffcf9f6da3247d8a846f4b6113e6173")
	wallet, err := NewMasterKeyFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}

	for _, path := range []string{"m/abc", "m/0''", "m/-1"} {
		if _, err := wallet.DerivePath(path); err == nil {
			t.Errorf("非法路径 %q 应该返回错误", path)
		}
	}
}
