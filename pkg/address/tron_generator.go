package address

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// TronPrefix Tron 主网地址版本字节 (Base58 编码后以 "T" 开头)
const TronPrefix = 0x41

// TronGenerator 波场地址生成器
// Tron 地址 = Base58Check(0x41 ‖ Keccak256(pubkey)[12:])，
// 校验和为两次 SHA256 的前 4 字节
type TronGenerator struct{}

func NewTronGenerator() *TronGenerator {
	return &TronGenerator{}
}

// PubKeyToAddress 将公钥字节 (非压缩格式, 65 bytes, 0x04...) 转换为 Base58Check 地址
func (g *TronGenerator) PubKeyToAddress(pubKeyBytes []byte) (string, error) {
	if len(pubKeyBytes) == 65 && pubKeyBytes[0] == 0x04 {
		pubKeyBytes = pubKeyBytes[1:]
	}
	if len(pubKeyBytes) != 64 {
		return "", fmt.Errorf("非法的公钥长度: %d", len(pubKeyBytes))
	}

	// 与以太坊一致: Keccak-256 取后 20 字节
	hash := sha3.NewLegacyKeccak256()
	hash.Write(pubKeyBytes)
	payload := append([]byte{TronPrefix}, hash.Sum(nil)[12:]...)

	return Base58CheckEncode(payload), nil
}

// Base58CheckEncode 附加双 SHA256 校验和后做 Base58 编码
func Base58CheckEncode(payload []byte) string {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(payload, second[:4]...))
}

// Base58CheckDecode 校验并还原 payload，校验和不符返回错误
func Base58CheckDecode(encoded string) ([]byte, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("base58 解码失败: %w", err)
	}
	if len(raw) < 5 {
		return nil, fmt.Errorf("地址过短")
	}
	payload, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			return nil, fmt.Errorf("校验和不匹配")
		}
	}
	return payload, nil
}
