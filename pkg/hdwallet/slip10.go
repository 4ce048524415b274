package hdwallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"
)

// SLIP-10 Ed25519 派生 (Solana 钱包标准)
// Ed25519 只支持 hardened 派生，路径形如 m/44'/501'/{index}'/0'

const slip10Seed = "ed25519 seed"

const hardenedOffset uint32 = 0x80000000

type slip10Node struct {
	key       []byte // 32 字节私钥种子
	chainCode []byte
}

func newSLIP10Master(seed []byte) slip10Node {
	mac := hmac.New(sha512.New, []byte(slip10Seed))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return slip10Node{key: sum[:32], chainCode: sum[32:]}
}

func (n slip10Node) deriveHardened(index uint32) slip10Node {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, n.key...)

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index|hardenedOffset)
	data = append(data, idx[:]...)

	mac := hmac.New(sha512.New, n.chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return slip10Node{key: sum[:32], chainCode: sum[32:]}
}

// DeriveEd25519 按 SLIP-10 路径派生 Ed25519 私钥
// 路径中每一段都按 hardened 处理 (Ed25519 不存在非 hardened 派生)
func DeriveEd25519(seed []byte, path string) (ed25519.PrivateKey, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, ErrInvalidSeed
	}

	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "m/") {
		path = path[2:]
	} else if path == "m" || path == "" {
		return nil, ErrInvalidPath
	}

	node := newSLIP10Master(seed)
	for _, segment := range strings.Split(path, "/") {
		segment = strings.TrimSuffix(strings.TrimSuffix(segment, "'"), "h")
		var index uint32
		if _, err := fmt.Sscanf(segment, "%d", &index); err != nil {
			return nil, fmt.Errorf("无效的路径段 '%s': %w", segment, err)
		}
		node = node.deriveHardened(index)
	}

	return ed25519.NewKeyFromSeed(node.key), nil
}
