package service

import (
	"testing"

	"custody-core/internal/model"
)

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		network model.Network
		addr    string
		want    bool
	}{
		// EVM 系
		{model.NetworkEthereum, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", true},
		{model.NetworkBSC, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", true},
		{model.NetworkPolygon, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", true},
		{model.NetworkEthereum, "7E5F4552091A69125d5DfCb7b8C2659029395Bdf", false},
		{model.NetworkEthereum, "0x7E5F4552091A69125d5DfCb7b8C265902939", false},
		{model.NetworkEthereum, "0xZZZF4552091A69125d5DfCb7b8C2659029395Bdf", false},

		// Tron
		{model.NetworkTron, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", true},
		{model.NetworkTron, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj", false},
		{model.NetworkTron, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", false},

		// Solana (Base58, 32-44 位)
		{model.NetworkSolana, "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", true},
		{model.NetworkSolana, "short", false},
		{model.NetworkSolana, "0OIl111111111111111111111111111111111111", false},

		// Bitcoin
		{model.NetworkBitcoin, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", true},
		{model.NetworkBitcoin, "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", true},
		{model.NetworkBitcoin, "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", true},
		{model.NetworkBitcoin, "2NBFNJTktNa7GZusGbDbGKRZTxdK9VVez3n", false},

		// 跨链混用
		{model.NetworkBitcoin, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", false},
		{model.Network("dogecoin"), "DH5yaieqoZN36fDVciNyRueRGvGLR3mr7L", false},
	}

	for _, c := range cases {
		if got := ValidateAddress(c.network, c.addr); got != c.want {
			t.Errorf("ValidateAddress(%s, %q) = %v, 期望 %v", c.network, c.addr, got, c.want)
		}
	}
}
