package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"custody-core/internal/chain"
	"custody-core/internal/model"
	"custody-core/pkg/bip39"
	"custody-core/pkg/config"
	"custody-core/pkg/hdwallet"
	"custody-core/pkg/keystore"
)

// balancesCmd 巡查各链热钱包备付金。
// 热钱包地址优先取配置 hot_wallet，配置缺省时从 Keystore 派生序号 0。
var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "查询各链热钱包的链上余额",
	Run: func(cmd *cobra.Command, args []string) {
		keystorePath, _ := cmd.Flags().GetString("keystore")

		config.Init()
		adapters, err := chain.NewRegistry(&config.Global)
		if err != nil {
			fmt.Printf("初始化链 adapter 失败: %v\n", err)
			os.Exit(1)
		}

		// 只有存在未配置 hot_wallet 的链时才需要解锁 Keystore
		var deriver *hdwallet.Deriver
		needDerive := false
		for network := range adapters {
			if nc, ok := config.Global.Networks[string(network)]; !ok || nc.HotWallet == "" {
				needDerive = true
			}
		}
		if needDerive {
			deriver = unlockDeriver(keystorePath)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, network := range model.AllNetworks() {
			adapter, err := adapters.Get(network)
			if err != nil {
				continue
			}
			addr := config.Global.Networks[string(network)].HotWallet
			if addr == "" {
				derived, err := deriver.Derive(string(network), hdwallet.HotWalletIndex)
				if err != nil {
					fmt.Printf("%-10s 派生热钱包地址失败: %v\n", network, err)
					continue
				}
				addr = derived.Address
			}
			balances, err := adapter.GetBalance(ctx, addr)
			if err != nil {
				fmt.Printf("%-10s %s 查询失败: %v\n", network, addr, err)
				continue
			}
			fmt.Printf("%-10s %s native=%s token=%s\n",
				network, addr, balances.Native.String(), balances.Token.String())
		}
	},
}

func unlockDeriver(keystorePath string) *hdwallet.Deriver {
	encrypted, err := keystore.LoadFromFile(keystorePath)
	if err != nil {
		fmt.Printf("读取 Keystore 失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Print("输入 Keystore 密码: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("读取密码失败: %v\n", err)
		os.Exit(1)
	}
	mnemonic, err := keystore.DecryptMnemonic(encrypted, string(bytePassword))
	if err != nil {
		fmt.Printf("解密失败: 密码错误或文件损坏\n")
		os.Exit(1)
	}
	return hdwallet.NewDeriver(func() ([]byte, error) {
		return bip39.NewMnemonicService().MnemonicToSeed(mnemonic, ""), nil
	}, &chaincfg.MainNetParams)
}

func init() {
	rootCmd.AddCommand(balancesCmd)
	balancesCmd.Flags().StringP("keystore", "k", "wallet.json", "Keystore 文件路径")
}
