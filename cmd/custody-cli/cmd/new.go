package cmd

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/cobra"

	"custody-core/internal/model"
	"custody-core/pkg/bip39"
	"custody-core/pkg/hdwallet"
)

// newCmd 生成一套新助记词并展示各链的热钱包地址 (index 0)
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "生成新助记词并预览各链热钱包地址",
	Run: func(cmd *cobra.Command, args []string) {
		service := bip39.NewMnemonicService()
		mnemonic, err := service.GenerateMnemonic(256) // 24 词
		if err != nil {
			fmt.Printf("生成助记词失败: %v\n", err)
			return
		}

		fmt.Println("---------------------------------------------------")
		fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
		fmt.Println("---------------------------------------------------")

		deriver := hdwallet.NewDeriver(func() ([]byte, error) {
			return service.MnemonicToSeed(mnemonic, ""), nil
		}, &chaincfg.MainNetParams)

		for _, network := range model.AllNetworks() {
			derived, err := deriver.Derive(string(network), hdwallet.HotWalletIndex)
			if err != nil {
				fmt.Printf("%-10s 派生失败: %v\n", network, err)
				continue
			}
			fmt.Printf("%-10s [%s]: %s\n", network, derived.Path, derived.Address)
		}
		fmt.Println("---------------------------------------------------")
		fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以控制该钱包的所有资产。")
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
