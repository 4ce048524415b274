package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// deriveCmd 从 Keystore 派生某个序号的充值地址，用于排障时核对
// 库里的地址和种子是否一致。只输出地址，不输出任何私钥材料。
var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "从 Keystore 派生指定 (network, index) 的地址",
	Run: func(cmd *cobra.Command, args []string) {
		network, _ := cmd.Flags().GetString("network")
		index, _ := cmd.Flags().GetUint32("index")
		keystorePath, _ := cmd.Flags().GetString("keystore")

		deriver := unlockDeriver(keystorePath)
		derived, err := deriver.Derive(network, index)
		if err != nil {
			fmt.Printf("派生失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("network: %s\nindex:   %d\npath:    %s\naddress: %s\n",
			network, index, derived.Path, derived.Address)
	},
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	deriveCmd.Flags().StringP("network", "n", "tron", "链: tron/ethereum/bsc/polygon/solana/bitcoin")
	deriveCmd.Flags().Uint32P("index", "i", 0, "派生序号 (0 为热钱包)")
	deriveCmd.Flags().StringP("keystore", "k", "wallet.json", "Keystore 文件路径")
}
