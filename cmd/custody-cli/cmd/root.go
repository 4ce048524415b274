package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "custody-cli",
	Short: "托管钱包运维工具",
	Long: `custody-core 的命令行运维工具。
支持初始化加密 Keystore、生成助记词、校验各链充值地址的派生结果、
巡查热钱包备付金。`,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
