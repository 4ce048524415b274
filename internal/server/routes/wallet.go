package routes

import (
	"github.com/gin-gonic/gin"

	"custody-core/internal/handler"
)

func RegisterWalletRoutes(rg *gin.RouterGroup, wallet *handler.WalletHandler, withdraw *handler.WithdrawHandler) {
	walletGroup := rg.Group("/wallet")
	{
		walletGroup.POST("/deposit_address", wallet.CreateDepositAddress)
		walletGroup.POST("/deposit_address/regenerate", wallet.RegenerateDepositAddress)
		walletGroup.GET("/deposit_addresses", wallet.ListDepositAddresses)
		walletGroup.GET("/balance", wallet.GetBalance)
		walletGroup.GET("/transactions", wallet.ListTransactions)
		walletGroup.POST("/withdraw", withdraw.CreateWithdrawal)
		walletGroup.GET("/withdrawals", withdraw.ListWithdrawals)
	}
}
