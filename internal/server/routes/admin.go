package routes

import (
	"github.com/gin-gonic/gin"

	"custody-core/internal/handler"
)

func RegisterAdminRoutes(rg *gin.RouterGroup, admin *handler.AdminHandler) {
	adminGroup := rg.Group("/admin")
	// AdminAuth 中间件由网关层完成
	{
		adminGroup.GET("/withdrawals/pending", admin.ListPendingWithdrawals)
		adminGroup.POST("/withdrawals/:id/review", admin.ReviewWithdrawal)
		adminGroup.GET("/hot_wallets", admin.HotWalletBalances)
		adminGroup.POST("/sweep", admin.TriggerSweep)
		adminGroup.GET("/deposit_balances", admin.AllDepositBalances)
	}
}
