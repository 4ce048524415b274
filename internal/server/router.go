package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custody-core/internal/handler"
	"custody-core/internal/server/routes"
	"custody-core/pkg/monitor"
)

// Handlers 路由需要的全部 handler
type Handlers struct {
	Wallet   *handler.WalletHandler
	Withdraw *handler.WithdrawHandler
	Admin    *handler.AdminHandler
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	monitor.Init()

	r := gin.Default()
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		routes.RegisterWalletRoutes(api, h.Wallet, h.Withdraw)
		routes.RegisterAdminRoutes(api, h.Admin)
	}
	return r
}
