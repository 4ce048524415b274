package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custody-core/pkg/logger"
)

type Config struct {
	HttpPort string
}

// App HTTP 服务与后台协程的生命周期容器
type App struct {
	httpServer *http.Server
	background []func(ctx context.Context)
	cleanup    []func()
}

func New(cfg Config, httpHandler *gin.Engine) *App {
	return &App{
		httpServer: &http.Server{
			Addr:    ":" + cfg.HttpPort,
			Handler: httpHandler,
		},
	}
}

// AddBackground 注册随服务启动的后台协程 (消息中继等)，关停时随 ctx 退出
func (a *App) AddBackground(fn func(ctx context.Context)) {
	a.background = append(a.background, fn)
}

// AddCleanup 注册关停时执行的清理动作 (定时任务停止、连接关闭等)
func (a *App) AddCleanup(fn func()) {
	a.cleanup = append(a.cleanup, fn)
}

// Run 启动服务并阻塞，直到收到关闭信号
func (a *App) Run() {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	for _, fn := range a.background {
		go fn(bgCtx)
	}

	go func() {
		logger.Info("HTTP 服务启动", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务异常退出", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("收到关闭信号，开始优雅关停")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP 服务强制关停", zap.Error(err))
	}

	bgCancel()
	for _, fn := range a.cleanup {
		fn()
	}
	logger.Info("服务已退出")
}
