package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"custody-core/pkg/logger"
	"custody-core/pkg/utils/lock"
)

// CronService 周期任务调度。
// 每个任务执行前先抢 Redis 分布式锁，多实例部署时同一轮只有一个节点干活
type CronService struct {
	cron        *cron.Cron
	redis       *redis.Client
	monitor     *DepositMonitor
	sweeper     *SweeperService
	broadcaster *BroadcasterService
}

func NewCronService(rdb *redis.Client, monitor *DepositMonitor, sweeper *SweeperService, broadcaster *BroadcasterService) *CronService {
	return &CronService{
		cron:        cron.New(cron.WithSeconds()),
		redis:       rdb,
		monitor:     monitor,
		sweeper:     sweeper,
		broadcaster: broadcaster,
	}
}

func (s *CronService) Start() {
	// 发现新入账
	_, _ = s.cron.AddFunc("*/30 * * * * *", func() {
		s.withLock("cron:lock:scan_deposits", 25*time.Second, s.monitor.ScanDeposits)
	})
	// 跟踪确认数并入账
	_, _ = s.cron.AddFunc("*/15 * * * * *", func() {
		s.withLock("cron:lock:confirm_deposits", 12*time.Second, s.monitor.ConfirmDeposits)
	})
	// 广播已审核提现
	_, _ = s.cron.AddFunc("*/15 * * * * *", func() {
		s.withLock("cron:lock:broadcast_withdrawals", 12*time.Second, s.broadcaster.ProcessApproved)
	})
	// 资金归集，低频即可
	_, _ = s.cron.AddFunc("0 */10 * * * *", func() {
		s.withLock("cron:lock:sweep", 9*time.Minute, func(ctx context.Context) {
			summary := s.sweeper.SweepAll(ctx)
			if len(summary.Results) > 0 {
				logger.Info("归集轮次结束",
					zap.Int("attempted", len(summary.Results)),
					zap.String("total_swept", summary.TotalSwept.String()))
			}
		})
	})
	// 归集交易确认跟踪
	_, _ = s.cron.AddFunc("0 */2 * * * *", func() {
		s.withLock("cron:lock:confirm_sweeps", 100*time.Second, s.sweeper.ConfirmSweeps)
	})

	s.cron.Start()
	logger.Info("定时任务调度已启动")
}

func (s *CronService) Stop() {
	s.cron.Stop()
	logger.Info("定时任务调度已停止")
}

func (s *CronService) withLock(key string, ttl time.Duration, job func(ctx context.Context)) {
	ctx := context.Background()
	locker := lock.NewRedisLock(s.redis)
	locked, err := locker.Acquire(ctx, key, ttl)
	if err != nil || !locked {
		logger.Debug("未抢到任务锁，本轮跳过", zap.String("key", key))
		return
	}
	defer locker.Release(ctx, key)

	job(ctx)
}
