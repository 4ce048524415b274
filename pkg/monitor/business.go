package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	DepositCreditedTotal  *prometheus.CounterVec
	DepositAmountTotal    *prometheus.CounterVec
	WithdrawAmountTotal   *prometheus.CounterVec
	WithdrawRejectedTotal *prometheus.CounterVec
	SweepJobDuration      *prometheus.HistogramVec
	SweepAmountTotal      *prometheus.CounterVec
	AdapterErrorsTotal    *prometheus.CounterVec
	ScanJobDuration       *prometheus.HistogramVec
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		DepositCreditedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_deposit_credited_total",
			Help: "The total number of credited deposits",
		}, []string{"network"}),
		DepositAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_deposit_amount_total",
			Help: "The total amount of credited deposits (USDT)",
		}, []string{"network"}),
		WithdrawAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_withdraw_amount_total",
			Help: "The total amount of requested withdrawals (USDT)",
		}, []string{"network"}),
		WithdrawRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_withdraw_rejected_total",
			Help: "Total number of rejected withdrawals",
		}, []string{"network"}),
		SweepJobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_sweep_job_duration_seconds",
			Help:    "Duration of sweep jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"network"}),
		SweepAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_sweep_amount_total",
			Help: "The total amount swept into hot wallets (USDT)",
		}, []string{"network"}),
		AdapterErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_adapter_errors_total",
			Help: "Transient adapter (RPC) errors per network",
		}, []string{"network", "op"}),
		ScanJobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_scan_job_duration_seconds",
			Help:    "Duration of deposit discovery/confirmation passes",
			Buckets: prometheus.DefBuckets,
		}, []string{"pass"}),
	}
}
