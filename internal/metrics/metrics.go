package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 删除结果的标签值。
const (
	OutcomeDeleted  = "deleted"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

var (
	// providerCallsTotal 记录远端调用次数
	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_provider_calls_total",
			Help: "Total number of media provider calls",
		},
		[]string{"provider", "op", "outcome"},
	)

	// providerCallDuration 记录远端调用耗时
	providerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_provider_call_duration_seconds",
			Help:    "Media provider call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "op"},
	)

	// assetsDeletedTotal 按结果统计删除的资源数
	assetsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_deletions_total",
			Help: "Total number of asset deletions by outcome",
		},
		[]string{"outcome"},
	)

	// deleteChunkFailures 整批失败的次数
	deleteChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_delete_chunk_failures_total",
		Help: "Total number of bulk delete chunks that failed as a whole",
	})

	// usageFetchFailures 账户用量获取失败次数（不含后端不支持）
	usageFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asset_usage_fetch_failures_total",
		Help: "Total number of failed best-effort account usage fetches",
	})
)

// ObserveProviderCall 记录一次远端调用。
func ObserveProviderCall(provider, op string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerCallsTotal.WithLabelValues(provider, op, outcome).Inc()
	providerCallDuration.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

// AddDeletions 按结果累加删除数量。
func AddDeletions(outcome string, n int) {
	if n <= 0 {
		return
	}
	assetsDeletedTotal.WithLabelValues(outcome).Add(float64(n))
}

func IncDeleteChunkFailure() {
	deleteChunkFailures.Inc()
}

func IncUsageFetchFailure() {
	usageFetchFailures.Inc()
}
