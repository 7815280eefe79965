package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 仮押さえ・確定の結果（operation: hold/confirm/cancel, status: success, conflict, lock_failed, expired, error）
	BookingsTotal *prometheus.CounterVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec

	// セッション登録・更新の結果（status: success, overlap, error）
	SessionsScheduledTotal *prometheus.CounterVec

	// 期限切れで解放された仮押さえの数
	ExpiredHoldsReleased prometheus.Counter

	// 空き枠計算でスキップした不正な上映枠の数
	PlannerSkippedRanges prometheus.Counter
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking operations by outcome",
			},
			[]string{"operation", "status"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		SessionsScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_scheduled_total",
				Help: "Total number of session create/update attempts by outcome",
			},
			[]string{"status"},
		),
		ExpiredHoldsReleased: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_holds_released_total",
				Help: "Total number of pending bookings cancelled after their hold expired",
			},
		),
		PlannerSkippedRanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_skipped_time_ranges_total",
				Help: "Total number of malformed time ranges skipped by the availability planner",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.DistributedLockDuration,
		m.SessionsScheduledTotal,
		m.ExpiredHoldsReleased,
		m.PlannerSkippedRanges,
	)

	return m
}

// 以下のヘルパーは nil レシーバでも安全に呼べる（メトリクス無効時）

// ObserveBooking は予約操作の結果を記録する
func (m *Metrics) ObserveBooking(operation, status string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveLock は分散ロック操作の時間を記録する
func (m *Metrics) ObserveLock(operation, status string, started time.Time) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// ObserveSessionScheduled はセッション登録・更新の結果を記録する
func (m *Metrics) ObserveSessionScheduled(status string) {
	if m == nil {
		return
	}
	m.SessionsScheduledTotal.WithLabelValues(status).Inc()
}

// AddExpiredHoldsReleased は期限切れ解放数を加算する
func (m *Metrics) AddExpiredHoldsReleased(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredHoldsReleased.Add(float64(n))
}

// AddPlannerSkipped はスキップした上映枠の数を加算する
func (m *Metrics) AddPlannerSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PlannerSkippedRanges.Add(float64(n))
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
