package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	// 各テストで新しいレジストリを使用
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.BookingsTotal)
	assert.NotNil(t, m.DistributedLockDuration)
	assert.NotNil(t, m.SessionsScheduledTotal)
	assert.NotNil(t, m.ExpiredHoldsReleased)
	assert.NotNil(t, m.PlannerSkippedRanges)
}

func TestHTTPRequestsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	// リクエストをカウント
	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/sessions", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/bookings", "201").Inc()
	m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/bookings", "409").Inc()

	// メトリクスが正しく収集されているか確認
	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
			assert.Equal(t, 3, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "http_requests_total metric not found")
}

func TestBookingsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	// 予約成功・失敗をカウント
	m.ObserveBooking("hold", "success")
	m.ObserveBooking("hold", "success")
	m.ObserveBooking("hold", "conflict")
	m.ObserveBooking("hold", "lock_failed")
	m.ObserveBooking("confirm", "expired")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "bookings_total" {
			found = true
			assert.Equal(t, 4, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "bookings_total metric not found")
}

func TestDistributedLockDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	// ロック取得時間を観測
	m.DistributedLockDuration.WithLabelValues("acquire", "success").Observe(0.015)
	m.DistributedLockDuration.WithLabelValues("acquire", "failed").Observe(0.005)
	m.ObserveLock("release", "success", time.Now())

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "distributed_lock_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found, "distributed_lock_duration_seconds metric not found")
}

func TestSessionsScheduledTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveSessionScheduled("success")
	m.ObserveSessionScheduled("overlap")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "sessions_scheduled_total" {
			found = true
			assert.Equal(t, 2, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "sessions_scheduled_total metric not found")
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.AddExpiredHoldsReleased(3)
	m.AddExpiredHoldsReleased(0)
	m.AddPlannerSkipped(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if metric.GetCounter() != nil {
				values[f.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, values["expired_holds_released_total"])
	assert.Equal(t, 2.0, values["planner_skipped_time_ranges_total"])
}

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveBooking("hold", "success")
		m.ObserveLock("acquire", "success", time.Now())
		m.ObserveSessionScheduled("success")
		m.AddExpiredHoldsReleased(1)
		m.AddPlannerSkipped(1)
	})
}

func TestHTTPRequestDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	// レイテンシを観測
	m.HTTPRequestDuration.WithLabelValues("GET", "/api/v1/sessions").Observe(0.025)
	m.HTTPRequestDuration.WithLabelValues("POST", "/api/v1/bookings").Observe(0.150)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "http_request_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found, "http_request_duration_seconds metric not found")
}

func TestGet_ReturnsDefaultMetrics(t *testing.T) {
	// Getは defaultMetrics を返す
	// 注意: Init が呼ばれていない場合は nil を返す可能性がある
	m := Get()
	// nil または Metrics インスタンスが返る
	if m != nil {
		assert.NotNil(t, m.HTTPRequestsTotal)
	}
}

func TestInit_CreatesDefaultMetrics(t *testing.T) {
	// 既存のdefaultMetricsをバックアップ
	oldMetrics := defaultMetrics
	defer func() { defaultMetrics = oldMetrics }()

	// 新しいレジストリでテスト用メトリクスを作成してdefaultMetricsにセット
	// 注意: Initを呼ぶとデフォルトレジストリに登録するため、テストでは直接セット
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	defaultMetrics = m

	// Get()がdefaultMetricsを返すことを確認
	got := Get()
	assert.NotNil(t, got)
	assert.Equal(t, m, got)
}
