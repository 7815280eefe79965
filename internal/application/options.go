package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/metrics"
)

// Option はサービスの任意の依存を設定する
type Option func(*options)

type options struct {
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// WithPublisher はドメインイベントの配信先を設定する
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock は現在時刻の取得方法を差し替える（テスト用）
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish はイベントを配信する。失敗してもログに残すだけで処理は続ける
func (o options) publish(ctx context.Context, event any) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		logger.Warn("イベント配信に失敗",
			zap.String("event", fmt.Sprintf("%T", event)),
			zap.Error(err),
		)
	}
}
