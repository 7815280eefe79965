package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
)

// BookingCleaner は期限切れの仮押さえ予約をキャンセルするインターフェース
type BookingCleaner interface {
	CancelExpiredBookings(ctx context.Context, grace time.Duration) (int, error)
}

// ExpiredBookingCleaner は期限切れの仮押さえを定期的に解放するワーカー。
// 仮押さえの期限判定は予約時にも行うため、このワーカーは座席状態と予約の後始末を担う
type ExpiredBookingCleaner struct {
	bookingService BookingCleaner
	interval       time.Duration
	grace          time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewExpiredBookingCleaner は新しいクリーナーを作成
func NewExpiredBookingCleaner(
	bs BookingCleaner,
	interval time.Duration,
	grace time.Duration,
) *ExpiredBookingCleaner {
	return &ExpiredBookingCleaner{
		bookingService: bs,
		interval:       interval,
		grace:          grace,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はクリーナーを開始し、ctx のキャンセルか Stop まで戻らない
func (c *ExpiredBookingCleaner) Start(ctx context.Context) {
	logger.Info("期限切れ仮押さえクリーナー開始",
		zap.Duration("interval", c.interval),
		zap.Duration("grace", c.grace),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ仮押さえクリーナー停止（コンテキストキャンセル）")
			return
		case <-c.stopCh:
			logger.Info("期限切れ仮押さえクリーナー停止（シグナル受信）")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// Stop はクリーナーを停止
func (c *ExpiredBookingCleaner) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *ExpiredBookingCleaner) cleanup(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れ仮押さえのクリーンアップ開始")

	count, err := c.bookingService.CancelExpiredBookings(ctx, c.grace)
	if err != nil {
		log.Error("期限切れ仮押さえのクリーンアップ失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ仮押さえを解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れ仮押さえなし")
	}
}
