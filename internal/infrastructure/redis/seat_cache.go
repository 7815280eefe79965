package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("キャッシュが見つかりません")

// availablePrefix の後ろに上映枠IDを付けたキーに空席数を置く
const availablePrefix = "seats:available:"

// SeatCacheInterface は上映枠ごとの空席数キャッシュ
type SeatCacheInterface interface {
	GetAvailableCount(ctx context.Context, timeRangeID string) (int, error)
	SetAvailableCount(ctx context.Context, timeRangeID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, timeRangeID string) error
}

// SeatCache は上映枠の空席数を Redis に保持する
// 仮押さえ・確定・キャンセルのたびに無効化され、次の参照で座席表から再計算される
type SeatCache struct {
	client *redis.Client
}

func NewSeatCache(client *redis.Client) *SeatCache {
	return &SeatCache{client: client}
}

// GetAvailableCount はキャッシュ済みの空席数を返す。未計算なら ErrCacheMiss
func (c *SeatCache) GetAvailableCount(ctx context.Context, timeRangeID string) (int, error) {
	raw, err := c.client.Get(ctx, availablePrefix+timeRangeID).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, ErrCacheMiss
	case err != nil:
		return 0, fmt.Errorf("空席数キャッシュの取得に失敗(%s): %w", timeRangeID, err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		// 壊れた値は無かったことにして再計算させる
		return 0, ErrCacheMiss
	}
	return count, nil
}

// SetAvailableCount は空席数を ttl 付きで保存する
func (c *SeatCache) SetAvailableCount(ctx context.Context, timeRangeID string, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, availablePrefix+timeRangeID, count, ttl).Err(); err != nil {
		return fmt.Errorf("空席数キャッシュの保存に失敗(%s): %w", timeRangeID, err)
	}
	return nil
}

// Invalidate は上映枠の空席数を捨てる。キーが無くてもエラーにしない
func (c *SeatCache) Invalidate(ctx context.Context, timeRangeID string) error {
	if err := c.client.Del(ctx, availablePrefix+timeRangeID).Err(); err != nil {
		return fmt.Errorf("空席数キャッシュの無効化に失敗(%s): %w", timeRangeID, err)
	}
	return nil
}

var _ SeatCacheInterface = (*SeatCache)(nil)
