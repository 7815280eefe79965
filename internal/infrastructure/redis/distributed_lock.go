package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// lockPrefix は Redis 上のロックキーの名前空間
const lockPrefix = "lock:"

// SeatLockKey は上映枠内の座席集合に対するロックキーを返す
// 座席IDはソートするので、同じ集合なら指定順に関係なく同じキーになる
func SeatLockKey(timeRangeID string, seatIDs []string) string {
	sorted := append([]string(nil), seatIDs...)
	sort.Strings(sorted)
	return "seats:" + timeRangeID + ":" + strings.Join(sorted, ",")
}

// ScheduleLockKey はスクリーン・上映日単位のスケジュール変更ロックのキーを返す
func ScheduleLockKey(roomID string, date time.Time) string {
	return "schedule:" + roomID + ":" + date.Format("2006-01-02")
}

// Lock は取得済みのロック
type Lock interface {
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

// LockManagerInterface はロックの取得を抽象化する（アプリケーション層のテスト用）
type LockManagerInterface interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error)
}

// 値が自分のトークンと一致する場合だけ操作する
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// DistributedLock は SET NX PX で取ったロック。token を知っている保持者だけが解放・延長できる
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
}

// LockManager は座席・スケジュールのロックを Redis 上で管理する
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// AcquireLock は一度だけロック取得を試みる。他が保持していれば ErrLockNotAcquired
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	l := &DistributedLock{client: m.client, key: lockPrefix + key, token: uuid.NewString()}

	ok, err := m.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗(%s): %w", key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return l, nil
}

// AcquireLockWithRetry は retryDelay 間隔で最大 maxRetries 回まで取得を試みる
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error) {
	for attempt := 1; ; attempt++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if !errors.Is(err, ErrLockNotAcquired) || attempt >= maxRetries {
			return lock, err
		}

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release はロックを解放する。期限切れで他の保持者に移っていれば ErrLockNotOwned
func (l *DistributedLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を ttl に延ばす
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

var _ LockManagerInterface = (*LockManager)(nil)
