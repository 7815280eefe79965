package booking

import (
	"context"
	"time"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// ReplaceSeats は仮押さえ中の予約の座席・料金・期限を更新する（トランザクション必須）
	ReplaceSeats(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// MarkConfirmed は pending かつ now が期限前の予約だけを確定する（トランザクション必須）
	// 条件に合わない場合は ErrBookingNotPending を返す
	MarkConfirmed(ctx context.Context, tx transaction.Tx, booking *Booking, now time.Time) error

	// MarkCancelled は pending / confirmed の予約をキャンセル済みにする（トランザクション必須）
	MarkCancelled(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByIDForUpdate はトランザクション内で予約を行ロック付きで取得する
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// GetByIdempotencyKey は冪等性キーから予約を取得する
	GetByIdempotencyKey(ctx context.Context, key string) (*Booking, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)

	// ListExpiredPending は期限切れの仮押さえ予約を取得する
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Booking, error)

	// HasActiveForTimeRange は上映枠に有効な予約（pending / confirmed）があるかを返す
	HasActiveForTimeRange(ctx context.Context, tx transaction.Tx, timeRangeID string) (bool, error)
}
