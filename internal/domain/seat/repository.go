package seat

import (
	"context"
	"time"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

// Repository は座席状態リポジトリのインターフェース
type Repository interface {
	// EnsureStatuses は (座席, 上映枠) の行がなければ available で作成する（トランザクション必須）
	EnsureStatuses(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string) error

	// Hold は空き、または仮押さえ期限切れの座席だけを条件付きで仮押さえし、
	// 実際に仮押さえできた座席IDを返す（トランザクション必須）
	Hold(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string, bookingID string, until, now time.Time) ([]string, error)

	// Confirm は予約が保持している期限内の仮押さえを booked にし、更新件数を返す（トランザクション必須）
	Confirm(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string, now time.Time) (int, error)

	// Release は予約が保持している座席を available に戻し、更新件数を返す（トランザクション必須）
	Release(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string) (int, error)

	// ListByTimeRange は上映枠の座席状態一覧を取得する
	ListByTimeRange(ctx context.Context, timeRangeID string) ([]*SeatStatus, error)
}
