package session

import (
	"context"
	"time"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

// Repository はセッションリポジトリのインターフェース
type Repository interface {
	// Create はセッションと上映枠を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, session *Session) error

	// Update はセッションを更新し、上映枠を置き換える（楽観的ロック、トランザクション必須）
	// 取り除かれた上映枠は論理的に無効化される
	Update(ctx context.Context, tx transaction.Tx, session *Session) error

	// SoftDelete はセッションを論理削除する（トランザクション必須）
	SoftDelete(ctx context.Context, tx transaction.Tx, session *Session) error

	// GetByID はIDからセッションを取得する（削除済みも含む）
	GetByID(ctx context.Context, id string) (*Session, error)

	// GetByIDForUpdate はセッションと有効な上映枠を行ロック付きで取得する（トランザクション必須）
	// 変更・削除の前に呼び、並行する仮押さえをコミットまで待たせる
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Session, error)

	// GetTimeRangeForShare は有効なセッションに属する有効な上映枠を共有ロック付きで取得する（トランザクション必須）
	// 見つからなければ ErrTimeRangeNotFound
	GetTimeRangeForShare(ctx context.Context, tx transaction.Tx, sessionID, timeRangeID string) (*TimeRange, error)

	// ListActiveByRoomAndDate はスクリーン・日付の有効なセッションを取得する
	ListActiveByRoomAndDate(ctx context.Context, roomID string, date time.Time) ([]*Session, error)

	// ListActiveByRoomAndDateTx はトランザクション内で最新のコミット済みセッションを取得する
	ListActiveByRoomAndDateTx(ctx context.Context, tx transaction.Tx, roomID string, date time.Time) ([]*Session, error)

	// LockRoomSchedule はスクリーン・日付単位のトランザクションロックを取得する
	LockRoomSchedule(ctx context.Context, tx transaction.Tx, roomID string, date time.Time) error

	// ListByCinemaAndDate は映画館・日付の有効なセッション一覧を取得する
	ListByCinemaAndDate(ctx context.Context, cinemaID string, date time.Time) ([]*Session, error)
}
