package movie

import "context"

// Repository は映画リポジトリのインターフェース
type Repository interface {
	// Create は新しい映画を作成する
	Create(ctx context.Context, movie *Movie) error

	// GetByID はIDから映画を取得する
	GetByID(ctx context.Context, id string) (*Movie, error)

	// List は映画一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Movie, error)
}
