package room

import "context"

// Repository はスクリーンリポジトリのインターフェース
type Repository interface {
	// Create はスクリーンと座席をまとめて作成する
	Create(ctx context.Context, room *Room) error

	// GetByID はIDからスクリーンを座席付きで取得する
	GetByID(ctx context.Context, id string) (*Room, error)
}
