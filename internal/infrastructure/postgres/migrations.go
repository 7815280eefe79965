package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
)

// ErrDirtySchema は途中で失敗したマイグレーションが残っている
var ErrDirtySchema = errors.New("スキーマがdirty状態です。手動で修正してください")

// RunMigrations は migrationsPath 以下のマイグレーションを最新まで適用する
// 上映回・上映枠・座席状態のテーブル定義はすべてここで作られる
func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("マイグレーションドライバー作成エラー: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("マイグレーションインスタンス作成エラー(%s): %w", migrationsPath, err)
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return ErrDirtySchema
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return fmt.Errorf("マイグレーション実行エラー: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("マイグレーションバージョン取得エラー: %w", err)
	}
	logger.Named("migrate").Info("マイグレーション適用済み", zap.Uint("version", version))
	return nil
}
