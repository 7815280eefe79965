package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

// ErrInvalidTx は postgres 以外のトランザクションが渡された
var ErrInvalidTx = errors.New("PostgreSQLのトランザクションではありません")

// pgTx は sqlx.Tx を transaction.Tx として扱うためのラッパー
type pgTx struct {
	*sqlx.Tx
}

// TxManager は sqlx.DB 上でトランザクションを開始する
// 座席の状態遷移は行ロック(FOR UPDATE)と条件付き UPDATE で守るので READ COMMITTED で足りる
type TxManager struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{
		db:   db,
		opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始エラー: %w", err)
	}
	return pgTx{Tx: tx}, nil
}

// mustTx はリポジトリに渡された transaction.Tx から sqlx.Tx を取り出す
func mustTx(tx transaction.Tx) (*sqlx.Tx, error) {
	t, ok := tx.(pgTx)
	if !ok || t.Tx == nil {
		return nil, ErrInvalidTx
	}
	return t.Tx, nil
}

// advisoryXactLock はキー単位のアドバイザリロックをトランザクション終了まで保持する
// Redis のロックが切れていても、同じスクリーン・日付の書き込みはここで直列化される
func advisoryXactLock(ctx context.Context, tx transaction.Tx, key string) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("アドバイザリロック取得エラー(%s): %w", key, err)
	}
	return nil
}

var _ transaction.Manager = (*TxManager)(nil)
