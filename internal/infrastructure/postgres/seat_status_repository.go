package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/seat"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

type seatStatusRow struct {
	SeatID        string     `db:"seat_id"`
	TimeRangeID   string     `db:"time_range_id"`
	Status        string     `db:"status"`
	BookingID     *string    `db:"booking_id"`
	HoldExpiresAt *time.Time `db:"hold_expires_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	Version       int        `db:"version"`
}

func (r *seatStatusRow) toEntity() *seat.SeatStatus {
	return &seat.SeatStatus{
		SeatID: r.SeatID, TimeRangeID: r.TimeRangeID,
		Status: seat.Status(r.Status), BookingID: r.BookingID,
		HoldExpiresAt: r.HoldExpiresAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

// SeatStatusRepository は座席状態リポジトリのPostgreSQL実装
type SeatStatusRepository struct{ db *sqlx.DB }

// NewSeatStatusRepository はSeatStatusRepositoryを作成する
func NewSeatStatusRepository(db *sqlx.DB) *SeatStatusRepository {
	return &SeatStatusRepository{db: db}
}

// EnsureStatuses は存在しない (座席, 上映枠) の行を available で作成する
func (r *SeatStatusRepository) EnsureStatuses(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO seat_statuses (seat_id, time_range_id, status, updated_at, version)
		SELECT s, $2::uuid, 'available', NOW(), 0 FROM unnest($1::uuid[]) AS s
		ON CONFLICT (seat_id, time_range_id) DO NOTHING
	`
	if _, err := sqlTx.ExecContext(ctx, query, pq.Array(seatIDs), timeRangeID); err != nil {
		return fmt.Errorf("座席状態の作成に失敗: %w", err)
	}
	return nil
}

// Hold は空き、または期限切れの仮押さえだけを1文の条件付きUPDATEで仮押さえする
// 同じ行を競合して更新した場合、後続のUPDATEはコミット後の行で条件を再評価するため二重に仮押さえされない
func (r *SeatStatusRepository) Hold(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string, bookingID string, until, now time.Time) ([]string, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE seat_statuses
		SET status = 'pending', booking_id = $1, hold_expires_at = $2, updated_at = $3, version = version + 1
		WHERE time_range_id = $4
		  AND seat_id = ANY($5::uuid[])
		  AND (status = 'available' OR (status = 'pending' AND hold_expires_at <= $3))
		RETURNING seat_id
	`
	var held []string
	if err := sqlTx.SelectContext(ctx, &held, query, bookingID, until, now, timeRangeID, pq.Array(seatIDs)); err != nil {
		return nil, fmt.Errorf("座席の仮押さえに失敗: %w", err)
	}
	return held, nil
}

// Confirm は予約が保持している期限内の仮押さえを booked にする
func (r *SeatStatusRepository) Confirm(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string, now time.Time) (int, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return 0, err
	}
	query := `
		UPDATE seat_statuses
		SET status = 'booked', hold_expires_at = NULL, updated_at = $1, version = version + 1
		WHERE time_range_id = $2 AND booking_id = $3 AND status = 'pending' AND hold_expires_at > $1
	`
	result, err := sqlTx.ExecContext(ctx, query, now, timeRangeID, bookingID)
	if err != nil {
		return 0, fmt.Errorf("座席確定に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// Release は予約が保持している座席を available に戻す
func (r *SeatStatusRepository) Release(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string) (int, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return 0, err
	}
	query := `
		UPDATE seat_statuses
		SET status = 'available', booking_id = NULL, hold_expires_at = NULL, updated_at = NOW(), version = version + 1
		WHERE time_range_id = $1 AND booking_id = $2
	`
	result, err := sqlTx.ExecContext(ctx, query, timeRangeID, bookingID)
	if err != nil {
		return 0, fmt.Errorf("座席解放に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// ListByTimeRange は上映枠の座席状態一覧を取得する
func (r *SeatStatusRepository) ListByTimeRange(ctx context.Context, timeRangeID string) ([]*seat.SeatStatus, error) {
	return r.listByTimeRange(ctx, r.db, timeRangeID)
}

func (r *SeatStatusRepository) listByTimeRange(ctx context.Context, q sqlx.QueryerContext, timeRangeID string) ([]*seat.SeatStatus, error) {
	var rows []seatStatusRow
	query := `
		SELECT seat_id, time_range_id, status, booking_id, hold_expires_at, updated_at, version
		FROM seat_statuses WHERE time_range_id = $1
	`
	if err := sqlx.SelectContext(ctx, q, &rows, query, timeRangeID); err != nil {
		return nil, fmt.Errorf("座席状態取得に失敗: %w", err)
	}
	statuses := make([]*seat.SeatStatus, len(rows))
	for i := range rows {
		statuses[i] = rows[i].toEntity()
	}
	return statuses, nil
}

var _ seat.Repository = (*SeatStatusRepository)(nil)
