package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

const bookingColumns = `id, session_id, time_range_id, user_id, status, price, idempotency_key,
	time_range_start, time_range_end, expires_at, confirmed_at, cancelled_at, cancel_reason, created_at, updated_at`

type bookingRow struct {
	ID             string          `db:"id"`
	SessionID      string          `db:"session_id"`
	TimeRangeID    string          `db:"time_range_id"`
	UserID         string          `db:"user_id"`
	Status         string          `db:"status"`
	Price          decimal.Decimal `db:"price"`
	IdempotencyKey string          `db:"idempotency_key"`
	TimeRangeStart time.Time       `db:"time_range_start"`
	TimeRangeEnd   time.Time       `db:"time_range_end"`
	ExpiresAt      time.Time       `db:"expires_at"`
	ConfirmedAt    *time.Time      `db:"confirmed_at"`
	CancelledAt    *time.Time      `db:"cancelled_at"`
	CancelReason   string          `db:"cancel_reason"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

type bookingSeatRow struct {
	BookingID  string `db:"booking_id"`
	SeatID     string `db:"seat_id"`
	SeatNumber string `db:"seat_number"`
	IsPMR      bool   `db:"is_pmr"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, SessionID: r.SessionID, TimeRangeID: r.TimeRangeID, UserID: r.UserID,
		Status: booking.Status(r.Status), Price: r.Price, IdempotencyKey: r.IdempotencyKey,
		TimeRangeStart: r.TimeRangeStart, TimeRangeEnd: r.TimeRangeEnd, ExpiresAt: r.ExpiresAt,
		ConfirmedAt: r.ConfirmedAt, CancelledAt: r.CancelledAt, CancelReason: r.CancelReason,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// BookingRepository は予約リポジトリのPostgreSQL実装
type BookingRepository struct{ db *sqlx.DB }

// NewBookingRepository はBookingRepositoryを作成する
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create は新しい予約を作成する
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO bookings (session_id, time_range_id, user_id, status, price, idempotency_key,
			time_range_start, time_range_end, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	if err := sqlTx.QueryRowContext(ctx, query,
		b.SessionID, b.TimeRangeID, b.UserID, string(b.Status), b.Price, b.IdempotencyKey,
		b.TimeRangeStart, b.TimeRangeEnd, b.ExpiresAt, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID); err != nil {
		if isUniqueViolation(err) {
			return booking.ErrIdempotencyKeyAlreadyExists
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return r.insertSeats(ctx, sqlTx, b)
}

func (r *BookingRepository) insertSeats(ctx context.Context, tx *sqlx.Tx, b *booking.Booking) error {
	for _, s := range b.Seats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO booking_seats (booking_id, seat_id, seat_number, is_pmr) VALUES ($1, $2, $3, $4)`,
			b.ID, s.SeatID, s.SeatNumber, s.IsPMR,
		); err != nil {
			return fmt.Errorf("予約座席関連付けに失敗: %w", err)
		}
	}
	return nil
}

// ReplaceSeats は仮押さえ中の予約の座席・料金・期限を差し替える
func (r *BookingRepository) ReplaceSeats(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlTx.ExecContext(ctx,
		`UPDATE bookings SET price = $1, expires_at = $2, updated_at = $3 WHERE id = $4 AND status = 'pending'`,
		b.Price, b.ExpiresAt, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return booking.ErrBookingNotPending
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = $1`, b.ID); err != nil {
		return fmt.Errorf("予約座席の削除に失敗: %w", err)
	}
	return r.insertSeats(ctx, sqlTx, b)
}

// MarkConfirmed は pending かつ期限内の予約だけを確定する
func (r *BookingRepository) MarkConfirmed(ctx context.Context, tx transaction.Tx, b *booking.Booking, now time.Time) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlTx.ExecContext(ctx,
		`UPDATE bookings SET status = 'confirmed', confirmed_at = $1, updated_at = $1
		 WHERE id = $2 AND status = 'pending' AND expires_at > $1`,
		now, b.ID,
	)
	if err != nil {
		return fmt.Errorf("予約確定に失敗: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return booking.ErrBookingNotPending
	}
	return nil
}

// MarkCancelled は pending / confirmed の予約をキャンセル済みにする
func (r *BookingRepository) MarkCancelled(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlTx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', cancelled_at = $1, cancel_reason = $2, updated_at = $3
		 WHERE id = $4 AND status IN ('pending', 'confirmed')`,
		b.CancelledAt, b.CancelReason, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("予約キャンセルに失敗: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return booking.ErrInvalidStatus
	}
	return nil
}

// GetByID はIDから予約を取得する
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.getOne(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetByIDForUpdate はトランザクション内で予約を行ロック付きで取得する
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, sqlTx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

// GetByIdempotencyKey は冪等性キーから予約を取得する
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*booking.Booking, error) {
	return r.getOne(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key = $1`, key)
}

func (r *BookingRepository) getOne(ctx context.Context, q sqlx.QueryerContext, query string, arg string) (*booking.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	bookings, err := r.withSeats(ctx, q, []bookingRow{row})
	if err != nil {
		return nil, err
	}
	return bookings[0], nil
}

// GetByUserID はユーザーIDから予約一覧を新しい順に取得する
func (r *BookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return r.withSeats(ctx, r.db, rows)
}

// ListExpiredPending は期限切れの仮押さえ予約を期限の古い順に取得する
func (r *BookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'pending' AND expires_at <= $1 ORDER BY expires_at LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, now, limit); err != nil {
		return nil, fmt.Errorf("期限切れ予約取得に失敗: %w", err)
	}
	return r.withSeats(ctx, r.db, rows)
}

// HasActiveForTimeRange は上映枠に pending / confirmed の予約があるかを返す
func (r *BookingRepository) HasActiveForTimeRange(ctx context.Context, tx transaction.Tx, timeRangeID string) (bool, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return false, err
	}
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE time_range_id = $1 AND status IN ('pending', 'confirmed'))`
	if err := sqlTx.GetContext(ctx, &exists, query, timeRangeID); err != nil {
		return false, fmt.Errorf("予約の存在確認に失敗: %w", err)
	}
	return exists, nil
}

// withSeats は予約座席をまとめて読み込む
func (r *BookingRepository) withSeats(ctx context.Context, q sqlx.QueryerContext, rows []bookingRow) ([]*booking.Booking, error) {
	result := make([]*booking.Booking, len(rows))
	if len(rows) == 0 {
		return result, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]*booking.Booking, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
		ids[i] = rows[i].ID
		index[rows[i].ID] = result[i]
	}

	var seatRows []bookingSeatRow
	query := `SELECT booking_id, seat_id, seat_number, is_pmr FROM booking_seats WHERE booking_id = ANY($1::uuid[]) ORDER BY seat_number`
	if err := sqlx.SelectContext(ctx, q, &seatRows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("予約座席取得に失敗: %w", err)
	}
	for _, s := range seatRows {
		b := index[s.BookingID]
		b.Seats = append(b.Seats, booking.BookedSeat{SeatID: s.SeatID, SeatNumber: s.SeatNumber, IsPMR: s.IsPMR})
	}
	return result, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
