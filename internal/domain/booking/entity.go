package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/seat"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// キャンセル理由
const (
	ReasonCancelledByUser = "cancelled_by_user"
	ReasonExpired         = "expired"
)

// MaxSeatsPerBooking は1回の予約で選べる座席数の上限
const MaxSeatsPerBooking = 9

// HoldTTL は仮押さえの有効期限（デフォルト15分）
const HoldTTL = 15 * time.Minute

// BookedSeat は予約に含まれる座席のスナップショット
type BookedSeat struct {
	SeatID     string
	SeatNumber string
	IsPMR      bool
}

// Booking は予約エンティティを表す
type Booking struct {
	ID             string
	SessionID      string
	TimeRangeID    string
	UserID         string
	Seats          []BookedSeat
	Price          decimal.Decimal
	Status         Status
	IdempotencyKey string
	TimeRangeStart time.Time // 上映枠の非正規化スナップショット
	TimeRangeEnd   time.Time
	ExpiresAt      time.Time
	ConfirmedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewBooking は仮押さえ状態の新しい予約を作成する。ttl が0以下なら HoldTTL を使う
func NewBooking(sessionID, userID, idempotencyKey string, tr session.TimeRange, seats []BookedSeat, price decimal.Decimal, now time.Time, ttl time.Duration) *Booking {
	if ttl <= 0 {
		ttl = HoldTTL
	}
	return &Booking{
		SessionID:      sessionID,
		TimeRangeID:    tr.ID,
		UserID:         userID,
		Seats:          seats,
		Price:          price,
		Status:         StatusPending,
		IdempotencyKey: idempotencyKey,
		TimeRangeStart: tr.Start,
		TimeRangeEnd:   tr.End,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CalculatePrice は基本料金×座席数を返す。5席以上は10%引き、小数第2位で四捨五入
func CalculatePrice(basePrice decimal.Decimal, seatCount int) decimal.Decimal {
	total := basePrice.Mul(decimal.NewFromInt(int64(seatCount)))
	if seatCount >= 5 {
		total = total.Mul(decimal.New(9, -1))
	}
	return total.Round(2)
}

// IsPending は予約が仮押さえ中かを返す
func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// IsExpiredAt は now 時点で仮押さえの期限が切れているかを返す（期限ちょうどは切れている扱い）
func (b *Booking) IsExpiredAt(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// SeatIDs は座席ID一覧を返す
func (b *Booking) SeatIDs() []string {
	ids := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.SeatID)
	}
	return ids
}

// SeatStatus は予約の座席が持つ状態を返す
func (b *Booking) SeatStatus() seat.Status {
	switch b.Status {
	case StatusPending:
		return seat.StatusPending
	case StatusConfirmed:
		return seat.StatusBooked
	default:
		return seat.StatusAvailable
	}
}

// Confirm は予約を確定する
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrBookingNotPending
	}
	if b.IsExpiredAt(now) {
		return ErrBookingExpired
	}
	b.Status = StatusConfirmed
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// Cancel は予約をキャンセルする。既にキャンセル済みなら何もせず false を返す
func (b *Booking) Cancel(now time.Time, reason string) (bool, error) {
	switch b.Status {
	case StatusCancelled:
		return false, nil
	case StatusPending, StatusConfirmed:
		b.Status = StatusCancelled
		b.CancelledAt = &now
		b.CancelReason = reason
		b.UpdatedAt = now
		return true, nil
	default:
		return false, ErrInvalidStatus
	}
}

// ReplaceSeats は仮押さえ中の予約の座席を差し替え、期限を延長する
func (b *Booking) ReplaceSeats(seats []BookedSeat, price decimal.Decimal, now time.Time, ttl time.Duration) error {
	if b.Status != StatusPending {
		return ErrBookingNotPending
	}
	if b.IsExpiredAt(now) {
		return ErrBookingExpired
	}
	if ttl <= 0 {
		ttl = HoldTTL
	}
	b.Seats = seats
	b.Price = price
	b.ExpiresAt = now.Add(ttl)
	b.UpdatedAt = now
	return nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.SessionID == "" {
		return ErrSessionIDRequired
	}
	if b.TimeRangeID == "" {
		return ErrTimeRangeIDRequired
	}
	if b.UserID == "" {
		return ErrUserIDRequired
	}
	if b.IdempotencyKey == "" {
		return ErrIdempotencyKeyRequired
	}
	return ValidateSeatIDs(b.SeatIDs())
}

// ValidateSeatIDs は座席数が 1〜MaxSeatsPerBooking で重複がないかを検証する
func ValidateSeatIDs(seatIDs []string) error {
	if len(seatIDs) == 0 {
		return ErrSeatsRequired
	}
	if len(seatIDs) > MaxSeatsPerBooking {
		return ErrTooManySeats
	}
	seen := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == "" {
			return ErrSeatsRequired
		}
		if _, dup := seen[id]; dup {
			return ErrDuplicateSeat
		}
		seen[id] = struct{}{}
	}
	return nil
}
