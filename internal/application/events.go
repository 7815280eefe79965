package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
)

// EventPublisher はドメインイベントの配信先
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// EventHeader は全イベント共通のヘッダー
type EventHeader struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newEventHeader(now time.Time) EventHeader {
	return EventHeader{ID: uuid.NewString(), OccurredAt: now}
}

// EventTimeRange はイベントに含める上映枠
type EventTimeRange struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SessionScheduled はセッションの登録・更新
type SessionScheduled struct {
	Header      EventHeader      `json:"header"`
	SessionID   string           `json:"sessionId"`
	MovieID     string           `json:"movieId"`
	CinemaID    string           `json:"cinemaId"`
	RoomID      string           `json:"roomId"`
	SessionDate string           `json:"sessionDate"`
	TimeRanges  []EventTimeRange `json:"timeRanges"`
	Updated     bool             `json:"updated"`
}

// SessionDeleted はセッションの論理削除
type SessionDeleted struct {
	Header    EventHeader `json:"header"`
	SessionID string      `json:"sessionId"`
	RoomID    string      `json:"roomId"`
}

// BookingHeld は座席の仮押さえ（新規・変更）
type BookingHeld struct {
	Header      EventHeader `json:"header"`
	BookingID   string      `json:"bookingId"`
	SessionID   string      `json:"sessionId"`
	TimeRangeID string      `json:"timeRangeId"`
	UserID      string      `json:"userId"`
	SeatIDs     []string    `json:"seatIds"`
	Price       string      `json:"price"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// BookingConfirmed は予約の確定。決済・通知はこのイベントを購読する
type BookingConfirmed struct {
	Header      EventHeader `json:"header"`
	BookingID   string      `json:"bookingId"`
	SessionID   string      `json:"sessionId"`
	TimeRangeID string      `json:"timeRangeId"`
	UserID      string      `json:"userId"`
	SeatIDs     []string    `json:"seatIds"`
	Price       string      `json:"price"`
}

// BookingCancelled は予約のキャンセル（ユーザー操作・期限切れ）
type BookingCancelled struct {
	Header      EventHeader `json:"header"`
	BookingID   string      `json:"bookingId"`
	SessionID   string      `json:"sessionId"`
	TimeRangeID string      `json:"timeRangeId"`
	UserID      string      `json:"userId"`
	SeatIDs     []string    `json:"seatIds"`
	Reason      string      `json:"reason"`
}

func newSessionScheduled(s *session.Session, updated bool, now time.Time) SessionScheduled {
	ranges := make([]EventTimeRange, 0, len(s.TimeRanges))
	for _, tr := range s.TimeRanges {
		ranges = append(ranges, EventTimeRange{ID: tr.ID, Start: tr.Start, End: tr.End})
	}
	return SessionScheduled{
		Header:      newEventHeader(now),
		SessionID:   s.ID,
		MovieID:     s.MovieID,
		CinemaID:    s.CinemaID,
		RoomID:      s.RoomID,
		SessionDate: s.SessionDate.Format("2006-01-02"),
		TimeRanges:  ranges,
		Updated:     updated,
	}
}

func newBookingHeld(b *booking.Booking, now time.Time) BookingHeld {
	return BookingHeld{
		Header:      newEventHeader(now),
		BookingID:   b.ID,
		SessionID:   b.SessionID,
		TimeRangeID: b.TimeRangeID,
		UserID:      b.UserID,
		SeatIDs:     b.SeatIDs(),
		Price:       b.Price.StringFixed(2),
		ExpiresAt:   b.ExpiresAt,
	}
}

func newBookingConfirmed(b *booking.Booking, now time.Time) BookingConfirmed {
	return BookingConfirmed{
		Header:      newEventHeader(now),
		BookingID:   b.ID,
		SessionID:   b.SessionID,
		TimeRangeID: b.TimeRangeID,
		UserID:      b.UserID,
		SeatIDs:     b.SeatIDs(),
		Price:       b.Price.StringFixed(2),
	}
}

func newBookingCancelled(b *booking.Booking, now time.Time) BookingCancelled {
	return BookingCancelled{
		Header:      newEventHeader(now),
		BookingID:   b.ID,
		SessionID:   b.SessionID,
		TimeRangeID: b.TimeRangeID,
		UserID:      b.UserID,
		SeatIDs:     b.SeatIDs(),
		Reason:      b.CancelReason,
	}
}
