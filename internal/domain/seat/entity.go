package seat

import "time"

// Status は上映枠ごとの座席の状態を表す
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusBooked    Status = "booked"
)

// SeatStatus は (座席, 上映枠) ごとの状態を表す。行が存在しない組は available とみなす
type SeatStatus struct {
	SeatID        string
	TimeRangeID   string
	Status        Status
	BookingID     *string
	HoldExpiresAt *time.Time
	UpdatedAt     time.Time
	Version       int // 楽観的ロック用
}

// NewSeatStatus は利用可能な状態の行を作成する
func NewSeatStatus(seatID, timeRangeID string) *SeatStatus {
	return &SeatStatus{
		SeatID:      seatID,
		TimeRangeID: timeRangeID,
		Status:      StatusAvailable,
		UpdatedAt:   time.Now(),
		Version:     0,
	}
}

// IsAvailableAt は now 時点で仮押さえできるかを返す（期限切れの仮押さえは空き扱い）
func (s *SeatStatus) IsAvailableAt(now time.Time) bool {
	switch s.Status {
	case StatusAvailable:
		return true
	case StatusPending:
		return s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
	default:
		return false
	}
}

// EffectiveStatus は期限切れの仮押さえを available として返す
func (s *SeatStatus) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusPending && s.IsAvailableAt(now) {
		return StatusAvailable
	}
	return s.Status
}

// IsHeldBy は指定の予約が保持しているかを返す
func (s *SeatStatus) IsHeldBy(bookingID string) bool {
	return s.BookingID != nil && *s.BookingID == bookingID
}

// Hold は座席を仮押さえする
func (s *SeatStatus) Hold(bookingID string, until, now time.Time) error {
	if !s.IsAvailableAt(now) {
		return ErrSeatNotAvailable
	}
	s.Status = StatusPending
	s.BookingID = &bookingID
	s.HoldExpiresAt = &until
	s.UpdatedAt = now
	s.Version++
	return nil
}

// Book は仮押さえを確定する
func (s *SeatStatus) Book(bookingID string, now time.Time) error {
	if s.Status != StatusPending || !s.IsHeldBy(bookingID) {
		return ErrSeatNotHeld
	}
	if s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now) {
		return ErrHoldExpired
	}
	s.Status = StatusBooked
	s.HoldExpiresAt = nil
	s.UpdatedAt = now
	s.Version++
	return nil
}

// Release は指定の予約が保持している座席を解放する
func (s *SeatStatus) Release(bookingID string) error {
	if !s.IsHeldBy(bookingID) {
		return ErrSeatNotHeld
	}
	s.Status = StatusAvailable
	s.BookingID = nil
	s.HoldExpiresAt = nil
	s.UpdatedAt = time.Now()
	s.Version++
	return nil
}
