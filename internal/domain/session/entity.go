package session

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
)

// Status はセッションの状態を表す
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Session は上映セッション（映画・スクリーン・日付・上映枠の集約）を表す
type Session struct {
	ID          string
	MovieID     string
	CinemaID    string
	RoomID      string
	SessionDate time.Time
	Price       decimal.Decimal
	Status      Status
	TimeRanges  []TimeRange
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int // 楽観的ロック用
}

// NewSession は新しいセッションを作成する
func NewSession(movieID, cinemaID, roomID string, sessionDate time.Time, price decimal.Decimal, ranges []TimeRange) *Session {
	now := time.Now()
	return &Session{
		MovieID:     movieID,
		CinemaID:    cinemaID,
		RoomID:      roomID,
		SessionDate: DateOf(sessionDate),
		Price:       price,
		Status:      StatusActive,
		TimeRanges:  ranges,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     0,
	}
}

// DateOf は時刻をその日の 0:00（同じロケーション）に丸める
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsActive はセッションが有効かを返す
func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// SoftDelete はセッションを論理削除する
func (s *Session) SoftDelete() error {
	if s.Status == StatusDeleted {
		return ErrSessionDeleted
	}
	s.Status = StatusDeleted
	s.UpdatedAt = time.Now()
	return nil
}

// FindTimeRange は上映枠IDから上映枠を探す
func (s *Session) FindTimeRange(id string) (TimeRange, bool) {
	for _, tr := range s.TimeRanges {
		if tr.ID == id {
			return tr, true
		}
	}
	return TimeRange{}, false
}

// Validate はセッションの検証を行う。上映枠はスクリーンの営業時間内かつ上映時間以上の長さが必要
func (s *Session) Validate(r *room.Room, runtime time.Duration) error {
	if s.MovieID == "" {
		return ErrMovieIDRequired
	}
	if s.CinemaID == "" {
		return room.ErrCinemaIDRequired
	}
	if s.RoomID == "" {
		return ErrRoomIDRequired
	}
	if s.SessionDate.IsZero() {
		return ErrSessionDateRequired
	}
	if s.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if r.CinemaID != s.CinemaID {
		return room.ErrCinemaMismatch
	}
	if len(s.TimeRanges) == 0 {
		return ErrTimeRangesRequired
	}

	open, closeAt := r.OpeningWindow(s.SessionDate)
	for i, tr := range s.TimeRanges {
		if !tr.IsValid() {
			return ErrInvalidTimeRange
		}
		if !tr.Within(open, closeAt) {
			return ErrOutsideOpeningHours
		}
		if tr.Duration() < runtime {
			return ErrTimeRangeTooShort
		}
		for _, other := range s.TimeRanges[i+1:] {
			if tr.Overlaps(other) {
				return ErrOverlappingTimeRanges
			}
		}
	}
	return nil
}
