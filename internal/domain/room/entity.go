package room

import "time"

// Seat は座席エンティティを表す（PMR は車椅子対応席）
type Seat struct {
	ID         string
	RoomID     string
	SeatNumber string
	IsPMR      bool
}

// Room はスクリーン（上映室）エンティティを表す
type Room struct {
	ID        string
	CinemaID  string
	Name      string
	Capacity  int
	OpensAt   ClockTime
	ClosesAt  ClockTime
	Seats     []*Seat
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRoom は新しいスクリーンを作成する
func NewRoom(cinemaID, name string, capacity int, opensAt, closesAt ClockTime) *Room {
	now := time.Now()
	return &Room{
		CinemaID:  cinemaID,
		Name:      name,
		Capacity:  capacity,
		OpensAt:   opensAt,
		ClosesAt:  closesAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddSeat は座席を追加する
func (r *Room) AddSeat(seatNumber string, isPMR bool) *Seat {
	s := &Seat{RoomID: r.ID, SeatNumber: seatNumber, IsPMR: isPMR}
	r.Seats = append(r.Seats, s)
	return s
}

// OpeningWindow は指定日の営業開始・終了時刻を返す
func (r *Room) OpeningWindow(date time.Time) (time.Time, time.Time) {
	return r.OpensAt.On(date), r.ClosesAt.On(date)
}

// OpeningDuration は1日の営業時間の長さを返す
func (r *Room) OpeningDuration() time.Duration {
	return time.Duration(r.ClosesAt-r.OpensAt) * time.Minute
}

// HasSeat は座席がこのスクリーンに属するかを返す
func (r *Room) HasSeat(seatID string) bool {
	for _, s := range r.Seats {
		if s.ID == seatID {
			return true
		}
	}
	return false
}

// SeatsByID は指定IDの座席を返す。存在しないIDは missing に入る
func (r *Room) SeatsByID(ids []string) (found []*Seat, missing []string) {
	index := make(map[string]*Seat, len(r.Seats))
	for _, s := range r.Seats {
		index[s.ID] = s
	}
	for _, id := range ids {
		if s, ok := index[id]; ok {
			found = append(found, s)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing
}

// Validate はスクリーンの検証を行う
func (r *Room) Validate() error {
	if r.CinemaID == "" {
		return ErrCinemaIDRequired
	}
	if r.Name == "" {
		return ErrRoomNameRequired
	}
	if r.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if !r.OpensAt.IsValid() || !r.ClosesAt.IsValid() || r.ClosesAt <= r.OpensAt {
		return ErrInvalidOpeningHours
	}
	if len(r.Seats) > r.Capacity {
		return ErrTooManySeats
	}
	seen := make(map[string]struct{}, len(r.Seats))
	for _, s := range r.Seats {
		if s.SeatNumber == "" {
			return ErrSeatNumberRequired
		}
		if _, dup := seen[s.SeatNumber]; dup {
			return ErrDuplicateSeatNumber
		}
		seen[s.SeatNumber] = struct{}{}
	}
	return nil
}
