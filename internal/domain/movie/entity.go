package movie

import "time"

// Movie は映画エンティティを表す
type Movie struct {
	ID             string
	Title          string
	RuntimeMinutes int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewMovie は新しい映画を作成する
func NewMovie(title string, runtimeMinutes int) *Movie {
	now := time.Now()
	return &Movie{
		Title:          title,
		RuntimeMinutes: runtimeMinutes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Runtime は上映時間を返す
func (m *Movie) Runtime() time.Duration {
	return time.Duration(m.RuntimeMinutes) * time.Minute
}

// Validate は映画の検証を行う
func (m *Movie) Validate() error {
	if m.Title == "" {
		return ErrTitleRequired
	}
	if m.RuntimeMinutes <= 0 {
		return ErrInvalidRuntime
	}
	return nil
}
