package session

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
)

func at(h, m int) time.Time {
	return time.Date(2025, 3, 14, h, m, 0, 0, time.UTC)
}

func testRoom() *room.Room {
	r := room.NewRoom("cinema-1", "Salle 1", 100, room.MustParseClockTime("09:00"), room.MustParseClockTime("23:00"))
	r.ID = "room-1"
	return r
}

func TestTimeRange_Overlaps(t *testing.T) {
	existing := NewTimeRange(at(14, 0), at(16, 0))

	tests := []struct {
		name      string
		candidate TimeRange
		expected  bool
	}{
		{"途中から重なる", NewTimeRange(at(15, 0), at(17, 20)), true},
		{"終了時刻に接するだけ", NewTimeRange(at(16, 0), at(18, 20)), false},
		{"開始時刻に接するだけ", NewTimeRange(at(12, 0), at(14, 0)), false},
		{"内包する", NewTimeRange(at(13, 0), at(17, 0)), true},
		{"内包される", NewTimeRange(at(14, 30), at(15, 0)), true},
		{"完全に前", NewTimeRange(at(9, 0), at(11, 0)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.candidate.Overlaps(existing))
			assert.Equal(t, tt.expected, existing.Overlaps(tt.candidate))
		})
	}
}

func TestTimeRange_IsValid(t *testing.T) {
	assert.True(t, NewTimeRange(at(9, 0), at(11, 0)).IsValid())
	assert.False(t, NewTimeRange(at(11, 0), at(9, 0)).IsValid())
	assert.False(t, NewTimeRange(at(9, 0), at(9, 0)).IsValid())
	assert.False(t, NewTimeRange(time.Time{}, at(9, 0)).IsValid())
}

func TestNewSession(t *testing.T) {
	s := NewSession("movie-1", "cinema-1", "room-1", at(17, 30), decimal.NewFromInt(10), nil)

	assert.Equal(t, StatusActive, s.Status)
	assert.True(t, s.IsActive())
	assert.Equal(t, at(0, 0), s.SessionDate)
	assert.Equal(t, 0, s.Version)
}

func TestSession_SoftDelete(t *testing.T) {
	s := NewSession("movie-1", "cinema-1", "room-1", at(0, 0), decimal.NewFromInt(10), nil)

	require.NoError(t, s.SoftDelete())
	assert.Equal(t, StatusDeleted, s.Status)
	assert.False(t, s.IsActive())

	err := s.SoftDelete()
	assert.ErrorIs(t, err, ErrSessionDeleted)
}

func TestSession_FindTimeRange(t *testing.T) {
	s := NewSession("movie-1", "cinema-1", "room-1", at(0, 0), decimal.NewFromInt(10), []TimeRange{
		{ID: "tr-1", Start: at(9, 0), End: at(11, 20)},
	})

	tr, ok := s.FindTimeRange("tr-1")
	require.True(t, ok)
	assert.Equal(t, at(9, 0), tr.Start)

	_, ok = s.FindTimeRange("tr-x")
	assert.False(t, ok)
}

func TestSession_Validate(t *testing.T) {
	runtime := 120 * time.Minute
	valid := func() *Session {
		return NewSession("movie-1", "cinema-1", "room-1", at(0, 0), decimal.NewFromFloat(12.5), []TimeRange{
			NewTimeRange(at(9, 0), at(11, 20)),
			NewTimeRange(at(11, 20), at(13, 40)),
		})
	}

	tests := []struct {
		name        string
		modify      func(s *Session)
		expectedErr error
	}{
		{"有効なセッション", func(s *Session) {}, nil},
		{"映画IDが空", func(s *Session) { s.MovieID = "" }, ErrMovieIDRequired},
		{"スクリーンIDが空", func(s *Session) { s.RoomID = "" }, ErrRoomIDRequired},
		{"映画館IDが空", func(s *Session) { s.CinemaID = "" }, room.ErrCinemaIDRequired},
		{"映画館が異なる", func(s *Session) { s.CinemaID = "cinema-2" }, room.ErrCinemaMismatch},
		{"上映日が空", func(s *Session) { s.SessionDate = time.Time{} }, ErrSessionDateRequired},
		{"料金が負", func(s *Session) { s.Price = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"上映枠なし", func(s *Session) { s.TimeRanges = nil }, ErrTimeRangesRequired},
		{
			"終了が開始より前",
			func(s *Session) { s.TimeRanges = []TimeRange{NewTimeRange(at(11, 0), at(9, 0))} },
			ErrInvalidTimeRange,
		},
		{
			"営業開始前",
			func(s *Session) { s.TimeRanges = []TimeRange{NewTimeRange(at(8, 0), at(10, 20))} },
			ErrOutsideOpeningHours,
		},
		{
			"営業終了後",
			func(s *Session) { s.TimeRanges = []TimeRange{NewTimeRange(at(21, 0), at(23, 20))} },
			ErrOutsideOpeningHours,
		},
		{
			"別の日",
			func(s *Session) {
				s.TimeRanges = []TimeRange{NewTimeRange(at(9, 0).Add(24*time.Hour), at(11, 20).Add(24*time.Hour))}
			},
			ErrOutsideOpeningHours,
		},
		{
			"上映時間より短い",
			func(s *Session) { s.TimeRanges = []TimeRange{NewTimeRange(at(9, 0), at(10, 0))} },
			ErrTimeRangeTooShort,
		},
		{
			"セッション内で重複",
			func(s *Session) {
				s.TimeRanges = []TimeRange{
					NewTimeRange(at(9, 0), at(11, 20)),
					NewTimeRange(at(11, 0), at(13, 20)),
				}
			},
			ErrOverlappingTimeRanges,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.modify(s)
			err := s.Validate(testRoom(), runtime)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSession_Validate_DaylightSaving(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	for _, day := range []int{30, 26} {
		month := time.March
		if day == 26 {
			month = time.October
		}
		date := time.Date(2025, month, day, 0, 0, 0, 0, paris)
		local := func(h, m int) time.Time { return time.Date(2025, month, day, h, m, 0, 0, paris) }

		t.Run(date.Format("2006-01-02"), func(t *testing.T) {
			first := NewSession("movie-1", "cinema-1", "room-1", date, decimal.NewFromInt(10), []TimeRange{
				NewTimeRange(local(9, 0), local(11, 20)),
			})
			require.NoError(t, first.Validate(testRoom(), 120*time.Minute))

			last := NewSession("movie-1", "cinema-1", "room-1", date, decimal.NewFromInt(10), []TimeRange{
				NewTimeRange(local(20, 40), local(23, 0)),
			})
			require.NoError(t, last.Validate(testRoom(), 120*time.Minute))

			early := NewSession("movie-1", "cinema-1", "room-1", date, decimal.NewFromInt(10), []TimeRange{
				NewTimeRange(local(8, 0), local(10, 20)),
			})
			assert.ErrorIs(t, early.Validate(testRoom(), 120*time.Minute), ErrOutsideOpeningHours)
		})
	}
}

func TestOverlapError(t *testing.T) {
	err := &OverlapError{Conflicts: []TimeRange{NewTimeRange(at(14, 0), at(16, 0))}}

	assert.ErrorIs(t, err, ErrSessionOverlap)
	assert.Contains(t, err.Error(), "1件")
}
