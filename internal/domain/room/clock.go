package room

import (
	"fmt"
	"time"
)

// ClockTime は 0:00 からの経過分で表した時刻（営業時間用）
type ClockTime int

const minutesPerDay = 24 * 60

// ParseClockTime は "HH:MM" 形式の文字列を ClockTime に変換する
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// MustParseClockTime はパースに失敗すると panic する（テスト・シード用）
func MustParseClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String は "HH:MM" 形式で返す
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// IsValid は 00:00〜24:00 の範囲かを返す
func (c ClockTime) IsValid() bool {
	return c >= 0 && c <= minutesPerDay
}

// On は指定日の同時刻を日付のロケーションの壁時計で返す。24:00 は翌日 0:00
// 夏時間の切り替え日も営業時間の表記どおりの時刻になる
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	if c >= minutesPerDay {
		return time.Date(y, m, d+1, 0, 0, 0, 0, date.Location())
	}
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}
