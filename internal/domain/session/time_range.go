package session

import "time"

// TimeRange は1回の上映枠（開始・終了時刻）を表す
type TimeRange struct {
	ID        string
	SessionID string
	Start     time.Time
	End       time.Time
}

// NewTimeRange は新しい上映枠を作成する
func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: end}
}

// Overlaps は半開区間 [Start, End) 同士が重なるかを返す（端点が接するだけなら重ならない）
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.Start.Before(other.End) && t.End.After(other.Start)
}

// Duration は上映枠の長さを返す
func (t TimeRange) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// IsValid は開始・終了が設定され、終了が開始より後かを返す
func (t TimeRange) IsValid() bool {
	return !t.Start.IsZero() && !t.End.IsZero() && t.End.After(t.Start)
}

// Within は上映枠が [from, to] に収まっているかを返す
func (t TimeRange) Within(from, to time.Time) bool {
	return !t.Start.Before(from) && !t.End.After(to)
}
