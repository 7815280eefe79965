// Package planner はスクリーンの営業時間と既存セッションから、新しいセッションに
// 割り当て可能な上映枠を計算する。I/O を持たない純粋な計算のみを扱う。
package planner

import (
	"sort"
	"time"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
)

// DefaultBuffer は上映間の清掃・入れ替え時間
const DefaultBuffer = 20 * time.Minute

// Window は上映枠の候補（[Start, End) の半開区間）
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps は半開区間同士が重なるかを返す
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Duration は枠の長さを返す
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// TimeRange はセッションの上映枠に変換する
func (w Window) TimeRange() session.TimeRange {
	return session.NewTimeRange(w.Start, w.End)
}

// WindowOf は上映枠から Window を作る
func WindowOf(tr session.TimeRange) Window {
	return Window{Start: tr.Start, End: tr.End}
}

// Skipped は開始・終了が欠けているため判定から除外された既存上映枠
type Skipped struct {
	SessionID   string
	TimeRangeID string
}

// Result は計算結果。Skipped は呼び出し側でログに残す
type Result struct {
	Windows []Window
	Skipped []Skipped
}

// ComputeAvailableWindows は営業開始時刻から runtime+buffer 刻みで候補枠を並べ、
// 営業時間に収まり、かつ有効な既存セッションの上映枠と重ならないものを返す。
// 何も入らない場合は空の結果を返す（エラーではない）
func ComputeAvailableWindows(r *room.Room, date time.Time, runtimeMinutes int, buffer time.Duration, existing []*session.Session) Result {
	blocking := BookedWindows(existing)
	result := Result{Skipped: blocking.Skipped}

	if runtimeMinutes <= 0 || buffer < 0 {
		return result
	}

	step := time.Duration(runtimeMinutes)*time.Minute + buffer
	open, closeAt := r.OpeningWindow(date)

	for start := open; !start.Add(step).After(closeAt); start = start.Add(step) {
		candidate := Window{Start: start, End: start.Add(step)}
		if DetectOverlap(candidate, blocking.Windows) {
			continue
		}
		result.Windows = append(result.Windows, candidate)
	}
	return result
}

// DetectOverlap は window が existing のいずれかと重なるかを返す
func DetectOverlap(window Window, existing []Window) bool {
	for _, e := range existing {
		if window.Overlaps(e) {
			return true
		}
	}
	return false
}

// BookedWindows は有効なセッションが占有している枠を開始時刻順に返す。
// 開始・終了が欠けた枠は Skipped に入れ、逆転した枠は入れ替えて占有扱いにする
func BookedWindows(existing []*session.Session) Result {
	var result Result
	for _, s := range existing {
		if s == nil || !s.IsActive() {
			continue
		}
		for _, tr := range s.TimeRanges {
			if tr.Start.IsZero() || tr.End.IsZero() {
				result.Skipped = append(result.Skipped, Skipped{SessionID: s.ID, TimeRangeID: tr.ID})
				continue
			}
			w := WindowOf(tr)
			if w.End.Before(w.Start) {
				w.Start, w.End = w.End, w.Start
			}
			result.Windows = append(result.Windows, w)
		}
	}
	sort.Slice(result.Windows, func(i, j int) bool {
		return result.Windows[i].Start.Before(result.Windows[j].Start)
	})
	return result
}
