package session

import (
	"errors"
	"fmt"
)

// Session ドメインのエラー定義
var (
	ErrSessionNotFound        = errors.New("セッションが見つかりません")
	ErrTimeRangeNotFound      = errors.New("上映枠が見つかりません")
	ErrSessionDeleted         = errors.New("セッションは削除されています")
	ErrSessionOverlap         = errors.New("同じスクリーンの他のセッションと上映枠が重複しています")
	ErrTimeRangeInUse         = errors.New("予約が存在する上映枠は削除できません")
	ErrMovieIDRequired        = errors.New("映画IDは必須です")
	ErrRoomIDRequired         = errors.New("スクリーンIDは必須です")
	ErrSessionDateRequired    = errors.New("上映日は必須です")
	ErrInvalidPrice           = errors.New("料金は0以上である必要があります")
	ErrTimeRangesRequired     = errors.New("上映枠は1つ以上必要です")
	ErrInvalidTimeRange       = errors.New("上映枠の終了時刻は開始時刻より後である必要があります")
	ErrOutsideOpeningHours    = errors.New("上映枠がスクリーンの営業時間外です")
	ErrTimeRangeTooShort      = errors.New("上映枠が映画の上映時間より短いです")
	ErrOverlappingTimeRanges  = errors.New("セッション内の上映枠が重複しています")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)

// OverlapError は重複した既存の上映枠を保持する
type OverlapError struct {
	Conflicts []TimeRange
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s（%d件）", ErrSessionOverlap.Error(), len(e.Conflicts))
}

// Is は errors.Is(err, ErrSessionOverlap) を満たす
func (e *OverlapError) Is(target error) bool {
	return target == ErrSessionOverlap
}
