package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound             = errors.New("予約が見つかりません")
	ErrBookingNotPending           = errors.New("予約は仮押さえ中ではありません")
	ErrBookingExpired              = errors.New("予約の仮押さえ期限が切れています")
	ErrInvalidStatus               = errors.New("予約の状態が不正です")
	ErrNotOwner                    = errors.New("他のユーザーの予約は変更できません")
	ErrSessionIDRequired           = errors.New("セッションIDは必須です")
	ErrTimeRangeIDRequired         = errors.New("上映枠IDは必須です")
	ErrUserIDRequired              = errors.New("ユーザーIDは必須です")
	ErrSeatsRequired               = errors.New("座席を1つ以上選択してください")
	ErrTooManySeats                = errors.New("1回の予約で選べる座席は9席までです")
	ErrDuplicateSeat               = errors.New("同じ座席が重複して指定されています")
	ErrIdempotencyKeyRequired      = errors.New("冪等性キーは必須です")
	ErrIdempotencyKeyAlreadyExists = errors.New("同じ冪等性キーの予約が既に存在します")
)
