package room

import "errors"

// Room ドメインのエラー定義
var (
	ErrRoomNotFound        = errors.New("スクリーンが見つかりません")
	ErrCinemaIDRequired    = errors.New("映画館IDは必須です")
	ErrRoomNameRequired    = errors.New("スクリーン名は必須です")
	ErrInvalidCapacity     = errors.New("座席数は1以上である必要があります")
	ErrInvalidOpeningHours = errors.New("営業終了時刻は営業開始時刻より後である必要があります")
	ErrInvalidClockTime    = errors.New("時刻の形式が不正です")
	ErrTooManySeats        = errors.New("座席数が定員を超えています")
	ErrSeatNumberRequired  = errors.New("座席番号は必須です")
	ErrDuplicateSeatNumber = errors.New("座席番号が重複しています")
	ErrCinemaMismatch      = errors.New("スクリーンは指定された映画館に属していません")
)
