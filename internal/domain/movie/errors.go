package movie

import "errors"

// Movie ドメインのエラー定義
var (
	ErrMovieNotFound  = errors.New("映画が見つかりません")
	ErrTitleRequired  = errors.New("タイトルは必須です")
	ErrInvalidRuntime = errors.New("上映時間は1分以上である必要があります")
)
