package application

import (
	"errors"
	"fmt"
)

// アプリケーション層のエラー定義
var (
	// ErrValidation は入力値の検証エラー。ドメインのエラーをラップして返す
	ErrValidation = errors.New("入力が不正です")
	// ErrScheduleBusy は同じスクリーン・日付のスケジュールを他の操作が更新中
	ErrScheduleBusy = errors.New("スケジュールが他の操作によって更新中です")
	// ErrBookingScopeMismatch は予約の座席変更で別のセッション・上映枠が指定された
	ErrBookingScopeMismatch = errors.New("予約のセッション・上映枠は変更できません")
)

// validationError はドメインのエラーを ErrValidation でラップする
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
