package seat

import (
	"errors"
	"fmt"
	"strings"
)

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound     = errors.New("座席が見つかりません")
	ErrSeatNotAvailable = errors.New("座席は予約できません")
	ErrSeatNotHeld      = errors.New("座席はこの予約で仮押さえされていません")
	ErrHoldExpired      = errors.New("座席の仮押さえの期限が切れています")
)

// UnavailableError は予約できなかった座席IDを保持する
type UnavailableError struct {
	SeatIDs []string
}

// NewUnavailableError は UnavailableError を作成する
func NewUnavailableError(seatIDs []string) *UnavailableError {
	return &UnavailableError{SeatIDs: seatIDs}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatNotAvailable.Error(), strings.Join(e.SeatIDs, ", "))
}

// Is は errors.Is(err, ErrSeatNotAvailable) を満たす
func (e *UnavailableError) Is(target error) bool {
	return target == ErrSeatNotAvailable
}
