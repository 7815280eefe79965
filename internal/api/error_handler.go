package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/seat"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
)

const internalErrorMessage = "内部サーバーエラー"

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     string           `json:"error"`
	Code      int              `json:"code,omitempty"`
	Details   string           `json:"details,omitempty"`
	SeatIDs   []string         `json:"seatIds,omitempty"`
	Conflicts []ConflictWindow `json:"conflicts,omitempty"`
}

// ConflictWindow は重複した既存の上映枠
type ConflictWindow struct {
	TimeRangeStartTime string `json:"timeRangeStartTime"`
	TimeRangeEndTime   string `json:"timeRangeEndTime"`
}

var notFoundErrors = []error{
	session.ErrSessionNotFound,
	session.ErrTimeRangeNotFound,
	booking.ErrBookingNotFound,
	room.ErrRoomNotFound,
	movie.ErrMovieNotFound,
	seat.ErrSeatNotFound,
}

var conflictErrors = []error{
	seat.ErrSeatNotAvailable,
	session.ErrSessionOverlap,
	session.ErrSessionDeleted,
	session.ErrTimeRangeInUse,
	session.ErrOptimisticLockConflict,
	booking.ErrBookingNotPending,
	booking.ErrInvalidStatus,
	booking.ErrIdempotencyKeyAlreadyExists,
	application.ErrScheduleBusy,
}

// StatusOf はエラーに対応するHTTPステータスを返す
func StatusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch {
	case errors.Is(err, application.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrBookingExpired):
		return http.StatusGone
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewErrorResponse はエラーをレスポンスに変換する。5xx の詳細は返さない
func NewErrorResponse(err error) ErrorResponse {
	code := StatusOf(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			resp.Error = m
		} else {
			resp.Error = http.StatusText(code)
		}
		if he.Internal != nil && code < 500 {
			resp.Details = he.Internal.Error()
		}
	}

	var unavailable *seat.UnavailableError
	if errors.As(err, &unavailable) {
		resp.Error = seat.ErrSeatNotAvailable.Error()
		resp.SeatIDs = unavailable.SeatIDs
	}

	var overlap *session.OverlapError
	if errors.As(err, &overlap) {
		resp.Error = session.ErrSessionOverlap.Error()
		for _, tr := range overlap.Conflicts {
			resp.Conflicts = append(resp.Conflicts, ConflictWindow{
				TimeRangeStartTime: tr.Start.Format(time.RFC3339),
				TimeRangeEndTime:   tr.End.Format(time.RFC3339),
			})
		}
	}

	if code >= 500 {
		resp.Error = internalErrorMessage
		resp.Details = ""
	}
	return resp
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := NewErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Code)
	} else {
		err = c.JSON(resp.Code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
