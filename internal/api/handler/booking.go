package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api/middleware"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	SessionID      string   `json:"sessionId" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	TimeRangeID    string   `json:"timeRangeId" validate:"required" example:"550e8400-e29b-41d4-a716-446655440002"`
	SeatsBooked    []string `json:"seatsBooked" validate:"required,min=1,max=9" example:"seat-A1,seat-A2"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty" example:"order-2025-001"`
}

type UpdateBookingRequest struct {
	BookingID   string   `json:"bookingId" validate:"required"`
	SessionID   string   `json:"sessionId" validate:"required"`
	TimeRangeID string   `json:"timeRangeId" validate:"required"`
	SeatsBooked []string `json:"seatsBooked" validate:"required,min=1,max=9"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" example:"cancelled_by_user"`
}

type BookedSeatResponse struct {
	SeatID     string `json:"seatId"`
	SeatNumber string `json:"seatNumber" example:"A-1"`
	IsPMR      bool   `json:"isPmr"`
}

type BookingResponse struct {
	ID                 string               `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID          string               `json:"sessionId"`
	TimeRangeID        string               `json:"timeRangeId"`
	UserID             string               `json:"userId" example:"user-123"`
	SeatsBooked        []BookedSeatResponse `json:"seatsBooked"`
	BookingPrice       string               `json:"bookingPrice" example:"25.00"`
	BookingStatus      string               `json:"bookingStatus" example:"pending"`
	CancelReason       string               `json:"cancelReason,omitempty"`
	ExpiresAt          time.Time            `json:"expiresAt"`
	ConfirmedAt        *time.Time           `json:"confirmedAt,omitempty"`
	CancelledAt        *time.Time           `json:"cancelledAt,omitempty"`
	BookingCreatedAt   time.Time            `json:"bookingCreatedAt"`
	TimeRangeStartTime time.Time            `json:"timeRangeStartTime"`
	TimeRangeEndTime   time.Time            `json:"timeRangeEndTime"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	seats := make([]BookedSeatResponse, len(b.Seats))
	for i, s := range b.Seats {
		seats[i] = BookedSeatResponse{SeatID: s.SeatID, SeatNumber: s.SeatNumber, IsPMR: s.IsPMR}
	}
	return BookingResponse{
		ID: b.ID, SessionID: b.SessionID, TimeRangeID: b.TimeRangeID, UserID: b.UserID,
		SeatsBooked:        seats,
		BookingPrice:       b.Price.StringFixed(2),
		BookingStatus:      string(b.Status),
		CancelReason:       b.CancelReason,
		ExpiresAt:          b.ExpiresAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		BookingCreatedAt:   b.CreatedAt,
		TimeRangeStartTime: b.TimeRangeStart,
		TimeRangeEndTime:   b.TimeRangeEnd,
	}
}

type SeatMapSeatResponse struct {
	SeatID     string `json:"seatId"`
	SeatNumber string `json:"seatNumber"`
	IsPMR      bool   `json:"isPmr"`
	Status     string `json:"status" example:"available"`
}

type SeatMapResponse struct {
	SessionID          string                `json:"sessionId"`
	TimeRangeID        string                `json:"timeRangeId"`
	TimeRangeStartTime time.Time             `json:"timeRangeStartTime"`
	TimeRangeEndTime   time.Time             `json:"timeRangeEndTime"`
	Available          int                   `json:"available"`
	Seats              []SeatMapSeatResponse `json:"seats"`
}

type AvailableCountResponse struct {
	TimeRangeID string `json:"timeRangeId"`
	Available   int    `json:"available"`
}

// Create godoc
// @Summary 座席を仮押さえ
// @Description 指定した座席をまとめて仮押さえします（15分間有効）。1席でも取れなければ全体が失敗します
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param Idempotency-Key header string false "冪等キー"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "座席が既に予約済み"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get(middleware.HeaderIdempotencyKey)
	}
	b, err := h.service.HoldSeats(c.Request().Context(), application.HoldSeatsInput{
		SessionID:      req.SessionID,
		TimeRangeID:    req.TimeRangeID,
		UserID:         middleware.UserID(c),
		SeatIDs:        req.SeatsBooked,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// Update godoc
// @Summary 仮押さえの座席を差し替え
// @Description 仮押さえ中の予約の座席を差し替えます。失敗した場合は元の仮押さえが残ります
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body UpdateBookingRequest true "差し替え内容"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /bookings [put]
func (h *BookingHandler) Update(c echo.Context) error {
	var req UpdateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.HoldSeats(c.Request().Context(), application.HoldSeatsInput{
		BookingID:   req.BookingID,
		SessionID:   req.SessionID,
		TimeRangeID: req.TimeRangeID,
		UserID:      middleware.UserID(c),
		SeatIDs:     req.SeatsBooked,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します。他人の予約は管理権限が必要です
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if actor := middleware.ActorID(c); actor != "" && b.UserID != actor {
		return booking.ErrNotOwner
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// List godoc
// @Summary 自分の予約一覧を取得
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.GetUserBookings(c.Request().Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Confirm godoc
// @Summary 予約を確定
// @Description 仮押さえ中の予約を確定します。期限切れの場合は 410 を返します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 410 {object} api.ErrorResponse "仮押さえの期限切れ"
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c echo.Context) error {
	b, err := h.service.ConfirmBooking(c.Request().Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// SoftDelete godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルして座席を解放します。キャンセル済みの予約はそのまま返します
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body CancelBookingRequest false "キャンセル理由"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id}/soft-delete [patch]
func (h *BookingHandler) SoftDelete(c echo.Context) error {
	var req CancelBookingRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
		}
	}
	b, err := h.service.CancelBooking(c.Request().Context(), c.Param("id"), middleware.ActorID(c), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// SeatMap godoc
// @Summary 上映枠の座席表を取得
// @Description 期限切れの仮押さえは空席として表示します
// @Tags bookings
// @Produce json
// @Param id path string true "セッションID"
// @Param timeRangeId path string true "上映枠ID"
// @Success 200 {object} SeatMapResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /sessions/{id}/time-ranges/{timeRangeId}/seats [get]
func (h *BookingHandler) SeatMap(c echo.Context) error {
	m, err := h.service.GetSeatMap(c.Request().Context(), c.Param("id"), c.Param("timeRangeId"))
	if err != nil {
		return err
	}
	seats := make([]SeatMapSeatResponse, len(m.Seats))
	for i, s := range m.Seats {
		seats[i] = SeatMapSeatResponse{SeatID: s.SeatID, SeatNumber: s.SeatNumber, IsPMR: s.IsPMR, Status: string(s.Status)}
	}
	return c.JSON(http.StatusOK, SeatMapResponse{
		SessionID:          m.SessionID,
		TimeRangeID:        m.TimeRange.ID,
		TimeRangeStartTime: m.TimeRange.Start,
		TimeRangeEndTime:   m.TimeRange.End,
		Available:          m.Available,
		Seats:              seats,
	})
}

// AvailableCount godoc
// @Summary 上映枠の空席数を取得
// @Tags bookings
// @Produce json
// @Param id path string true "セッションID"
// @Param timeRangeId path string true "上映枠ID"
// @Success 200 {object} AvailableCountResponse
// @Router /sessions/{id}/time-ranges/{timeRangeId}/seats/count [get]
func (h *BookingHandler) AvailableCount(c echo.Context) error {
	trID := c.Param("timeRangeId")
	count, err := h.service.CountAvailableSeats(c.Request().Context(), c.Param("id"), trID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailableCountResponse{TimeRangeID: trID, Available: count})
}
