package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/planner"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
)

const dateLayout = "2006-01-02"

type SessionHandler struct {
	service SessionServiceInterface
}

func NewSessionHandler(s SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: s}
}

type TimeRangeRequest struct {
	TimeRangeID        string    `json:"timeRangeId,omitempty"`
	TimeRangeStartTime time.Time `json:"timeRangeStartTime" validate:"required"`
	TimeRangeEndTime   time.Time `json:"timeRangeEndTime" validate:"required"`
}

type CreateSessionRequest struct {
	MovieID      string             `json:"movieId" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	CinemaID     string             `json:"cinemaId" validate:"required" example:"cinema-paris"`
	RoomID       string             `json:"roomId" validate:"required" example:"550e8400-e29b-41d4-a716-446655440001"`
	SessionDate  string             `json:"sessionDate" validate:"required,datetime=2006-01-02" example:"2025-03-14"`
	SessionPrice decimal.Decimal    `json:"sessionPrice" swaggertype:"string" example:"9.50"`
	TimeRanges   []TimeRangeRequest `json:"timeRanges" validate:"required,min=1,dive"`
}

type UpdateSessionRequest struct {
	MovieID      string             `json:"movieId"`
	SessionDate  string             `json:"sessionDate" validate:"omitempty,datetime=2006-01-02"`
	SessionPrice decimal.Decimal    `json:"sessionPrice" swaggertype:"string"`
	TimeRanges   []TimeRangeRequest `json:"timeRanges" validate:"required,min=1,dive"`
	Version      *int               `json:"version,omitempty"`
}

type TimeRangeResponse struct {
	TimeRangeID        string `json:"timeRangeId,omitempty"`
	TimeRangeStartTime string `json:"timeRangeStartTime" example:"2025-03-14T09:00:00+01:00"`
	TimeRangeEndTime   string `json:"timeRangeEndTime" example:"2025-03-14T11:20:00+01:00"`
}

type SessionResponse struct {
	ID           string              `json:"id"`
	MovieID      string              `json:"movieId"`
	CinemaID     string              `json:"cinemaId"`
	RoomID       string              `json:"roomId"`
	SessionDate  string              `json:"sessionDate" example:"2025-03-14"`
	SessionPrice string              `json:"sessionPrice" example:"9.50"`
	Status       string              `json:"status" example:"active"`
	TimeRanges   []TimeRangeResponse `json:"timeRanges"`
	Version      int                 `json:"version"`
	CreatedAt    string              `json:"createdAt"`
	UpdatedAt    string              `json:"updatedAt"`
}

func toSessionResponse(s *session.Session) SessionResponse {
	ranges := make([]TimeRangeResponse, 0, len(s.TimeRanges))
	for _, tr := range s.TimeRanges {
		ranges = append(ranges, TimeRangeResponse{
			TimeRangeID:        tr.ID,
			TimeRangeStartTime: tr.Start.Format(time.RFC3339),
			TimeRangeEndTime:   tr.End.Format(time.RFC3339),
		})
	}
	return SessionResponse{
		ID:           s.ID,
		MovieID:      s.MovieID,
		CinemaID:     s.CinemaID,
		RoomID:       s.RoomID,
		SessionDate:  s.SessionDate.Format(dateLayout),
		SessionPrice: s.Price.StringFixed(2),
		Status:       string(s.Status),
		TimeRanges:   ranges,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}

func toWindowResponses(windows []planner.Window) []TimeRangeResponse {
	resp := make([]TimeRangeResponse, 0, len(windows))
	for _, w := range windows {
		resp = append(resp, TimeRangeResponse{
			TimeRangeStartTime: w.Start.Format(time.RFC3339),
			TimeRangeEndTime:   w.End.Format(time.RFC3339),
		})
	}
	return resp
}

func toTimeRangeInputs(reqs []TimeRangeRequest) []application.TimeRangeInput {
	inputs := make([]application.TimeRangeInput, 0, len(reqs))
	for _, r := range reqs {
		inputs = append(inputs, application.TimeRangeInput{
			ID:    r.TimeRangeID,
			Start: r.TimeRangeStartTime,
			End:   r.TimeRangeEndTime,
		})
	}
	return inputs
}

// parseDate は "YYYY-MM-DD" を日付に変換する。空文字はゼロ値
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "日付の形式が不正です（YYYY-MM-DD）").SetInternal(err)
	}
	return d, nil
}

func (h *SessionHandler) availabilityQuery(c echo.Context) (application.AvailabilityQuery, error) {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return application.AvailabilityQuery{}, err
	}
	return application.AvailabilityQuery{
		CinemaID:         c.QueryParam("cinemaId"),
		RoomID:           c.QueryParam("roomId"),
		MovieID:          c.QueryParam("movieId"),
		Date:             date,
		ExcludeSessionID: c.QueryParam("excludeSessionId"),
	}, nil
}

// AvailableTimeRanges godoc
// @Summary 割り当て可能な上映枠を取得
// @Description スクリーンの営業時間と既存セッションから、映画の上映時間＋清掃時間の枠を返します
// @Tags sessions
// @Produce json
// @Param cinemaId query string true "映画館ID"
// @Param roomId query string true "スクリーンID"
// @Param movieId query string true "映画ID"
// @Param date query string true "上映日（YYYY-MM-DD）"
// @Success 200 {array} TimeRangeResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /available-time-ranges [get]
func (h *SessionHandler) AvailableTimeRanges(c echo.Context) error {
	q, err := h.availabilityQuery(c)
	if err != nil {
		return err
	}
	windows, err := h.service.AvailableTimeRanges(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWindowResponses(windows))
}

// BookedTimeRanges godoc
// @Summary 使用中の上映枠を取得
// @Description 同じスクリーン・日付の有効なセッションが占有している上映枠を返します
// @Tags sessions
// @Produce json
// @Param cinemaId query string true "映画館ID"
// @Param roomId query string true "スクリーンID"
// @Param date query string true "上映日（YYYY-MM-DD）"
// @Param movieId query string false "映画ID"
// @Success 200 {array} TimeRangeResponse
// @Router /booked-time-ranges [get]
func (h *SessionHandler) BookedTimeRanges(c echo.Context) error {
	q, err := h.availabilityQuery(c)
	if err != nil {
		return err
	}
	windows, err := h.service.BookedTimeRanges(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWindowResponses(windows))
}

// Create godoc
// @Summary セッションを登録
// @Description 上映枠が他のセッションと重ならないことをコミット直前に再確認して登録します
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "セッション情報"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "上映枠が重複"
// @Router /sessions [post]
func (h *SessionHandler) Create(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := parseDate(req.SessionDate)
	if err != nil {
		return err
	}
	s, err := h.service.CreateSession(c.Request().Context(), application.CreateSessionInput{
		MovieID:     req.MovieID,
		CinemaID:    req.CinemaID,
		RoomID:      req.RoomID,
		SessionDate: date,
		Price:       req.SessionPrice,
		TimeRanges:  toTimeRangeInputs(req.TimeRanges),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSessionResponse(s))
}

// Update godoc
// @Summary セッションを更新
// @Description 映画・日付・料金・上映枠を置き換えます。予約のある上映枠は変更できません
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "セッションID"
// @Param request body UpdateSessionRequest true "更新内容"
// @Success 200 {object} SessionResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c echo.Context) error {
	var req UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	date, err := parseDate(req.SessionDate)
	if err != nil {
		return err
	}
	s, err := h.service.UpdateSession(c.Request().Context(), application.UpdateSessionInput{
		ID:          c.Param("id"),
		MovieID:     req.MovieID,
		SessionDate: date,
		Price:       req.SessionPrice,
		TimeRanges:  toTimeRangeInputs(req.TimeRanges),
		Version:     req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(s))
}

// GetByID godoc
// @Summary セッションを取得
// @Tags sessions
// @Produce json
// @Param id path string true "セッションID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(s))
}

// List godoc
// @Summary 映画館・日付のセッション一覧
// @Tags sessions
// @Produce json
// @Param cinemaId query string true "映画館ID"
// @Param date query string true "上映日（YYYY-MM-DD）"
// @Success 200 {array} SessionResponse
// @Router /sessions [get]
func (h *SessionHandler) List(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}
	sessions, err := h.service.ListSessions(c.Request().Context(), c.QueryParam("cinemaId"), date)
	if err != nil {
		return err
	}
	resp := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// SoftDelete godoc
// @Summary セッションを削除
// @Description セッションを論理削除します。既存の予約は参照できます
// @Tags sessions
// @Produce json
// @Param id path string true "セッションID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "削除済み"
// @Router /sessions/{id}/soft-delete [patch]
func (h *SessionHandler) SoftDelete(c echo.Context) error {
	s, err := h.service.DeleteSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(s))
}
