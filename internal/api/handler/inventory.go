package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
)

// InventoryHandler はスクリーン・映画の登録と参照を扱う
type InventoryHandler struct {
	service InventoryServiceInterface
}

func NewInventoryHandler(s InventoryServiceInterface) *InventoryHandler {
	return &InventoryHandler{service: s}
}

type SeatRequest struct {
	SeatNumber string `json:"seatNumber" validate:"required" example:"A-1"`
	IsPMR      bool   `json:"isPmr"`
}

type CreateRoomRequest struct {
	CinemaID   string        `json:"cinemaId" validate:"required" example:"cinema-paris"`
	Name       string        `json:"name" validate:"required" example:"Salle 1"`
	Capacity   int           `json:"capacity" validate:"required,min=1" example:"120"`
	OpensAt    string        `json:"opensAt" validate:"required" example:"09:00"`
	ClosesAt   string        `json:"closesAt" validate:"required" example:"23:30"`
	Seats      []SeatRequest `json:"seats,omitempty" validate:"omitempty,dive"`
	SeatPrefix string        `json:"seatPrefix,omitempty" example:"A"`
	PMRSeats   int           `json:"pmrSeats,omitempty" validate:"min=0"`
}

type SeatResponse struct {
	ID         string `json:"id"`
	SeatNumber string `json:"seatNumber"`
	IsPMR      bool   `json:"isPmr"`
}

type RoomResponse struct {
	ID        string         `json:"id"`
	CinemaID  string         `json:"cinemaId"`
	Name      string         `json:"name"`
	Capacity  int            `json:"capacity"`
	OpensAt   string         `json:"opensAt" example:"09:00"`
	ClosesAt  string         `json:"closesAt" example:"23:30"`
	Seats     []SeatResponse `json:"seats"`
	CreatedAt string         `json:"createdAt"`
}

func toRoomResponse(r *room.Room) RoomResponse {
	seats := make([]SeatResponse, len(r.Seats))
	for i, s := range r.Seats {
		seats[i] = SeatResponse{ID: s.ID, SeatNumber: s.SeatNumber, IsPMR: s.IsPMR}
	}
	return RoomResponse{
		ID: r.ID, CinemaID: r.CinemaID, Name: r.Name, Capacity: r.Capacity,
		OpensAt: r.OpensAt.String(), ClosesAt: r.ClosesAt.String(),
		Seats: seats, CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

type CreateMovieRequest struct {
	Title          string `json:"title" validate:"required" example:"Le Grand Bleu"`
	RuntimeMinutes int    `json:"runtimeMinutes" validate:"required,min=1" example:"120"`
}

type MovieResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	RuntimeMinutes int    `json:"runtimeMinutes"`
	CreatedAt      string `json:"createdAt"`
}

func toMovieResponse(m *movie.Movie) MovieResponse {
	return MovieResponse{
		ID: m.ID, Title: m.Title, RuntimeMinutes: m.RuntimeMinutes,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// CreateRoom godoc
// @Summary スクリーンを登録
// @Description 座席を省略した場合は capacity 席を自動生成します
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body CreateRoomRequest true "スクリーン情報"
// @Success 201 {object} RoomResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /rooms [post]
func (h *InventoryHandler) CreateRoom(c echo.Context) error {
	var req CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats := make([]application.SeatInput, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = application.SeatInput{SeatNumber: s.SeatNumber, IsPMR: s.IsPMR}
	}
	r, err := h.service.CreateRoom(c.Request().Context(), application.CreateRoomInput{
		CinemaID:   req.CinemaID,
		Name:       req.Name,
		Capacity:   req.Capacity,
		OpensAt:    req.OpensAt,
		ClosesAt:   req.ClosesAt,
		Seats:      seats,
		SeatPrefix: req.SeatPrefix,
		PMRSeats:   req.PMRSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRoomResponse(r))
}

// GetRoom godoc
// @Summary スクリーンを取得
// @Tags inventory
// @Produce json
// @Param id path string true "スクリーンID"
// @Success 200 {object} RoomResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /rooms/{id} [get]
func (h *InventoryHandler) GetRoom(c echo.Context) error {
	r, err := h.service.GetRoom(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResponse(r))
}

// CreateMovie godoc
// @Summary 映画を登録
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body CreateMovieRequest true "映画情報"
// @Success 201 {object} MovieResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /movies [post]
func (h *InventoryHandler) CreateMovie(c echo.Context) error {
	var req CreateMovieRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	m, err := h.service.CreateMovie(c.Request().Context(), application.CreateMovieInput{
		Title:          req.Title,
		RuntimeMinutes: req.RuntimeMinutes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toMovieResponse(m))
}

// GetMovie godoc
// @Summary 映画を取得
// @Tags inventory
// @Produce json
// @Param id path string true "映画ID"
// @Success 200 {object} MovieResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /movies/{id} [get]
func (h *InventoryHandler) GetMovie(c echo.Context) error {
	m, err := h.service.GetMovie(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieResponse(m))
}

// ListMovies godoc
// @Summary 映画一覧を取得
// @Tags inventory
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} MovieResponse
// @Router /movies [get]
func (h *InventoryHandler) ListMovies(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	movies, err := h.service.ListMovies(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]MovieResponse, len(movies))
	for i, m := range movies {
		resp[i] = toMovieResponse(m)
	}
	return c.JSON(http.StatusOK, resp)
}
