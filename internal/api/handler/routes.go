package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api/middleware"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/access"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Session   *SessionHandler
	Booking   *BookingHandler
	Inventory *InventoryHandler
	Health    *HealthHandler
}

// RegisterRoutes は /health・/metrics と /api/v1 配下のルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers, metricsCfg *middleware.MetricsConfig) {
	if h.Health != nil {
		e.GET("/health", h.Health.Check)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(metricsCfg))

	v1 := e.Group("/api/v1")
	if h.Health != nil {
		v1.GET("/health", h.Health.Check)
	}

	scheduleRead := middleware.RequireCapability(access.CapScheduleRead)
	scheduleWrite := middleware.RequireCapability(access.CapScheduleWrite)
	bookingWrite := middleware.RequireCapability(access.CapBookingWrite)
	inventoryWrite := middleware.RequireCapability(access.CapInventoryWrite)

	if s := h.Session; s != nil {
		v1.GET("/available-time-ranges", s.AvailableTimeRanges, scheduleRead)
		v1.GET("/booked-time-ranges", s.BookedTimeRanges, scheduleRead)
		v1.GET("/sessions", s.List, scheduleRead)
		v1.GET("/sessions/:id", s.GetByID, scheduleRead)
		v1.POST("/sessions", s.Create, scheduleWrite)
		v1.PUT("/sessions/:id", s.Update, scheduleWrite)
		v1.PATCH("/sessions/:id/soft-delete", s.SoftDelete, scheduleWrite)
	}

	if b := h.Booking; b != nil {
		v1.GET("/sessions/:id/time-ranges/:timeRangeId/seats", b.SeatMap, scheduleRead)
		v1.GET("/sessions/:id/time-ranges/:timeRangeId/seats/count", b.AvailableCount, scheduleRead)

		bookings := v1.Group("/bookings", bookingWrite)
		bookings.POST("", b.Create)
		bookings.PUT("", b.Update)
		bookings.GET("", b.List)
		bookings.GET("/:id", b.GetByID)
		bookings.POST("/:id/confirm", b.Confirm)
		bookings.PATCH("/:id/soft-delete", b.SoftDelete)
	}

	if inv := h.Inventory; inv != nil {
		v1.GET("/movies", inv.ListMovies, scheduleRead)
		v1.GET("/movies/:id", inv.GetMovie, scheduleRead)
		v1.GET("/rooms/:id", inv.GetRoom, scheduleRead)
		v1.POST("/movies", inv.CreateMovie, inventoryWrite)
		v1.POST("/rooms", inv.CreateRoom, inventoryWrite)
	}
}
