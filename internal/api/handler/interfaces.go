package handler

import (
	"context"
	"time"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/planner"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
)

// SessionServiceInterface はセッションサービスのインターフェース
type SessionServiceInterface interface {
	AvailableTimeRanges(ctx context.Context, q application.AvailabilityQuery) ([]planner.Window, error)
	BookedTimeRanges(ctx context.Context, q application.AvailabilityQuery) ([]planner.Window, error)
	CreateSession(ctx context.Context, input application.CreateSessionInput) (*session.Session, error)
	UpdateSession(ctx context.Context, input application.UpdateSessionInput) (*session.Session, error)
	DeleteSession(ctx context.Context, id string) (*session.Session, error)
	GetSession(ctx context.Context, id string) (*session.Session, error)
	ListSessions(ctx context.Context, cinemaID string, date time.Time) ([]*session.Session, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	HoldSeats(ctx context.Context, input application.HoldSeatsInput) (*booking.Booking, error)
	ConfirmBooking(ctx context.Context, id, actorID string) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id, actorID, reason string) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error)
	GetSeatMap(ctx context.Context, sessionID, timeRangeID string) (*application.SeatMap, error)
	CountAvailableSeats(ctx context.Context, sessionID, timeRangeID string) (int, error)
}

// InventoryServiceInterface はスクリーン・映画サービスのインターフェース
type InventoryServiceInterface interface {
	CreateRoom(ctx context.Context, input application.CreateRoomInput) (*room.Room, error)
	GetRoom(ctx context.Context, id string) (*room.Room, error)
	CreateMovie(ctx context.Context, input application.CreateMovieInput) (*movie.Movie, error)
	GetMovie(ctx context.Context, id string) (*movie.Movie, error)
	ListMovies(ctx context.Context, limit, offset int) ([]*movie.Movie, error)
}
