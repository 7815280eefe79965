package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/api/middleware"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/application"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/planner"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
)

// MockSessionService はSessionServiceInterfaceのモック
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) AvailableTimeRanges(ctx context.Context, q application.AvailabilityQuery) ([]planner.Window, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]planner.Window), args.Error(1)
}

func (m *MockSessionService) BookedTimeRanges(ctx context.Context, q application.AvailabilityQuery) ([]planner.Window, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]planner.Window), args.Error(1)
}

func (m *MockSessionService) CreateSession(ctx context.Context, input application.CreateSessionInput) (*session.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) UpdateSession(ctx context.Context, input application.UpdateSessionInput) (*session.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) DeleteSession(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionService) ListSessions(ctx context.Context, cinemaID string, date time.Time) ([]*session.Session, error) {
	args := m.Called(ctx, cinemaID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Session), args.Error(1)
}

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) HoldSeats(ctx context.Context, input application.HoldSeatsInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, id, actorID string) (*booking.Booking, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, id, actorID, reason string) (*booking.Booking, error) {
	args := m.Called(ctx, id, actorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetSeatMap(ctx context.Context, sessionID, timeRangeID string) (*application.SeatMap, error) {
	args := m.Called(ctx, sessionID, timeRangeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.SeatMap), args.Error(1)
}

func (m *MockBookingService) CountAvailableSeats(ctx context.Context, sessionID, timeRangeID string) (int, error) {
	args := m.Called(ctx, sessionID, timeRangeID)
	return args.Int(0), args.Error(1)
}

// MockInventoryService はInventoryServiceInterfaceのモック
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) CreateRoom(ctx context.Context, input application.CreateRoomInput) (*room.Room, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*room.Room), args.Error(1)
}

func (m *MockInventoryService) GetRoom(ctx context.Context, id string) (*room.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*room.Room), args.Error(1)
}

func (m *MockInventoryService) CreateMovie(ctx context.Context, input application.CreateMovieInput) (*movie.Movie, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movie.Movie), args.Error(1)
}

func (m *MockInventoryService) GetMovie(ctx context.Context, id string) (*movie.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movie.Movie), args.Error(1)
}

func (m *MockInventoryService) ListMovies(ctx context.Context, limit, offset int) ([]*movie.Movie, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*movie.Movie), args.Error(1)
}

// newTestEcho は本番と同じバリデーターとエラーハンドラーを持つ echo を返す
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}

// testRouter はモックサービスをルーティングに載せる
type testRouter struct {
	e         *echo.Echo
	sessions  *MockSessionService
	bookings  *MockBookingService
	inventory *MockInventoryService
}

func newTestRouter() *testRouter {
	r := &testRouter{
		e:         newTestEcho(),
		sessions:  new(MockSessionService),
		bookings:  new(MockBookingService),
		inventory: new(MockInventoryService),
	}
	RegisterRoutes(r.e, Handlers{
		Session:   NewSessionHandler(r.sessions),
		Booking:   NewBookingHandler(r.bookings),
		Inventory: NewInventoryHandler(r.inventory),
		Health:    NewHealthHandler(nil),
	}, nil)
	return r
}

func newJSONRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func (r *testRouter) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.e.ServeHTTP(rec, req)
	return rec
}

// do はリクエストを送る。userID が空なら利用者ヘッダーを付けない
func (r *testRouter) do(method, path, body, userID, role string) *httptest.ResponseRecorder {
	req := newJSONRequest(method, path, body)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	return r.serve(req)
}
