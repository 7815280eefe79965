package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/seat"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
	redisinfra "github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/infrastructure/redis"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockSessionRepository implements session.Repository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, tx transaction.Tx, s *session.Session) error {
	args := m.Called(ctx, tx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) Update(ctx context.Context, tx transaction.Tx, s *session.Session) error {
	args := m.Called(ctx, tx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) SoftDelete(ctx context.Context, tx transaction.Tx, s *session.Session) error {
	args := m.Called(ctx, tx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*session.Session, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionRepository) GetTimeRangeForShare(ctx context.Context, tx transaction.Tx, sessionID, timeRangeID string) (*session.TimeRange, error) {
	args := m.Called(ctx, tx, sessionID, timeRangeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TimeRange), args.Error(1)
}

func (m *MockSessionRepository) ListActiveByRoomAndDate(ctx context.Context, roomID string, date time.Time) ([]*session.Session, error) {
	args := m.Called(ctx, roomID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Session), args.Error(1)
}

func (m *MockSessionRepository) ListActiveByRoomAndDateTx(ctx context.Context, tx transaction.Tx, roomID string, date time.Time) ([]*session.Session, error) {
	args := m.Called(ctx, tx, roomID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Session), args.Error(1)
}

func (m *MockSessionRepository) LockRoomSchedule(ctx context.Context, tx transaction.Tx, roomID string, date time.Time) error {
	args := m.Called(ctx, tx, roomID, date)
	return args.Error(0)
}

func (m *MockSessionRepository) ListByCinemaAndDate(ctx context.Context, cinemaID string, date time.Time) ([]*session.Session, error) {
	args := m.Called(ctx, cinemaID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Session), args.Error(1)
}

// MockRoomRepository implements room.Repository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, r *room.Room) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id string) (*room.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*room.Room), args.Error(1)
}

// MockMovieRepository implements movie.Repository
type MockMovieRepository struct {
	mock.Mock
}

func (m *MockMovieRepository) Create(ctx context.Context, mv *movie.Movie) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

func (m *MockMovieRepository) GetByID(ctx context.Context, id string) (*movie.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movie.Movie), args.Error(1)
}

func (m *MockMovieRepository) List(ctx context.Context, limit, offset int) ([]*movie.Movie, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*movie.Movie), args.Error(1)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) ReplaceSeats(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) MarkConfirmed(ctx context.Context, tx transaction.Tx, b *booking.Booking, now time.Time) error {
	args := m.Called(ctx, tx, b, now)
	return args.Error(0)
}

func (m *MockBookingRepository) MarkCancelled(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*booking.Booking, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*booking.Booking, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) HasActiveForTimeRange(ctx context.Context, tx transaction.Tx, timeRangeID string) (bool, error) {
	args := m.Called(ctx, tx, timeRangeID)
	return args.Bool(0), args.Error(1)
}

// MockSeatStatusRepository implements seat.Repository
type MockSeatStatusRepository struct {
	mock.Mock
}

func (m *MockSeatStatusRepository) EnsureStatuses(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string) error {
	args := m.Called(ctx, tx, timeRangeID, seatIDs)
	return args.Error(0)
}

func (m *MockSeatStatusRepository) Hold(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string, bookingID string, until, now time.Time) ([]string, error) {
	args := m.Called(ctx, tx, timeRangeID, seatIDs, bookingID, until, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSeatStatusRepository) Confirm(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string, now time.Time) (int, error) {
	args := m.Called(ctx, tx, timeRangeID, bookingID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatStatusRepository) Release(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string) (int, error) {
	args := m.Called(ctx, tx, timeRangeID, bookingID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatStatusRepository) ListByTimeRange(ctx context.Context, timeRangeID string) ([]*seat.SeatStatus, error) {
	args := m.Called(ctx, timeRangeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.SeatStatus), args.Error(1)
}

// MockLockManager implements redisinfra.LockManagerInterface
type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

func (m *MockLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryInterval time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryInterval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

// MockLock implements redisinfra.Lock
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLock) Extend(ctx context.Context, ttl time.Duration) error {
	args := m.Called(ctx, ttl)
	return args.Error(0)
}

// MockSeatCache implements redisinfra.SeatCacheInterface
type MockSeatCache struct {
	mock.Mock
}

func (m *MockSeatCache) GetAvailableCount(ctx context.Context, timeRangeID string) (int, error) {
	args := m.Called(ctx, timeRangeID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatCache) SetAvailableCount(ctx context.Context, timeRangeID string, count int, ttl time.Duration) error {
	args := m.Called(ctx, timeRangeID, count, ttl)
	return args.Error(0)
}

func (m *MockSeatCache) Invalidate(ctx context.Context, timeRangeID string) error {
	args := m.Called(ctx, timeRangeID)
	return args.Error(0)
}

// MockPublisher implements EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event any) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
