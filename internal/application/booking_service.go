package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/seat"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
	redisinfra "github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/infrastructure/redis"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
)

const (
	seatCacheTTL       = 30 * time.Second
	seatLockTTL        = 10 * time.Second
	seatLockRetries    = 3
	seatLockRetryDelay = 100 * time.Millisecond
	expiredBatchSize   = 100
)

// BookingService は座席の仮押さえ・確定・キャンセルを扱う
type BookingService struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	seatRepo    seat.Repository
	sessionRepo session.Repository
	roomRepo    room.Repository
	lockManager redisinfra.LockManagerInterface
	seatCache   redisinfra.SeatCacheInterface
	holdTTL     time.Duration
	options
}

func NewBookingService(
	txm transaction.Manager,
	br booking.Repository,
	sr seat.Repository,
	sessRepo session.Repository,
	rr room.Repository,
	lm redisinfra.LockManagerInterface,
	cache redisinfra.SeatCacheInterface,
	holdTTL time.Duration,
	opts ...Option,
) *BookingService {
	if holdTTL <= 0 {
		holdTTL = booking.HoldTTL
	}
	return &BookingService{
		txManager:   txm,
		bookingRepo: br,
		seatRepo:    sr,
		sessionRepo: sessRepo,
		roomRepo:    rr,
		lockManager: lm,
		seatCache:   cache,
		holdTTL:     holdTTL,
		options:     newOptions(opts),
	}
}

// HoldSeatsInput は仮押さえの入力。BookingID を指定すると自分の仮押さえ中の予約の座席を差し替える
type HoldSeatsInput struct {
	SessionID      string
	TimeRangeID    string
	UserID         string
	SeatIDs        []string
	IdempotencyKey string
	BookingID      string
}

// holdTarget は仮押さえ対象のセッション・上映枠・座席
type holdTarget struct {
	session   *session.Session
	timeRange session.TimeRange
	seats     []booking.BookedSeat
}

// HoldSeats は指定した座席をまとめて仮押さえする。1席でも取れなければ何も変更しない
func (s *BookingService) HoldSeats(ctx context.Context, input HoldSeatsInput) (*booking.Booking, error) {
	if input.UserID == "" {
		return nil, validationError(booking.ErrUserIDRequired)
	}
	if err := booking.ValidateSeatIDs(input.SeatIDs); err != nil {
		return nil, validationError(err)
	}

	if input.BookingID != "" {
		return s.replaceHold(ctx, input)
	}

	// 冪等性チェック
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = uuid.NewString()
	} else {
		existing, err := s.bookingRepo.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil {
			if existing.UserID != input.UserID {
				return nil, booking.ErrIdempotencyKeyAlreadyExists
			}
			return existing, nil
		}
		if !errors.Is(err, booking.ErrBookingNotFound) {
			return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
		}
	}

	target, err := s.resolveTarget(ctx, input.SessionID, input.TimeRangeID, input.SeatIDs)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSeatLock(ctx, input.TimeRangeID, input.SeatIDs)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	price := booking.CalculatePrice(target.session.Price, len(target.seats))
	b := booking.NewBooking(target.session.ID, input.UserID, input.IdempotencyKey, target.timeRange, target.seats, price, now, s.holdTTL)
	if err := b.Validate(); err != nil {
		return nil, validationError(err)
	}

	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		if err := s.lockTimeRange(ctx, tx, target); err != nil {
			return err
		}
		if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
			return err
		}
		return s.holdAll(ctx, tx, b, now)
	})
	if err != nil {
		s.observeHoldFailure("hold", err)
		return nil, err
	}

	s.metrics.ObserveBooking("hold", "success")
	s.invalidateCache(ctx, b.TimeRangeID)
	s.publish(ctx, newBookingHeld(b, now))
	return b, nil
}

// replaceHold は仮押さえ中の予約の座席を差し替える。差し替えに失敗した場合は元の仮押さえが残る
func (s *BookingService) replaceHold(ctx context.Context, input HoldSeatsInput) (*booking.Booking, error) {
	current, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != input.UserID {
		return nil, booking.ErrNotOwner
	}
	if (input.SessionID != "" && input.SessionID != current.SessionID) ||
		(input.TimeRangeID != "" && input.TimeRangeID != current.TimeRangeID) {
		return nil, validationError(ErrBookingScopeMismatch)
	}

	target, err := s.resolveTarget(ctx, current.SessionID, current.TimeRangeID, input.SeatIDs)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSeatLock(ctx, current.TimeRangeID, input.SeatIDs)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var updated *booking.Booking
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		if err := s.lockTimeRange(ctx, tx, target); err != nil {
			return err
		}
		locked, err := s.bookingRepo.GetByIDForUpdate(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		price := booking.CalculatePrice(target.session.Price, len(target.seats))
		if err := locked.ReplaceSeats(target.seats, price, now, s.holdTTL); err != nil {
			return err
		}
		if _, err := s.seatRepo.Release(ctx, tx, locked.TimeRangeID, locked.ID); err != nil {
			return fmt.Errorf("座席の解放に失敗: %w", err)
		}
		if err := s.holdAll(ctx, tx, locked, now); err != nil {
			return err
		}
		if err := s.bookingRepo.ReplaceSeats(ctx, tx, locked); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		s.observeHoldFailure("update", err)
		return nil, err
	}

	s.metrics.ObserveBooking("update", "success")
	s.invalidateCache(ctx, updated.TimeRangeID)
	s.publish(ctx, newBookingHeld(updated, now))
	return updated, nil
}

// holdAll は予約の全座席を仮押さえする。取れなかった座席があれば UnavailableError を返す
func (s *BookingService) holdAll(ctx context.Context, tx transaction.Tx, b *booking.Booking, now time.Time) error {
	seatIDs := b.SeatIDs()
	if err := s.seatRepo.EnsureStatuses(ctx, tx, b.TimeRangeID, seatIDs); err != nil {
		return fmt.Errorf("座席状態の作成に失敗: %w", err)
	}
	held, err := s.seatRepo.Hold(ctx, tx, b.TimeRangeID, seatIDs, b.ID, b.ExpiresAt, now)
	if err != nil {
		return err
	}
	if len(held) < len(seatIDs) {
		return seat.NewUnavailableError(missingSeats(seatIDs, held))
	}
	return nil
}

// resolveTarget はセッション・上映枠・座席の存在と所属を確認する
func (s *BookingService) resolveTarget(ctx context.Context, sessionID, timeRangeID string, seatIDs []string) (*holdTarget, error) {
	if sessionID == "" {
		return nil, validationError(booking.ErrSessionIDRequired)
	}
	if timeRangeID == "" {
		return nil, validationError(booking.ErrTimeRangeIDRequired)
	}

	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッション取得に失敗: %w", err)
	}
	if !sess.IsActive() {
		return nil, session.ErrSessionNotFound
	}
	tr, ok := sess.FindTimeRange(timeRangeID)
	if !ok {
		return nil, session.ErrTimeRangeNotFound
	}

	r, err := s.roomRepo.GetByID(ctx, sess.RoomID)
	if err != nil {
		return nil, fmt.Errorf("スクリーン取得に失敗: %w", err)
	}
	found, missing := r.SeatsByID(seatIDs)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", seat.ErrSeatNotFound, strings.Join(missing, ", "))
	}

	seats := make([]booking.BookedSeat, 0, len(found))
	for _, rs := range found {
		seats = append(seats, booking.BookedSeat{SeatID: rs.ID, SeatNumber: rs.SeatNumber, IsPMR: rs.IsPMR})
	}
	return &holdTarget{session: sess, timeRange: tr, seats: seats}, nil
}

// lockTimeRange は仮押さえのトランザクション内で上映枠を共有ロックし、
// 読み込み後にセッションの変更・削除がコミットされていないことを確かめる
func (s *BookingService) lockTimeRange(ctx context.Context, tx transaction.Tx, target *holdTarget) error {
	tr, err := s.sessionRepo.GetTimeRangeForShare(ctx, tx, target.session.ID, target.timeRange.ID)
	if err != nil {
		return err
	}
	if !tr.Start.Equal(target.timeRange.Start) || !tr.End.Equal(target.timeRange.End) {
		return fmt.Errorf("%w: 上映時刻が変更されました", session.ErrTimeRangeNotFound)
	}
	return nil
}

// acquireSeatLock は上映枠と座席IDから分散ロックを取得する（座席IDをソートしてデッドロックを防止）
func (s *BookingService) acquireSeatLock(ctx context.Context, timeRangeID string, seatIDs []string) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}
	key := redisinfra.SeatLockKey(timeRangeID, seatIDs)
	started := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, key, seatLockTTL, seatLockRetries, seatLockRetryDelay)
	if err != nil {
		s.metrics.ObserveLock("seats", "failed", started)
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("hold", "lock_failed")
			// 他のユーザーが同じ座席を処理中
			return nil, seat.NewUnavailableError(seatIDs)
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	s.metrics.ObserveLock("seats", "acquired", started)
	return func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("ロック解放に失敗", logger.LockKey(key), zap.Error(err))
		}
	}, nil
}

func (s *BookingService) observeHoldFailure(operation string, err error) {
	switch {
	case errors.Is(err, seat.ErrSeatNotAvailable):
		s.metrics.ObserveBooking(operation, "conflict")
	case errors.Is(err, booking.ErrBookingExpired):
		s.metrics.ObserveBooking(operation, "expired")
	default:
		s.metrics.ObserveBooking(operation, "error")
	}
}

// ConfirmBooking は仮押さえ中の予約を確定する。actorID を指定すると本人の予約に限る。
// 期限切れの予約は座席に関係なく ErrBookingExpired になる
func (s *BookingService) ConfirmBooking(ctx context.Context, id, actorID string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != "" && b.UserID != actorID {
		return nil, booking.ErrNotOwner
	}

	now := s.now()
	if err := b.Confirm(now); err != nil {
		s.observeHoldFailure("confirm", err)
		return nil, err
	}

	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		n, err := s.seatRepo.Confirm(ctx, tx, b.TimeRangeID, b.ID, now)
		if err != nil {
			return fmt.Errorf("座席の確定に失敗: %w", err)
		}
		if n != len(b.Seats) {
			return confirmConflict(b, now)
		}
		if err := s.bookingRepo.MarkConfirmed(ctx, tx, b, now); err != nil {
			if errors.Is(err, booking.ErrBookingNotPending) {
				return confirmConflict(b, now)
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.observeHoldFailure("confirm", err)
		return nil, err
	}

	s.metrics.ObserveBooking("confirm", "success")
	s.invalidateCache(ctx, b.TimeRangeID)
	s.publish(ctx, newBookingConfirmed(b, now))
	return b, nil
}

func confirmConflict(b *booking.Booking, now time.Time) error {
	if b.IsExpiredAt(now) {
		return booking.ErrBookingExpired
	}
	return booking.ErrBookingNotPending
}

// CancelBooking は予約をキャンセルして座席を解放する。既にキャンセル済みなら何もしない
func (s *BookingService) CancelBooking(ctx context.Context, id, actorID, reason string) (*booking.Booking, error) {
	if reason == "" {
		reason = booking.ReasonCancelledByUser
	}
	b, _, err := s.cancel(ctx, id, actorID, reason, false)
	return b, err
}

// cancel は予約を行ロックしてキャンセルする。onlyExpired の場合、期限内・確定済みの予約は変更しない
func (s *BookingService) cancel(ctx context.Context, id, actorID, reason string, onlyExpired bool) (*booking.Booking, bool, error) {
	now := s.now()
	var (
		result  *booking.Booking
		changed bool
	)
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		b, err := s.bookingRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		result = b
		if actorID != "" && b.UserID != actorID {
			return booking.ErrNotOwner
		}
		if onlyExpired && !(b.IsPending() && b.IsExpiredAt(now)) {
			return nil
		}

		changed, err = b.Cancel(now, reason)
		if err != nil || !changed {
			return err
		}
		if _, err := s.seatRepo.Release(ctx, tx, b.TimeRangeID, b.ID); err != nil {
			return fmt.Errorf("座席の解放に失敗: %w", err)
		}
		return s.bookingRepo.MarkCancelled(ctx, tx, b)
	})
	if err != nil {
		s.metrics.ObserveBooking("cancel", "error")
		return nil, false, err
	}

	if changed {
		s.metrics.ObserveBooking("cancel", "success")
		s.invalidateCache(ctx, result.TimeRangeID)
		s.publish(ctx, newBookingCancelled(result, now))
	}
	return result, changed, nil
}

// CancelExpiredBookings は期限から grace 以上過ぎた仮押さえ予約をキャンセルし、件数を返す
func (s *BookingService) CancelExpiredBookings(ctx context.Context, grace time.Duration) (int, error) {
	expired, err := s.bookingRepo.ListExpiredPending(ctx, s.now().Add(-grace), expiredBatchSize)
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}

	count := 0
	for _, b := range expired {
		_, changed, err := s.cancel(ctx, b.ID, "", booking.ReasonExpired, true)
		if err != nil {
			logger.Warn("期限切れ予約のキャンセルに失敗",
				logger.BookingID(b.ID),
				zap.Error(err),
			)
			continue
		}
		if changed {
			count++
		}
	}
	s.metrics.AddExpiredHoldsReleased(count)
	return count, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	if userID == "" {
		return nil, validationError(booking.ErrUserIDRequired)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.GetByUserID(ctx, userID, limit, offset)
}

// SeatMapEntry は座席表の1席
type SeatMapEntry struct {
	SeatID     string
	SeatNumber string
	IsPMR      bool
	Status     seat.Status
}

// SeatMap は上映枠ごとの座席表
type SeatMap struct {
	SessionID string
	TimeRange session.TimeRange
	Seats     []SeatMapEntry
	Available int
}

// GetSeatMap はスクリーンの座席と上映枠の座席状態を合わせた座席表を返す。
// 期限切れの仮押さえは空席として表示する
func (s *BookingService) GetSeatMap(ctx context.Context, sessionID, timeRangeID string) (*SeatMap, error) {
	sess, tr, err := s.findTimeRange(ctx, sessionID, timeRangeID)
	if err != nil {
		return nil, err
	}
	r, err := s.roomRepo.GetByID(ctx, sess.RoomID)
	if err != nil {
		return nil, fmt.Errorf("スクリーン取得に失敗: %w", err)
	}
	statuses, err := s.seatRepo.ListByTimeRange(ctx, timeRangeID)
	if err != nil {
		return nil, fmt.Errorf("座席状態の取得に失敗: %w", err)
	}

	now := s.now()
	bySeat := make(map[string]*seat.SeatStatus, len(statuses))
	for _, st := range statuses {
		bySeat[st.SeatID] = st
	}

	m := &SeatMap{SessionID: sess.ID, TimeRange: tr, Seats: make([]SeatMapEntry, 0, len(r.Seats))}
	for _, rs := range r.Seats {
		status := seat.StatusAvailable
		if st, ok := bySeat[rs.ID]; ok {
			status = st.EffectiveStatus(now)
		}
		if status == seat.StatusAvailable {
			m.Available++
		}
		m.Seats = append(m.Seats, SeatMapEntry{
			SeatID:     rs.ID,
			SeatNumber: rs.SeatNumber,
			IsPMR:      rs.IsPMR,
			Status:     status,
		})
	}
	return m, nil
}

// CountAvailableSeats は上映枠の空席数を返す（Redis にキャッシュ）
func (s *BookingService) CountAvailableSeats(ctx context.Context, sessionID, timeRangeID string) (int, error) {
	// キャッシュは上映枠IDだけで引くので、先にセッションとの対応を確かめる
	if _, _, err := s.findTimeRange(ctx, sessionID, timeRangeID); err != nil {
		return 0, err
	}

	if s.seatCache != nil {
		count, err := s.seatCache.GetAvailableCount(ctx, timeRangeID)
		if err == nil {
			logger.Debug("キャッシュヒット", logger.TimeRangeID(timeRangeID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	m, err := s.GetSeatMap(ctx, sessionID, timeRangeID)
	if err != nil {
		return 0, err
	}

	// キャッシュに保存
	if s.seatCache != nil {
		if cacheErr := s.seatCache.SetAvailableCount(ctx, timeRangeID, m.Available, seatCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return m.Available, nil
}

// findTimeRange はセッションと、そのセッションに属する上映枠を返す
func (s *BookingService) findTimeRange(ctx context.Context, sessionID, timeRangeID string) (*session.Session, session.TimeRange, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, session.TimeRange{}, err
	}
	tr, ok := sess.FindTimeRange(timeRangeID)
	if !ok {
		return nil, session.TimeRange{}, session.ErrTimeRangeNotFound
	}
	return sess, tr, nil
}

// invalidateCache は上映枠のキャッシュを無効化する
func (s *BookingService) invalidateCache(ctx context.Context, timeRangeID string) {
	if s.seatCache != nil {
		if err := s.seatCache.Invalidate(ctx, timeRangeID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}

// missingSeats は requested のうち held に含まれない座席IDを返す
func missingSeats(requested, held []string) []string {
	got := make(map[string]struct{}, len(held))
	for _, id := range held {
		got[id] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := got[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
