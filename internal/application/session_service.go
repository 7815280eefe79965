package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/planner"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
	redisinfra "github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/infrastructure/redis"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/pkg/logger"
)

const (
	scheduleLockTTL        = 10 * time.Second
	scheduleLockRetries    = 3
	scheduleLockRetryDelay = 100 * time.Millisecond
)

// SessionService は上映枠の計算とセッションの登録を扱う
type SessionService struct {
	txManager   transaction.Manager
	sessionRepo session.Repository
	roomRepo    room.Repository
	movieRepo   movie.Repository
	bookingRepo booking.Repository
	lockManager redisinfra.LockManagerInterface
	buffer      time.Duration
	loc         *time.Location
	options
}

func NewSessionService(
	txm transaction.Manager,
	sr session.Repository,
	rr room.Repository,
	mr movie.Repository,
	br booking.Repository,
	lm redisinfra.LockManagerInterface,
	buffer time.Duration,
	loc *time.Location,
	opts ...Option,
) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionService{
		txManager:   txm,
		sessionRepo: sr,
		roomRepo:    rr,
		movieRepo:   mr,
		bookingRepo: br,
		lockManager: lm,
		buffer:      buffer,
		loc:         loc,
		options:     newOptions(opts),
	}
}

// AvailabilityQuery は上映枠検索の条件。ExcludeSessionID は編集中のセッション自身を除外する
type AvailabilityQuery struct {
	CinemaID         string
	RoomID           string
	MovieID          string
	Date             time.Time
	ExcludeSessionID string
}

func (q AvailabilityQuery) validate(requireMovie bool) error {
	switch {
	case q.CinemaID == "":
		return room.ErrCinemaIDRequired
	case q.RoomID == "":
		return session.ErrRoomIDRequired
	case requireMovie && q.MovieID == "":
		return session.ErrMovieIDRequired
	case q.Date.IsZero():
		return session.ErrSessionDateRequired
	}
	return nil
}

// AvailableTimeRanges は新しいセッションに割り当て可能な上映枠を返す
func (s *SessionService) AvailableTimeRanges(ctx context.Context, q AvailabilityQuery) ([]planner.Window, error) {
	if err := q.validate(true); err != nil {
		return nil, validationError(err)
	}
	r, err := s.loadRoom(ctx, q.CinemaID, q.RoomID)
	if err != nil {
		return nil, err
	}
	m, err := s.movieRepo.GetByID(ctx, q.MovieID)
	if err != nil {
		return nil, fmt.Errorf("映画取得に失敗: %w", err)
	}

	date := s.dateIn(q.Date)
	existing, err := s.sessionRepo.ListActiveByRoomAndDate(ctx, r.ID, date)
	if err != nil {
		return nil, fmt.Errorf("セッション取得に失敗: %w", err)
	}

	result := planner.ComputeAvailableWindows(r, date, m.RuntimeMinutes, s.buffer, excludeSession(existing, q.ExcludeSessionID))
	s.reportSkipped(r.ID, date, result.Skipped)
	return result.Windows, nil
}

// BookedTimeRanges は他の有効なセッションが占有している上映枠を返す
func (s *SessionService) BookedTimeRanges(ctx context.Context, q AvailabilityQuery) ([]planner.Window, error) {
	if err := q.validate(false); err != nil {
		return nil, validationError(err)
	}
	r, err := s.loadRoom(ctx, q.CinemaID, q.RoomID)
	if err != nil {
		return nil, err
	}
	if q.MovieID != "" {
		if _, err := s.movieRepo.GetByID(ctx, q.MovieID); err != nil {
			return nil, fmt.Errorf("映画取得に失敗: %w", err)
		}
	}

	date := s.dateIn(q.Date)
	existing, err := s.sessionRepo.ListActiveByRoomAndDate(ctx, r.ID, date)
	if err != nil {
		return nil, fmt.Errorf("セッション取得に失敗: %w", err)
	}

	result := planner.BookedWindows(excludeSession(existing, q.ExcludeSessionID))
	s.reportSkipped(r.ID, date, result.Skipped)
	return result.Windows, nil
}

// TimeRangeInput は上映枠の入力。ID は更新時に既存の上映枠を指す
type TimeRangeInput struct {
	ID    string
	Start time.Time
	End   time.Time
}

type CreateSessionInput struct {
	MovieID     string
	CinemaID    string
	RoomID      string
	SessionDate time.Time
	Price       decimal.Decimal
	TimeRanges  []TimeRangeInput
}

// CreateSession はセッションを登録する。重複はコミット直前の最新状態で再確認する
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*session.Session, error) {
	q := AvailabilityQuery{CinemaID: input.CinemaID, RoomID: input.RoomID, MovieID: input.MovieID, Date: input.SessionDate}
	if err := q.validate(true); err != nil {
		return nil, validationError(err)
	}
	r, err := s.loadRoom(ctx, input.CinemaID, input.RoomID)
	if err != nil {
		return nil, err
	}
	m, err := s.movieRepo.GetByID(ctx, input.MovieID)
	if err != nil {
		return nil, fmt.Errorf("映画取得に失敗: %w", err)
	}

	sess := session.NewSession(input.MovieID, input.CinemaID, input.RoomID, s.dateIn(input.SessionDate), input.Price, toTimeRanges(input.TimeRanges))
	if err := sess.Validate(r, m.Runtime()); err != nil {
		return nil, validationError(err)
	}

	if err := s.commitSchedule(ctx, sess, nil, func(tx transaction.Tx) error {
		return s.sessionRepo.Create(ctx, tx, sess)
	}); err != nil {
		return nil, err
	}

	logger.Info("セッションを登録しました",
		logger.SessionID(sess.ID),
		logger.RoomID(sess.RoomID),
		zap.Int("time_ranges", len(sess.TimeRanges)),
	)
	s.publish(ctx, newSessionScheduled(sess, false, s.now()))
	return sess, nil
}

type UpdateSessionInput struct {
	ID          string
	MovieID     string
	SessionDate time.Time
	Price       decimal.Decimal
	TimeRanges  []TimeRangeInput
	// Version を指定した場合、現在のバージョンと一致しなければ競合とする
	Version *int
}

// UpdateSession はセッションの映画・日付・料金・上映枠を置き換える。
// 予約が残っている上映枠の削除や時刻変更は ErrTimeRangeInUse になる
func (s *SessionService) UpdateSession(ctx context.Context, input UpdateSessionInput) (*session.Session, error) {
	current, err := s.sessionRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !current.IsActive() {
		return nil, session.ErrSessionDeleted
	}
	if input.Version != nil && *input.Version != current.Version {
		return nil, session.ErrOptimisticLockConflict
	}

	movieID := input.MovieID
	if movieID == "" {
		movieID = current.MovieID
	}
	r, err := s.loadRoom(ctx, current.CinemaID, current.RoomID)
	if err != nil {
		return nil, err
	}
	m, err := s.movieRepo.GetByID(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("映画取得に失敗: %w", err)
	}

	ranges := toTimeRanges(input.TimeRanges)
	for _, tr := range ranges {
		if tr.ID == "" {
			continue
		}
		if _, ok := current.FindTimeRange(tr.ID); !ok {
			return nil, session.ErrTimeRangeNotFound
		}
	}

	updated := *current
	updated.MovieID = movieID
	updated.Price = input.Price
	updated.TimeRanges = ranges
	if !input.SessionDate.IsZero() {
		updated.SessionDate = s.dateIn(input.SessionDate)
	}
	if err := updated.Validate(r, m.Runtime()); err != nil {
		return nil, validationError(err)
	}

	if err := s.commitSchedule(ctx, &updated, current, func(tx transaction.Tx) error {
		// 行ロックの後で予約を確認する。並行する仮押さえはこの確認より前にコミット済みか、コミットまで待たされる
		locked, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		if !locked.IsActive() {
			return session.ErrSessionDeleted
		}
		if locked.Version != current.Version {
			return session.ErrOptimisticLockConflict
		}
		if err := s.ensureRangesReleasable(ctx, tx, locked, &updated); err != nil {
			return err
		}
		return s.sessionRepo.Update(ctx, tx, &updated)
	}); err != nil {
		return nil, err
	}

	logger.Info("セッションを更新しました",
		logger.SessionID(updated.ID),
		zap.Int("version", updated.Version),
	)
	s.publish(ctx, newSessionScheduled(&updated, true, s.now()))
	return &updated, nil
}

// DeleteSession はセッションを論理削除する。既存の予約は参照可能なまま残る
func (s *SessionService) DeleteSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.SoftDelete(); err != nil {
		return nil, err
	}
	if err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		// 仮押さえの共有ロックと競合させ、削除後に新しい予約が入らないようにする
		if _, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, sess.ID); err != nil {
			return err
		}
		return s.sessionRepo.SoftDelete(ctx, tx, sess)
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, SessionDeleted{
		Header:    newEventHeader(s.now()),
		SessionID: sess.ID,
		RoomID:    sess.RoomID,
	})
	return sess, nil
}

func (s *SessionService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

func (s *SessionService) ListSessions(ctx context.Context, cinemaID string, date time.Time) ([]*session.Session, error) {
	if cinemaID == "" {
		return nil, validationError(room.ErrCinemaIDRequired)
	}
	if date.IsZero() {
		return nil, validationError(session.ErrSessionDateRequired)
	}
	return s.sessionRepo.ListByCinemaAndDate(ctx, cinemaID, s.dateIn(date))
}

// commitSchedule はスクリーン・日付単位でロックを取り、最新のコミット済みセッションと
// 重ならないことを確認してから persist を実行する
func (s *SessionService) commitSchedule(ctx context.Context, sess *session.Session, previous *session.Session, persist func(tx transaction.Tx) error) error {
	keys := []scheduleKey{{roomID: sess.RoomID, date: sess.SessionDate}}
	if previous != nil && !sameDay(previous.SessionDate, sess.SessionDate) {
		keys = append(keys, scheduleKey{roomID: previous.RoomID, date: previous.SessionDate})
	}
	// 日付をまたぐ更新同士がデッドロックしないよう、常にキー順で取る
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		release, err := s.acquireScheduleLock(ctx, k)
		if err != nil {
			s.metrics.ObserveSessionScheduled("error")
			return err
		}
		defer release()
	}

	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		for _, k := range keys {
			if err := s.sessionRepo.LockRoomSchedule(ctx, tx, k.roomID, k.date); err != nil {
				return fmt.Errorf("スケジュールロックに失敗: %w", err)
			}
		}
		latest, err := s.sessionRepo.ListActiveByRoomAndDateTx(ctx, tx, sess.RoomID, sess.SessionDate)
		if err != nil {
			return fmt.Errorf("セッション取得に失敗: %w", err)
		}
		if err := checkOverlap(sess, latest); err != nil {
			return err
		}
		return persist(tx)
	})

	switch {
	case err == nil:
		s.metrics.ObserveSessionScheduled("success")
	case errors.Is(err, session.ErrSessionOverlap):
		s.metrics.ObserveSessionScheduled("overlap")
	default:
		s.metrics.ObserveSessionScheduled("error")
	}
	return err
}

type scheduleKey struct {
	roomID string
	date   time.Time
}

func (k scheduleKey) String() string {
	return redisinfra.ScheduleLockKey(k.roomID, k.date)
}

func (s *SessionService) acquireScheduleLock(ctx context.Context, key scheduleKey) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}
	started := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, key.String(), scheduleLockTTL, scheduleLockRetries, scheduleLockRetryDelay)
	if err != nil {
		s.metrics.ObserveLock("schedule", "failed", started)
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	s.metrics.ObserveLock("schedule", "acquired", started)
	return func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("ロック解放に失敗", logger.LockKey(key.String()), zap.Error(err))
		}
	}, nil
}

// ensureRangesReleasable は削除・時刻変更される上映枠に有効な予約がないことを確認する
func (s *SessionService) ensureRangesReleasable(ctx context.Context, tx transaction.Tx, current, updated *session.Session) error {
	for _, old := range current.TimeRanges {
		next, kept := updated.FindTimeRange(old.ID)
		if kept && next.Start.Equal(old.Start) && next.End.Equal(old.End) {
			continue
		}
		inUse, err := s.bookingRepo.HasActiveForTimeRange(ctx, tx, old.ID)
		if err != nil {
			return fmt.Errorf("予約の確認に失敗: %w", err)
		}
		if inUse {
			return session.ErrTimeRangeInUse
		}
	}
	return nil
}

func (s *SessionService) loadRoom(ctx context.Context, cinemaID, roomID string) (*room.Room, error) {
	r, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("スクリーン取得に失敗: %w", err)
	}
	if r.CinemaID != cinemaID {
		return nil, validationError(room.ErrCinemaMismatch)
	}
	return r, nil
}

func (s *SessionService) reportSkipped(roomID string, date time.Time, skipped []planner.Skipped) {
	if len(skipped) == 0 {
		return
	}
	log := logger.Named("planner")
	for _, sk := range skipped {
		log.Warn("開始・終了時刻が欠けた上映枠をスキップしました",
			logger.RoomID(roomID),
			zap.String("date", date.Format("2006-01-02")),
			logger.SessionID(sk.SessionID),
			logger.TimeRangeID(sk.TimeRangeID),
		)
	}
	s.metrics.AddPlannerSkipped(len(skipped))
}

// dateIn は日付を営業地のタイムゾーンの 0:00 に揃える
func (s *SessionService) dateIn(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, s.loc)
}

// checkOverlap は sess の上映枠が他の有効なセッションと重なっていないかを確認する
func checkOverlap(sess *session.Session, latest []*session.Session) error {
	booked := planner.BookedWindows(excludeSession(latest, sess.ID))
	var conflicts []session.TimeRange
	for _, w := range booked.Windows {
		for _, tr := range sess.TimeRanges {
			if w.Overlaps(planner.WindowOf(tr)) {
				conflicts = append(conflicts, w.TimeRange())
				break
			}
		}
	}
	if len(conflicts) > 0 {
		return &session.OverlapError{Conflicts: conflicts}
	}
	return nil
}

func excludeSession(sessions []*session.Session, id string) []*session.Session {
	if id == "" {
		return sessions
	}
	out := make([]*session.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func toTimeRanges(inputs []TimeRangeInput) []session.TimeRange {
	ranges := make([]session.TimeRange, 0, len(inputs))
	for _, in := range inputs {
		tr := session.NewTimeRange(in.Start, in.End)
		tr.ID = in.ID
		ranges = append(ranges, tr)
	}
	return ranges
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
