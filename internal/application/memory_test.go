package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/booking"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/seat"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

// memLedger は予約と座席状態をメモリ上に保持するフェイク。
// トランザクションは txMu で直列化し、ロールバック時は開始時点のスナップショットに戻す
type memLedger struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	statuses map[string]seat.SeatStatus
	bookings map[string]booking.Booking
	seq      int
}

type ledgerSnapshot struct {
	statuses map[string]seat.SeatStatus
	bookings map[string]booking.Booking
	seq      int
}

func newMemLedger() *memLedger {
	return &memLedger{
		statuses: make(map[string]seat.SeatStatus),
		bookings: make(map[string]booking.Booking),
	}
}

func statusKey(seatID, timeRangeID string) string {
	return seatID + "|" + timeRangeID
}

func copyBooking(b booking.Booking) booking.Booking {
	b.Seats = append([]booking.BookedSeat(nil), b.Seats...)
	return b
}

func (l *memLedger) snapshot() ledgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := ledgerSnapshot{
		statuses: make(map[string]seat.SeatStatus, len(l.statuses)),
		bookings: make(map[string]booking.Booking, len(l.bookings)),
		seq:      l.seq,
	}
	for k, v := range l.statuses {
		snap.statuses[k] = v
	}
	for k, v := range l.bookings {
		snap.bookings[k] = copyBooking(v)
	}
	return snap
}

func (l *memLedger) restore(snap ledgerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = snap.statuses
	l.bookings = snap.bookings
	l.seq = snap.seq
}

// Begin implements transaction.Manager
func (l *memLedger) Begin(ctx context.Context) (transaction.Tx, error) {
	l.txMu.Lock()
	return &memTx{ledger: l, snap: l.snapshot()}, nil
}

type memTx struct {
	ledger *memLedger
	snap   ledgerSnapshot
	done   bool
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("トランザクションは終了しています")
	}
	t.done = true
	t.ledger.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.ledger.restore(t.snap)
	t.ledger.txMu.Unlock()
	return nil
}

// statusOf はテスト用に座席状態を返す
func (l *memLedger) statusOf(seatID, timeRangeID string) (seat.SeatStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.statuses[statusKey(seatID, timeRangeID)]
	return st, ok
}

// === seat.Repository ===

type memSeatRepo struct {
	ledger *memLedger
}

func (r *memSeatRepo) EnsureStatuses(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string) error {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range seatIDs {
		key := statusKey(id, timeRangeID)
		if _, ok := l.statuses[key]; !ok {
			l.statuses[key] = *seat.NewSeatStatus(id, timeRangeID)
		}
	}
	return nil
}

func (r *memSeatRepo) Hold(ctx context.Context, tx transaction.Tx, timeRangeID string, seatIDs []string, bookingID string, until, now time.Time) ([]string, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	var held []string
	for _, id := range seatIDs {
		key := statusKey(id, timeRangeID)
		st, ok := l.statuses[key]
		if !ok {
			continue
		}
		if err := st.Hold(bookingID, until, now); err != nil {
			continue
		}
		l.statuses[key] = st
		held = append(held, id)
	}
	return held, nil
}

func (r *memSeatRepo) Confirm(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string, now time.Time) (int, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, st := range l.statuses {
		if st.TimeRangeID != timeRangeID {
			continue
		}
		if err := st.Book(bookingID, now); err != nil {
			continue
		}
		l.statuses[key] = st
		n++
	}
	return n, nil
}

func (r *memSeatRepo) Release(ctx context.Context, tx transaction.Tx, timeRangeID, bookingID string) (int, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, st := range l.statuses {
		if st.TimeRangeID != timeRangeID {
			continue
		}
		if err := st.Release(bookingID); err != nil {
			continue
		}
		l.statuses[key] = st
		n++
	}
	return n, nil
}

func (r *memSeatRepo) ListByTimeRange(ctx context.Context, timeRangeID string) ([]*seat.SeatStatus, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*seat.SeatStatus
	for _, st := range l.statuses {
		if st.TimeRangeID == timeRangeID {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

// === booking.Repository ===

type memBookingRepo struct {
	ledger *memLedger
}

func (r *memBookingRepo) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.bookings {
		if existing.IdempotencyKey == b.IdempotencyKey {
			return booking.ErrIdempotencyKeyAlreadyExists
		}
	}
	l.seq++
	b.ID = fmt.Sprintf("booking-%d", l.seq)
	l.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r *memBookingRepo) ReplaceSeats(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.bookings[b.ID]
	if !ok || stored.Status != booking.StatusPending {
		return booking.ErrBookingNotPending
	}
	l.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r *memBookingRepo) MarkConfirmed(ctx context.Context, tx transaction.Tx, b *booking.Booking, now time.Time) error {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.bookings[b.ID]
	if !ok || stored.Status != booking.StatusPending || !stored.ExpiresAt.After(now) {
		return booking.ErrBookingNotPending
	}
	l.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r *memBookingRepo) MarkCancelled(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.bookings[b.ID]
	if !ok || stored.Status == booking.StatusCancelled {
		return booking.ErrInvalidStatus
	}
	l.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	b := copyBooking(stored)
	return &b, nil
}

func (r *memBookingRepo) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookingRepo) GetByIdempotencyKey(ctx context.Context, key string) (*booking.Booking, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, stored := range l.bookings {
		if stored.IdempotencyKey == key {
			b := copyBooking(stored)
			return &b, nil
		}
	}
	return nil, booking.ErrBookingNotFound
}

func (r *memBookingRepo) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*booking.Booking
	for _, stored := range l.bookings {
		if stored.UserID == userID {
			b := copyBooking(stored)
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memBookingRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*booking.Booking, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*booking.Booking
	for _, stored := range l.bookings {
		if stored.Status == booking.StatusPending && !stored.ExpiresAt.After(now) {
			b := copyBooking(stored)
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memBookingRepo) HasActiveForTimeRange(ctx context.Context, tx transaction.Tx, timeRangeID string) (bool, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, stored := range l.bookings {
		if stored.TimeRangeID == timeRangeID && stored.Status != booking.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

// fakeClock はテストから進められる時計
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ transaction.Manager = (*memLedger)(nil)
	_ seat.Repository     = (*memSeatRepo)(nil)
	_ booking.Repository  = (*memBookingRepo)(nil)
)
