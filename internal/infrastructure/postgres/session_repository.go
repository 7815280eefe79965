package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/session"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/transaction"
)

const sessionColumns = `id, movie_id, cinema_id, room_id, session_date, price, status, created_at, updated_at, version`

type sessionRow struct {
	ID          string          `db:"id"`
	MovieID     string          `db:"movie_id"`
	CinemaID    string          `db:"cinema_id"`
	RoomID      string          `db:"room_id"`
	SessionDate time.Time       `db:"session_date"`
	Price       decimal.Decimal `db:"price"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	Version     int             `db:"version"`
}

type timeRangeRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
}

func (r *timeRangeRow) toEntity() session.TimeRange {
	return session.TimeRange{ID: r.ID, SessionID: r.SessionID, Start: r.StartTime, End: r.EndTime}
}

// SessionRepository はセッションリポジトリのPostgreSQL実装
type SessionRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewSessionRepository はSessionRepositoryを作成する
// loc は DATE 列を上映日として解釈するタイムゾーン
func NewSessionRepository(db *sqlx.DB, loc *time.Location) *SessionRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionRepository{db: db, loc: loc}
}

func (r *SessionRepository) toEntity(row *sessionRow) *session.Session {
	y, m, d := row.SessionDate.Date()
	return &session.Session{
		ID:          row.ID,
		MovieID:     row.MovieID,
		CinemaID:    row.CinemaID,
		RoomID:      row.RoomID,
		SessionDate: time.Date(y, m, d, 0, 0, 0, 0, r.loc),
		Price:       row.Price,
		Status:      session.Status(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		Version:     row.Version,
	}
}

// Create はセッションと上映枠を作成する
func (r *SessionRepository) Create(ctx context.Context, tx transaction.Tx, s *session.Session) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (movie_id, cinema_id, room_id, session_date, price, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if err := sqlTx.QueryRowContext(ctx, query,
		s.MovieID, s.CinemaID, s.RoomID, dateParam(s.SessionDate), s.Price, string(s.Status), s.CreatedAt, s.UpdatedAt, s.Version,
	).Scan(&s.ID); err != nil {
		return fmt.Errorf("セッション作成に失敗しました: %w", err)
	}

	for i := range s.TimeRanges {
		if err := r.insertTimeRange(ctx, sqlTx, s.ID, &s.TimeRanges[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SessionRepository) insertTimeRange(ctx context.Context, tx *sqlx.Tx, sessionID string, tr *session.TimeRange) error {
	query := `INSERT INTO time_ranges (session_id, start_time, end_time) VALUES ($1, $2, $3) RETURNING id`
	if err := tx.QueryRowContext(ctx, query, sessionID, tr.Start, tr.End).Scan(&tr.ID); err != nil {
		return fmt.Errorf("上映枠作成に失敗しました: %w", err)
	}
	tr.SessionID = sessionID
	return nil
}

// Update はセッションを更新し、上映枠を置き換える（楽観的ロック）
// IDを持つ上映枠は更新、持たないものは追加、含まれない既存の上映枠は deleted_at を立てる
func (r *SessionRepository) Update(ctx context.Context, tx transaction.Tx, s *session.Session) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE sessions
		SET movie_id = $1, session_date = $2, price = $3, updated_at = $4, version = version + 1
		WHERE id = $5 AND version = $6 AND status = 'active'
	`
	result, err := sqlTx.ExecContext(ctx, query, s.MovieID, dateParam(s.SessionDate), s.Price, now, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("セッション更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return session.ErrOptimisticLockConflict
	}

	keep := make([]string, 0, len(s.TimeRanges))
	for _, tr := range s.TimeRanges {
		if tr.ID != "" {
			keep = append(keep, tr.ID)
		}
	}
	if _, err := sqlTx.ExecContext(ctx,
		`UPDATE time_ranges SET deleted_at = $1 WHERE session_id = $2 AND deleted_at IS NULL AND NOT (id = ANY($3::uuid[]))`,
		now, s.ID, pq.Array(keep),
	); err != nil {
		return fmt.Errorf("上映枠の無効化に失敗しました: %w", err)
	}

	for i := range s.TimeRanges {
		tr := &s.TimeRanges[i]
		if tr.ID == "" {
			if err := r.insertTimeRange(ctx, sqlTx, s.ID, tr); err != nil {
				return err
			}
			continue
		}
		result, err := sqlTx.ExecContext(ctx,
			`UPDATE time_ranges SET start_time = $1, end_time = $2 WHERE id = $3 AND session_id = $4 AND deleted_at IS NULL`,
			tr.Start, tr.End, tr.ID, s.ID,
		)
		if err != nil {
			return fmt.Errorf("上映枠更新に失敗しました: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return session.ErrTimeRangeNotFound
		}
	}

	s.Version++
	s.UpdatedAt = now
	return nil
}

// SoftDelete はセッションを論理削除する
func (r *SessionRepository) SoftDelete(ctx context.Context, tx transaction.Tx, s *session.Session) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}

	result, err := sqlTx.ExecContext(ctx,
		`UPDATE sessions SET status = 'deleted', updated_at = $1, version = version + 1 WHERE id = $2 AND status = 'active'`,
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("セッション削除に失敗しました: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return session.ErrSessionDeleted
	}
	s.Version++
	return nil
}

// GetByID はIDからセッションを上映枠付きで取得する
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("セッション取得に失敗しました: %w", err)
	}
	sessions, err := r.withTimeRanges(ctx, r.db, []sessionRow{row})
	if err != nil {
		return nil, err
	}
	return sessions[0], nil
}

// GetByIDForUpdate はセッション行と有効な上映枠の行を FOR UPDATE で押さえてから返す
// 仮押さえ側の FOR SHARE とぶつかるので、予約の有無の確認とセッション変更の間に仮押さえが割り込めない
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*session.Session, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}

	var row sessionRow
	if err := sqlTx.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("セッションのロック取得に失敗しました: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx,
		`SELECT id FROM time_ranges WHERE session_id = $1 AND deleted_at IS NULL ORDER BY id FOR UPDATE`, id,
	); err != nil {
		return nil, fmt.Errorf("上映枠のロック取得に失敗しました: %w", err)
	}

	sessions, err := r.withTimeRanges(ctx, sqlTx, []sessionRow{row})
	if err != nil {
		return nil, err
	}
	return sessions[0], nil
}

// GetTimeRangeForShare は有効なセッションに属する有効な上映枠を FOR SHARE で取得する
// 並行する変更・削除がコミット済みなら再評価で行が外れ、ErrTimeRangeNotFound になる
func (r *SessionRepository) GetTimeRangeForShare(ctx context.Context, tx transaction.Tx, sessionID, timeRangeID string) (*session.TimeRange, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}

	var row timeRangeRow
	query := `
		SELECT tr.id, tr.session_id, tr.start_time, tr.end_time
		FROM time_ranges tr
		JOIN sessions s ON s.id = tr.session_id
		WHERE tr.id = $1 AND tr.session_id = $2 AND tr.deleted_at IS NULL AND s.status = 'active'
		FOR SHARE OF tr, s
	`
	if err := sqlTx.GetContext(ctx, &row, query, timeRangeID, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, session.ErrTimeRangeNotFound
		}
		return nil, fmt.Errorf("上映枠取得に失敗しました: %w", err)
	}
	tr := row.toEntity()
	return &tr, nil
}

// ListActiveByRoomAndDate はスクリーン・日付の有効なセッションを取得する
func (r *SessionRepository) ListActiveByRoomAndDate(ctx context.Context, roomID string, date time.Time) ([]*session.Session, error) {
	return r.listActiveByRoomAndDate(ctx, r.db, roomID, date)
}

// ListActiveByRoomAndDateTx はトランザクション内で有効なセッションを取得する
func (r *SessionRepository) ListActiveByRoomAndDateTx(ctx context.Context, tx transaction.Tx, roomID string, date time.Time) ([]*session.Session, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	return r.listActiveByRoomAndDate(ctx, sqlTx, roomID, date)
}

func (r *SessionRepository) listActiveByRoomAndDate(ctx context.Context, q sqlx.QueryerContext, roomID string, date time.Time) ([]*session.Session, error) {
	var rows []sessionRow
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE room_id = $1 AND session_date = $2::date AND status = 'active'`
	if err := sqlx.SelectContext(ctx, q, &rows, query, roomID, dateParam(date)); err != nil {
		if isInvalidInput(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("セッション一覧取得に失敗しました: %w", err)
	}
	return r.withTimeRanges(ctx, q, rows)
}

// LockRoomSchedule はスクリーン・日付単位のアドバイザリロックをトランザクション終了まで保持する
func (r *SessionRepository) LockRoomSchedule(ctx context.Context, tx transaction.Tx, roomID string, date time.Time) error {
	return advisoryXactLock(ctx, tx, "schedule:"+roomID+":"+dateParam(date))
}

// ListByCinemaAndDate は映画館・日付の有効なセッション一覧を取得する
func (r *SessionRepository) ListByCinemaAndDate(ctx context.Context, cinemaID string, date time.Time) ([]*session.Session, error) {
	var rows []sessionRow
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE cinema_id = $1 AND session_date = $2::date AND status = 'active' ORDER BY room_id`
	if err := r.db.SelectContext(ctx, &rows, query, cinemaID, dateParam(date)); err != nil {
		return nil, fmt.Errorf("セッション一覧取得に失敗しました: %w", err)
	}
	return r.withTimeRanges(ctx, r.db, rows)
}

// withTimeRanges は有効な上映枠をまとめて読み込み、セッションに付与する
func (r *SessionRepository) withTimeRanges(ctx context.Context, q sqlx.QueryerContext, rows []sessionRow) ([]*session.Session, error) {
	sessions := make([]*session.Session, len(rows))
	if len(rows) == 0 {
		return sessions, nil
	}

	ids := make([]string, len(rows))
	index := make(map[string]*session.Session, len(rows))
	for i := range rows {
		sessions[i] = r.toEntity(&rows[i])
		ids[i] = rows[i].ID
		index[rows[i].ID] = sessions[i]
	}

	var trRows []timeRangeRow
	query := `
		SELECT id, session_id, start_time, end_time
		FROM time_ranges
		WHERE session_id = ANY($1::uuid[]) AND deleted_at IS NULL
		ORDER BY start_time
	`
	if err := sqlx.SelectContext(ctx, q, &trRows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("上映枠取得に失敗しました: %w", err)
	}
	for i := range trRows {
		s := index[trRows[i].SessionID]
		s.TimeRanges = append(s.TimeRanges, trRows[i].toEntity())
	}
	return sessions, nil
}

var _ session.Repository = (*SessionRepository)(nil)
