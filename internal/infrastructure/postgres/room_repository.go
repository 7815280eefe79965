package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
)

type roomRow struct {
	ID        string    `db:"id"`
	CinemaID  string    `db:"cinema_id"`
	Name      string    `db:"name"`
	Capacity  int       `db:"capacity"`
	OpensAt   int       `db:"opens_at"`
	ClosesAt  int       `db:"closes_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type roomSeatRow struct {
	ID         string `db:"id"`
	RoomID     string `db:"room_id"`
	SeatNumber string `db:"seat_number"`
	IsPMR      bool   `db:"is_pmr"`
}

func (r *roomRow) toEntity(seats []roomSeatRow) *room.Room {
	rm := &room.Room{
		ID:        r.ID,
		CinemaID:  r.CinemaID,
		Name:      r.Name,
		Capacity:  r.Capacity,
		OpensAt:   room.ClockTime(r.OpensAt),
		ClosesAt:  room.ClockTime(r.ClosesAt),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	rm.Seats = make([]*room.Seat, len(seats))
	for i, s := range seats {
		rm.Seats[i] = &room.Seat{ID: s.ID, RoomID: s.RoomID, SeatNumber: s.SeatNumber, IsPMR: s.IsPMR}
	}
	return rm
}

// RoomRepository はスクリーンリポジトリのPostgreSQL実装
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository はRoomRepositoryを作成する
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create はスクリーンと座席を1トランザクションで作成する
func (r *RoomRepository) Create(ctx context.Context, rm *room.Room) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO rooms (cinema_id, name, capacity, opens_at, closes_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err = tx.QueryRowContext(ctx, query,
		rm.CinemaID, rm.Name, rm.Capacity, int(rm.OpensAt), int(rm.ClosesAt), rm.CreatedAt, rm.UpdatedAt,
	).Scan(&rm.ID); err != nil {
		return fmt.Errorf("スクリーン作成に失敗しました: %w", err)
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(rm.Seats); i += batchSize {
		end := i + batchSize
		if end > len(rm.Seats) {
			end = len(rm.Seats)
		}
		if err = r.createSeatBatch(ctx, tx, rm.ID, rm.Seats[i:end]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗しました: %w", err)
	}
	return nil
}

// createSeatBatch はバッチ単位でマルチバリューINSERTを実行し、採番されたIDを座席に反映する
func (r *RoomRepository) createSeatBatch(ctx context.Context, tx *sqlx.Tx, roomID string, seats []*room.Seat) error {
	query := `INSERT INTO seats (room_id, seat_number, is_pmr) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * 3
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, roomID, s.SeatNumber, s.IsPMR)
	}
	query += strings.Join(placeholders, ", ") + " RETURNING id, seat_number"

	var created []roomSeatRow
	if err := tx.SelectContext(ctx, &created, query, args...); err != nil {
		if isUniqueViolation(err) {
			return room.ErrDuplicateSeatNumber
		}
		return fmt.Errorf("座席一括作成に失敗しました: %w", err)
	}

	ids := make(map[string]string, len(created))
	for _, c := range created {
		ids[c.SeatNumber] = c.ID
	}
	for _, s := range seats {
		s.ID = ids[s.SeatNumber]
		s.RoomID = roomID
	}
	return nil
}

// GetByID はIDからスクリーンを座席付きで取得する
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*room.Room, error) {
	var row roomRow
	query := `SELECT id, cinema_id, name, capacity, opens_at, closes_at, created_at, updated_at FROM rooms WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, room.ErrRoomNotFound
		}
		return nil, fmt.Errorf("スクリーン取得に失敗しました: %w", err)
	}

	var seats []roomSeatRow
	if err := r.db.SelectContext(ctx, &seats,
		`SELECT id, room_id, seat_number, is_pmr FROM seats WHERE room_id = $1 ORDER BY seat_number`, id,
	); err != nil {
		return nil, fmt.Errorf("座席取得に失敗しました: %w", err)
	}
	return row.toEntity(seats), nil
}

var _ room.Repository = (*RoomRepository)(nil)
