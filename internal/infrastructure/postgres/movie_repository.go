package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
)

// movieRow はDBの行を表す構造体
type movieRow struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	RuntimeMinutes int       `db:"runtime_minutes"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *movieRow) toEntity() *movie.Movie {
	return &movie.Movie{
		ID:             r.ID,
		Title:          r.Title,
		RuntimeMinutes: r.RuntimeMinutes,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// MovieRepository は映画リポジトリのPostgreSQL実装
type MovieRepository struct {
	db *sqlx.DB
}

// NewMovieRepository はMovieRepositoryを作成する
func NewMovieRepository(db *sqlx.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Create は新しい映画を作成する
func (r *MovieRepository) Create(ctx context.Context, m *movie.Movie) error {
	query := `
		INSERT INTO movies (title, runtime_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, m.Title, m.RuntimeMinutes, m.CreatedAt, m.UpdatedAt).Scan(&m.ID); err != nil {
		return fmt.Errorf("映画作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDから映画を取得する
func (r *MovieRepository) GetByID(ctx context.Context, id string) (*movie.Movie, error) {
	query := `SELECT id, title, runtime_minutes, created_at, updated_at FROM movies WHERE id = $1`

	var row movieRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidInput(err) {
			return nil, movie.ErrMovieNotFound
		}
		return nil, fmt.Errorf("映画取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// List は映画一覧を取得する
func (r *MovieRepository) List(ctx context.Context, limit, offset int) ([]*movie.Movie, error) {
	query := `
		SELECT id, title, runtime_minutes, created_at, updated_at
		FROM movies
		ORDER BY title
		LIMIT $1 OFFSET $2
	`
	var rows []movieRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("映画一覧取得に失敗しました: %w", err)
	}

	movies := make([]*movie.Movie, len(rows))
	for i := range rows {
		movies[i] = rows[i].toEntity()
	}
	return movies, nil
}

// インターフェースを満たしているか確認
var _ movie.Repository = (*MovieRepository)(nil)
