package application

import (
	"context"
	"fmt"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
)

const defaultSeatPrefix = "A"

// InventoryService はスクリーンと映画の登録を扱う
type InventoryService struct {
	roomRepo  room.Repository
	movieRepo movie.Repository
}

func NewInventoryService(rr room.Repository, mr movie.Repository) *InventoryService {
	return &InventoryService{roomRepo: rr, movieRepo: mr}
}

type SeatInput struct {
	SeatNumber string
	IsPMR      bool
}

// CreateRoomInput はスクリーン登録の入力。Seats が空なら Capacity 席を
// "<SeatPrefix>-<番号>" で生成し、先頭 PMRSeats 席を車椅子対応席にする
type CreateRoomInput struct {
	CinemaID   string
	Name       string
	Capacity   int
	OpensAt    string
	ClosesAt   string
	Seats      []SeatInput
	SeatPrefix string
	PMRSeats   int
}

func (s *InventoryService) CreateRoom(ctx context.Context, input CreateRoomInput) (*room.Room, error) {
	opensAt, err := room.ParseClockTime(input.OpensAt)
	if err != nil {
		return nil, validationError(err)
	}
	closesAt, err := room.ParseClockTime(input.ClosesAt)
	if err != nil {
		return nil, validationError(err)
	}

	r := room.NewRoom(input.CinemaID, input.Name, input.Capacity, opensAt, closesAt)
	if len(input.Seats) > 0 {
		for _, in := range input.Seats {
			r.AddSeat(in.SeatNumber, in.IsPMR)
		}
	} else {
		prefix := input.SeatPrefix
		if prefix == "" {
			prefix = defaultSeatPrefix
		}
		for i := 1; i <= input.Capacity; i++ {
			r.AddSeat(fmt.Sprintf("%s-%d", prefix, i), i <= input.PMRSeats)
		}
	}

	if err := r.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.roomRepo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("スクリーン作成に失敗しました: %w", err)
	}
	return r, nil
}

func (s *InventoryService) GetRoom(ctx context.Context, id string) (*room.Room, error) {
	return s.roomRepo.GetByID(ctx, id)
}

type CreateMovieInput struct {
	Title          string
	RuntimeMinutes int
}

func (s *InventoryService) CreateMovie(ctx context.Context, input CreateMovieInput) (*movie.Movie, error) {
	m := movie.NewMovie(input.Title, input.RuntimeMinutes)
	if err := m.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.movieRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("映画作成に失敗しました: %w", err)
	}
	return m, nil
}

func (s *InventoryService) GetMovie(ctx context.Context, id string) (*movie.Movie, error) {
	return s.movieRepo.GetByID(ctx, id)
}

func (s *InventoryService) ListMovies(ctx context.Context, limit, offset int) ([]*movie.Movie, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.movieRepo.List(ctx, limit, offset)
}
