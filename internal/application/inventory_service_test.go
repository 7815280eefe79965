package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/movie"
	"github.com/jeremylhomme/cinephoria-cinema-app-sub000/internal/domain/room"
)

func TestInventoryService_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("座席を自動生成", func(t *testing.T) {
		roomRepo := new(MockRoomRepository)
		service := NewInventoryService(roomRepo, new(MockMovieRepository))
		roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*room.Room")).Return(nil)

		r, err := service.CreateRoom(ctx, CreateRoomInput{
			CinemaID: "cinema-1",
			Name:     "Salle 1",
			Capacity: 4,
			OpensAt:  "09:00",
			ClosesAt: "23:30",
			PMRSeats: 1,
		})

		require.NoError(t, err)
		require.Len(t, r.Seats, 4)
		assert.Equal(t, "A-1", r.Seats[0].SeatNumber)
		assert.True(t, r.Seats[0].IsPMR)
		assert.Equal(t, "A-4", r.Seats[3].SeatNumber)
		assert.False(t, r.Seats[3].IsPMR)
		assert.Equal(t, "23:30", r.ClosesAt.String())
		roomRepo.AssertExpectations(t)
	})

	t.Run("座席を指定", func(t *testing.T) {
		roomRepo := new(MockRoomRepository)
		service := NewInventoryService(roomRepo, new(MockMovieRepository))
		roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*room.Room")).Return(nil)

		r, err := service.CreateRoom(ctx, CreateRoomInput{
			CinemaID: "cinema-1",
			Name:     "Salle 2",
			Capacity: 10,
			OpensAt:  "10:00",
			ClosesAt: "22:00",
			Seats:    []SeatInput{{SeatNumber: "B-1"}, {SeatNumber: "B-2", IsPMR: true}},
		})

		require.NoError(t, err)
		require.Len(t, r.Seats, 2)
		assert.True(t, r.Seats[1].IsPMR)
	})

	tests := []struct {
		name    string
		input   CreateRoomInput
		wantErr error
	}{
		{
			name:    "時刻の形式が不正",
			input:   CreateRoomInput{CinemaID: "cinema-1", Name: "Salle", Capacity: 1, OpensAt: "9h", ClosesAt: "23:00"},
			wantErr: room.ErrInvalidClockTime,
		},
		{
			name:    "営業時間が逆転",
			input:   CreateRoomInput{CinemaID: "cinema-1", Name: "Salle", Capacity: 1, OpensAt: "23:00", ClosesAt: "09:00"},
			wantErr: room.ErrInvalidOpeningHours,
		},
		{
			name: "座席番号が重複",
			input: CreateRoomInput{CinemaID: "cinema-1", Name: "Salle", Capacity: 2, OpensAt: "09:00", ClosesAt: "23:00",
				Seats: []SeatInput{{SeatNumber: "A-1"}, {SeatNumber: "A-1"}}},
			wantErr: room.ErrDuplicateSeatNumber,
		},
		{
			name:    "映画館IDなし",
			input:   CreateRoomInput{Name: "Salle", Capacity: 1, OpensAt: "09:00", ClosesAt: "23:00"},
			wantErr: room.ErrCinemaIDRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roomRepo := new(MockRoomRepository)
			service := NewInventoryService(roomRepo, new(MockMovieRepository))

			_, err := service.CreateRoom(ctx, tt.input)

			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.wantErr)
			roomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestInventoryService_CreateMovie(t *testing.T) {
	ctx := context.Background()

	t.Run("成功", func(t *testing.T) {
		movieRepo := new(MockMovieRepository)
		service := NewInventoryService(new(MockRoomRepository), movieRepo)
		movieRepo.On("Create", mock.Anything, mock.AnythingOfType("*movie.Movie")).Return(nil)

		m, err := service.CreateMovie(ctx, CreateMovieInput{Title: "Le Voyage", RuntimeMinutes: 125})

		require.NoError(t, err)
		assert.Equal(t, 125, m.RuntimeMinutes)
	})

	t.Run("上映時間が0", func(t *testing.T) {
		service := NewInventoryService(new(MockRoomRepository), new(MockMovieRepository))

		_, err := service.CreateMovie(ctx, CreateMovieInput{Title: "Le Voyage"})

		assert.ErrorIs(t, err, movie.ErrInvalidRuntime)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("DBエラー", func(t *testing.T) {
		movieRepo := new(MockMovieRepository)
		service := NewInventoryService(new(MockRoomRepository), movieRepo)
		movieRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))

		_, err := service.CreateMovie(ctx, CreateMovieInput{Title: "Le Voyage", RuntimeMinutes: 90})

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrValidation)
	})
}

func TestInventoryService_ListMovies(t *testing.T) {
	movieRepo := new(MockMovieRepository)
	service := NewInventoryService(new(MockRoomRepository), movieRepo)
	movieRepo.On("List", mock.Anything, 100, 0).Return([]*movie.Movie{{ID: "movie-1"}}, nil)

	movies, err := service.ListMovies(context.Background(), 500, -1)

	require.NoError(t, err)
	assert.Len(t, movies, 1)
	movieRepo.AssertExpectations(t)
}
