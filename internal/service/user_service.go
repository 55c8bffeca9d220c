package service

import (
	"context"
	"errors"

	"magnum_stars/internal/cache"
	"magnum_stars/internal/domain"
	"magnum_stars/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserService fronts the user store with the read-through cache. Reads may be
// served from a cached snapshot; anything that decides and writes goes to the
// store, and every write path deletes the cache entry.
type UserService struct {
	repo  *repository.UserRepository
	users *cache.UserCache
}

func NewUserService(db *pgxpool.Pool, users *cache.UserCache) *UserService {
	return &UserService{
		repo:  repository.NewUserRepository(db),
		users: users,
	}
}

// GetByID returns the user, preferring the cached snapshot.
func (s *UserService) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	if u, ok := s.users.Get(ctx, userID); ok {
		return u, nil
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.users.Set(ctx, u)
	return u, nil
}

// GetOrCreateByTgID resolves a Telegram identity to a user, creating the
// record with default balances and a zeroed miner on first contact.
func (s *UserService) GetOrCreateByTgID(ctx context.Context, tgID int64, username, firstName string) (*domain.User, error) {
	u, err := s.repo.GetByTgID(ctx, tgID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	u = &domain.User{
		TgID:      tgID,
		Username:  username,
		FirstName: firstName,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
