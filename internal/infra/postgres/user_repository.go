package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"simplelikes/internal/domain/like"
	"simplelikes/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository keeps the profile fields shown next to likes.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Upsert creates or refreshes a user's profile.
func (r *UserRepository) Upsert(ctx context.Context, userID int64, profile like.Profile) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id must be positive, got %d", like.ErrInvalidID, userID)
	}

	const query = `
INSERT INTO users (uid, username, avatar, usergroup, displaygroup)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (uid) DO UPDATE SET
	username = EXCLUDED.username,
	avatar = EXCLUDED.avatar,
	usergroup = EXCLUDED.usergroup,
	displaygroup = EXCLUDED.displaygroup`

	if _, err := r.pool.Exec(ctx, query,
		userID,
		profile.Username,
		profile.Avatar,
		profile.UserGroup,
		profile.DisplayGroup,
	); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Delete removes a user. Their likes stay behind.
func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE uid = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
