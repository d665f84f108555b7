package repository

import (
	"context"
	"time"

	"simplelikes/internal/domain/like"
)

// LikeRepository defines storage operations for post likes.
type LikeRepository interface {
	// Find returns the like for the pair, or nil when absent.
	Find(ctx context.Context, postID, userID int64) (*like.Like, error)
	// Delete removes the like for the pair and reports rows affected.
	Delete(ctx context.Context, postID, userID int64) (int64, error)
	// Insert stores a new like.
	Insert(ctx context.Context, l like.Like) error
	// Toggle deletes the like for the pair, or inserts one stamped with
	// createdAt when nothing was deleted, as a single atomic step.
	Toggle(ctx context.Context, postID, userID int64, createdAt time.Time) (like.ToggleResult, error)
	// ListWithUsers returns likes joined with user profiles for the selector.
	ListWithUsers(ctx context.Context, sel like.Selector) ([]like.Record, error)
}

// UserRepository stores the public profile fields joined into like records.
type UserRepository interface {
	Upsert(ctx context.Context, userID int64, profile like.Profile) error
}
