package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"simplelikes/internal/domain/like"
	"simplelikes/internal/domain/repository"
	"simplelikes/internal/pkg/apptime"
	"simplelikes/internal/platform/database"
)

var _ repository.LikeRepository = (*LikeRepository)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// created_at is stored as a zone-less TIMESTAMP holding the wall clock of
// apptime.Location, and round-trips through the text layout.
const createdAtColumn = `to_char(l.created_at, 'YYYY-MM-DD HH24:MI:SS')`

const (
	deleteLikeQuery = `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
	insertLikeQuery = `INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, $3::timestamp)`
)

// LikeRepository implements repository.LikeRepository backed by PostgreSQL.
type LikeRepository struct {
	pool *pgxpool.Pool
}

// NewLikeRepository creates a new LikeRepository.
func NewLikeRepository(pool *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{pool: pool}
}

// Find returns the like for the pair, or nil when none exists.
func (r *LikeRepository) Find(ctx context.Context, postID, userID int64) (*like.Like, error) {
	query := `SELECT l.post_id, l.user_id, ` + createdAtColumn + `
FROM post_likes l
WHERE l.post_id = $1 AND l.user_id = $2`

	var (
		l         like.Like
		createdAt string
	)
	err := r.pool.QueryRow(ctx, query, postID, userID).Scan(&l.PostID, &l.UserID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find like: %w", err)
	}
	if l.CreatedAt, err = apptime.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("find like: %w", err)
	}
	return &l, nil
}

// Delete removes the like for the pair and reports the number of rows removed.
func (r *LikeRepository) Delete(ctx context.Context, postID, userID int64) (int64, error) {
	return deleteLike(ctx, r.pool, postID, userID)
}

// Insert stores a like. A second like for the same pair is an error.
func (r *LikeRepository) Insert(ctx context.Context, l like.Like) error {
	if err := like.ValidateIDs(l.PostID, l.UserID); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertLikeQuery, l.PostID, l.UserID, apptime.FormatTimestamp(l.CreatedAt.In(apptime.Location()))); err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Toggle removes the pair's like, or records one when there was nothing to remove.
// Both steps share a transaction; a concurrent insert of the same pair is absorbed
// by the primary key.
func (r *LikeRepository) Toggle(ctx context.Context, postID, userID int64, createdAt time.Time) (like.ToggleResult, error) {
	result := like.Unliked
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		removed, err := deleteLike(ctx, tx, postID, userID)
		if err != nil {
			return err
		}
		if removed > 0 {
			result = like.Unliked
			return nil
		}
		query := insertLikeQuery + ` ON CONFLICT (post_id, user_id) DO NOTHING`
		if _, err := tx.Exec(ctx, query, postID, userID, apptime.FormatTimestamp(createdAt.In(apptime.Location()))); err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		result = like.Liked
		return nil
	})
	if err != nil {
		return like.Unliked, fmt.Errorf("toggle like: %w", err)
	}
	return result, nil
}

// ListWithUsers returns the likes selected by sel together with the liking users' profiles.
// A single post only yields likes whose user still exists; a post set keeps every
// like and marks missing users with an invalid profile.
func (r *LikeRepository) ListWithUsers(ctx context.Context, sel like.Selector) ([]like.Record, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	var (
		query string
		arg   any
	)
	switch sel.Kind() {
	case like.KindSinglePost:
		query = `SELECT l.post_id, l.user_id, ` + createdAtColumn + `,
	u.username, u.avatar, u.usergroup, u.displaygroup, TRUE
FROM post_likes l
INNER JOIN users u ON u.uid = l.user_id
WHERE l.post_id = $1
ORDER BY l.created_at, l.user_id`
		arg = sel.IDs()[0]
	case like.KindPostSet:
		query = `SELECT l.post_id, l.user_id, ` + createdAtColumn + `,
	COALESCE(u.username, ''), COALESCE(u.avatar, ''),
	COALESCE(u.usergroup, 0), COALESCE(u.displaygroup, 0), u.uid IS NOT NULL
FROM post_likes l
LEFT JOIN users u ON u.uid = l.user_id
WHERE l.post_id = ANY($1)
ORDER BY l.post_id, l.created_at, l.user_id`
		arg = sel.IDs()
	default:
		return nil, fmt.Errorf("%w: unknown selector kind %d", like.ErrInvalidID, sel.Kind())
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	var records []like.Record
	for rows.Next() {
		var (
			rec       like.Record
			createdAt string
		)
		if err := rows.Scan(
			&rec.PostID,
			&rec.UserID,
			&createdAt,
			&rec.Username,
			&rec.Avatar,
			&rec.UserGroup,
			&rec.DisplayGroup,
			&rec.Valid,
		); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		if rec.CreatedAt, err = apptime.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}
	return records, nil
}

// CountByPost returns the number of likes stored for a post.
func (r *LikeRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

func deleteLike(ctx context.Context, q querier, postID, userID int64) (int64, error) {
	tag, err := q.Exec(ctx, deleteLikeQuery, postID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete like: %w", err)
	}
	return tag.RowsAffected(), nil
}
