package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplelikes/internal/domain/like"
	"simplelikes/internal/pkg/apptime"
)

func TestLikeRepository_ToggleRoundTrip(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()

	ctx := context.Background()
	repo := NewLikeRepository(pool)
	createdAt := time.Date(2024, 5, 1, 12, 30, 45, 999, apptime.Location())

	result, err := repo.Toggle(ctx, 10, 3, createdAt)
	require.NoError(t, err)
	assert.Equal(t, like.Liked, result)
	assert.Equal(t, 1, countLikes(t, pool, 10, 3))

	found, err := repo.Find(ctx, 10, 3)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "2024-05-01 12:30:45", apptime.FormatTimestamp(found.CreatedAt))

	result, err = repo.Toggle(ctx, 10, 3, createdAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, like.Unliked, result)
	assert.Equal(t, 0, countLikes(t, pool, 10, 3))

	found, err = repo.Find(ctx, 10, 3)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestLikeRepository_ConcurrentTogglesKeepPairUnique(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()

	ctx := context.Background()
	repo := NewLikeRepository(pool)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Toggle(ctx, 1, 1, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, countLikes(t, pool, 1, 1), 1)
}

func TestLikeRepository_InsertDeleteFind(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()

	ctx := context.Background()
	repo := NewLikeRepository(pool)
	l, err := like.New(4, 2, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.Insert(ctx, l))
	require.Error(t, repo.Insert(ctx, l), "duplicate pair must be rejected")
	require.ErrorIs(t, repo.Insert(ctx, like.Like{PostID: 0, UserID: 2}), like.ErrInvalidID)

	count, err := repo.CountByPost(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	removed, err := repo.Delete(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = repo.Delete(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestLikeRepository_ListWithUsers(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()

	ctx := context.Background()
	repo := NewLikeRepository(pool)

	insertUser(t, pool, 2, "Alice")
	insertUser(t, pool, 3, "Bob")
	insertLike(t, pool, 1, 3, "2024-01-01 10:00:02")
	insertLike(t, pool, 1, 2, "2024-01-01 10:00:01")
	insertLike(t, pool, 1, 99, "2024-01-01 10:00:03") // user 99 was deleted
	insertLike(t, pool, 2, 2, "2024-01-02 08:00:00")
	insertLike(t, pool, 3, 3, "2024-01-03 08:00:00")

	t.Run("single post drops likes of missing users", func(t *testing.T) {
		records, err := repo.ListWithUsers(ctx, like.SinglePost(1))
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, int64(2), records[0].UserID)
		assert.Equal(t, "Alice", records[0].Username)
		assert.Equal(t, "avatars/2.png", records[0].Avatar)
		assert.True(t, records[0].Valid)
		assert.Equal(t, "2024-01-01 10:00:01", apptime.FormatTimestamp(records[0].CreatedAt))
		assert.Equal(t, int64(3), records[1].UserID)
	})

	t.Run("post set keeps likes of missing users", func(t *testing.T) {
		records, err := repo.ListWithUsers(ctx, like.PostSet(1, 2))
		require.NoError(t, err)
		require.Len(t, records, 4)

		var orphan *like.Record
		for i := range records {
			assert.Contains(t, []int64{1, 2}, records[i].PostID)
			if records[i].UserID == 99 {
				orphan = &records[i]
			}
		}
		require.NotNil(t, orphan)
		assert.False(t, orphan.Valid)
		assert.Empty(t, orphan.Username)
	})

	t.Run("post without likes", func(t *testing.T) {
		records, err := repo.ListWithUsers(ctx, like.SinglePost(404))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("invalid selector", func(t *testing.T) {
		_, err := repo.ListWithUsers(ctx, like.Selector{})
		require.ErrorIs(t, err, like.ErrInvalidID)
	})
}

func TestUserRepository_Upsert(t *testing.T) {
	pool, terminate := setupPostgres(t)
	defer terminate()

	ctx := context.Background()
	users := NewUserRepository(pool)
	likes := NewLikeRepository(pool)

	require.NoError(t, users.Upsert(ctx, 5, like.Profile{Username: "dan"}))
	require.NoError(t, users.Upsert(ctx, 5, like.Profile{Username: "Dan", Avatar: "a.png", UserGroup: 2, DisplayGroup: 4}))
	require.ErrorIs(t, users.Upsert(ctx, 0, like.Profile{Username: "nobody"}), like.ErrInvalidID)

	insertLike(t, pool, 7, 5, "2024-02-02 02:02:02")
	records, err := likes.ListWithUsers(ctx, like.SinglePost(7))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, like.Profile{Username: "Dan", Avatar: "a.png", UserGroup: 2, DisplayGroup: 4, Valid: true}, records[0].Profile)

	require.NoError(t, users.Delete(ctx, 5))
	records, err = likes.ListWithUsers(ctx, like.SinglePost(7))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, countLikes(t, pool, 7, 5))
}

func TestSplitStatements(t *testing.T) {
	sql := `-- comment
CREATE TABLE a (
    id INT
);

CREATE INDEX idx ON a (id);`
	assert.Equal(t, []string{"CREATE TABLE a (\nid INT\n)", "CREATE INDEX idx ON a (id)"}, splitStatements(sql))
}
