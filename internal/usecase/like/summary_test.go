package like

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainLike "simplelikes/internal/domain/like"
)

func newTestSummarizer(repo *memRepo, display DisplayConfigSource) *Summarizer {
	svc := NewService(repo, nil, nil, nil)
	return NewSummarizer(svc, newTestFormatter(1), display, nil)
}

func TestSummarizer_SummarizePost(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(5, "Dan")
	repo.addLike(1, 5)
	repo.addLike(1, 42) // deleted user

	s := newTestSummarizer(repo, staticDisplay{cfg: domainLike.DisplayConfig{MaxNamesShown: 5}})

	summary, err := s.SummarizePost(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.PostID)
	assert.Equal(t, 1, summary.Count)
	require.Len(t, summary.Likes, 1)
	assert.Equal(t, "Dan", summary.Likes[0].Username)
	assert.Equal(t, "like_normal([Dan#5];likes)", summary.Text)
}

func TestSummarizer_SummarizePosts(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(2, "Alice")
	repo.addUser(3, "Bob")
	repo.addLike(1, 3)
	repo.addLike(1, 2)
	repo.addLike(2, 42) // deleted user is kept for bulk loads

	s := newTestSummarizer(repo, staticDisplay{cfg: domainLike.DisplayConfig{MaxNamesShown: 3}})

	summaries, err := s.SummarizePosts(context.Background(), []int64{3, 1, 2, 1}, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, int64(3), summaries[0].PostID)
	assert.Zero(t, summaries[0].Count)
	assert.Empty(t, summaries[0].Text)
	assert.NotNil(t, summaries[0].Likes)

	assert.Equal(t, int64(1), summaries[1].PostID)
	assert.Equal(t, 2, summaries[1].Count)
	assert.Equal(t, "like_normal(You and [Bob#3];like)", summaries[1].Text)
	// ordered by created_at
	assert.Equal(t, int64(2), summaries[1].Likes[0].UserID)
	assert.Equal(t, int64(3), summaries[1].Likes[1].UserID)

	assert.Equal(t, int64(2), summaries[2].PostID)
	assert.Equal(t, 1, summaries[2].Count)
	assert.False(t, summaries[2].Likes[0].Valid)
	assert.Equal(t, "like_normal([#42];likes)", summaries[2].Text)
}

func TestSummarizer_ConfigErrorDisablesText(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(5, "Dan")
	repo.addLike(1, 5)

	s := newTestSummarizer(repo, staticDisplay{err: fmt.Errorf("%w: not a number", domainLike.ErrConfig)})

	summary, err := s.SummarizePost(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.Empty(t, summary.Text)
}

func TestSummarizer_NilDisplaySource(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(5, "Dan")
	repo.addLike(1, 5)

	s := newTestSummarizer(repo, nil)

	summary, err := s.SummarizePost(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Text)
}

func TestSummarizer_StorageError(t *testing.T) {
	repo := newMemRepo()
	repo.listErr = errors.New("db down")

	s := newTestSummarizer(repo, staticDisplay{cfg: domainLike.DisplayConfig{MaxNamesShown: 3}})

	_, err := s.SummarizePost(context.Background(), 1, 0)
	require.ErrorIs(t, err, domainLike.ErrStorage)

	_, err = s.SummarizePosts(context.Background(), []int64{1}, 0)
	require.ErrorIs(t, err, domainLike.ErrStorage)
}
