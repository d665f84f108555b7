package like

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainLike "simplelikes/internal/domain/like"
	"simplelikes/internal/domain/repository"
	"simplelikes/internal/pkg/apptime"
)

// ToggleRecorder observes toggle outcomes.
type ToggleRecorder interface {
	ObserveToggle(result domainLike.ToggleResult)
}

// Service orchestrates like toggling and retrieval.
type Service struct {
	repo     repository.LikeRepository
	clock    apptime.Clock
	recorder ToggleRecorder
	logger   *slog.Logger
}

// NewService builds a like service. clock defaults to the system clock;
// recorder and logger may be nil.
func NewService(repo repository.LikeRepository, clock apptime.Clock, recorder ToggleRecorder, logger *slog.Logger) *Service {
	if clock == nil {
		clock = apptime.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		clock:    clock,
		recorder: recorder,
		logger:   logger,
	}
}

// Toggle likes the post for the viewer, or removes the existing like.
func (s *Service) Toggle(ctx context.Context, postID, viewerID int64) (domainLike.ToggleResult, error) {
	if err := domainLike.ValidateIDs(postID, viewerID); err != nil {
		return domainLike.Unliked, err
	}

	now, err := s.clock.Now()
	if err != nil {
		return domainLike.Unliked, fmt.Errorf("%w: %w", domainLike.ErrClock, err)
	}

	result, err := s.repo.Toggle(ctx, postID, viewerID, now)
	if err != nil {
		if errors.Is(err, domainLike.ErrStorage) {
			return domainLike.Unliked, err
		}
		return domainLike.Unliked, fmt.Errorf("%w: toggle like: %w", domainLike.ErrStorage, err)
	}

	s.logger.Debug("like toggled",
		"post_id", postID,
		"user_id", viewerID,
		"result", result.String(),
	)
	if s.recorder != nil {
		s.recorder.ObserveToggle(result)
	}
	return result, nil
}

// Fetch loads likes with user profiles for the selected posts.
// No matches yield an empty map.
func (s *Service) Fetch(ctx context.Context, sel domainLike.Selector) (domainLike.ByPost, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	result := domainLike.ByPost{}
	if len(sel.IDs()) == 0 {
		return result, nil
	}

	records, err := s.repo.ListWithUsers(ctx, sel)
	if err != nil {
		if errors.Is(err, domainLike.ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: list likes: %w", domainLike.ErrStorage, err)
	}
	for _, rec := range records {
		result.Add(rec)
	}
	return result, nil
}
