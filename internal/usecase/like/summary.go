package like

import (
	"context"
	"log/slog"
	"sort"

	domainLike "simplelikes/internal/domain/like"
)

// DisplayConfigSource reads the installation's display setting.
type DisplayConfigSource interface {
	DisplayConfig() (domainLike.DisplayConfig, error)
}

// Summary is the rendered like block of one post.
type Summary struct {
	PostID int64               `json:"post_id"`
	Count  int                 `json:"count"`
	Likes  []domainLike.Record `json:"likes"`
	Text   string              `json:"summary"`
}

// Summarizer loads likes and renders their summaries.
type Summarizer struct {
	service   *Service
	formatter *Formatter
	display   DisplayConfigSource
	logger    *slog.Logger
}

// NewSummarizer wires a Summarizer.
func NewSummarizer(service *Service, formatter *Formatter, display DisplayConfigSource, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		service:   service,
		formatter: formatter,
		display:   display,
		logger:    logger,
	}
}

// SummarizePost renders one post. Likes of deleted users are left out.
func (s *Summarizer) SummarizePost(ctx context.Context, postID, viewerID int64) (Summary, error) {
	byPost, err := s.service.Fetch(ctx, domainLike.SinglePost(postID))
	if err != nil {
		return Summary{}, err
	}
	return s.build(byPost, postID, viewerID, s.displayConfig()), nil
}

// SummarizePosts renders every requested post, including posts without likes.
func (s *Summarizer) SummarizePosts(ctx context.Context, postIDs []int64, viewerID int64) ([]Summary, error) {
	sel := domainLike.PostSet(postIDs...)
	byPost, err := s.service.Fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	cfg := s.displayConfig()
	ids := sel.IDs()
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.build(byPost, id, viewerID, cfg))
	}
	return out, nil
}

func (s *Summarizer) build(byPost domainLike.ByPost, postID, viewerID int64, cfg domainLike.DisplayConfig) Summary {
	likes := byPost[postID]
	records := make([]domainLike.Record, 0, len(likes))
	for _, rec := range likes {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].UserID < records[j].UserID
	})
	return Summary{
		PostID: postID,
		Count:  len(records),
		Likes:  records,
		Text:   s.formatter.Format(byPost, domainLike.Post{ID: postID}, viewerID, cfg),
	}
}

// displayConfig degrades to zero names shown when the setting is unusable.
func (s *Summarizer) displayConfig() domainLike.DisplayConfig {
	if s.display == nil {
		return domainLike.DisplayConfig{}
	}
	cfg, err := s.display.DisplayConfig()
	if err != nil {
		s.logger.Warn("like display setting unusable, summaries disabled", "error", err)
		return domainLike.DisplayConfig{}
	}
	return cfg
}
