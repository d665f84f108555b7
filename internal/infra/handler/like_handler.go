package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domainLike "simplelikes/internal/domain/like"
	"simplelikes/internal/pkg/apptime"
	"simplelikes/internal/platform/server"
	usecaseLike "simplelikes/internal/usecase/like"
)

// maxBulkPosts caps the post_ids of one bulk request, roughly a thread page.
const maxBulkPosts = 100

var (
	errServiceUnavailable = errors.New("service unavailable")
	errLoginRequired      = errors.New("login required")
	errMissingPostIDs     = errors.New("post_ids is required")
)

// LikeToggler flips a viewer's like on a post.
type LikeToggler interface {
	Toggle(ctx context.Context, postID, viewerID int64) (domainLike.ToggleResult, error)
}

// LikeSummarizer renders like summaries.
type LikeSummarizer interface {
	SummarizePost(ctx context.Context, postID, viewerID int64) (usecaseLike.Summary, error)
	SummarizePosts(ctx context.Context, postIDs []int64, viewerID int64) ([]usecaseLike.Summary, error)
}

// ProfileURLer builds the profile address of a member.
type ProfileURLer interface {
	URL(userID int64) string
}

// LikeHandler exposes the like endpoints.
type LikeHandler struct {
	toggler           LikeToggler
	summaries         LikeSummarizer
	profiles          ProfileURLer
	toggleMiddlewares []func(http.Handler) http.Handler
	logger            *slog.Logger
}

// LikeHandlerOption customizes a LikeHandler.
type LikeHandlerOption func(*LikeHandler)

// WithProfileURLs adds profile_url to every liker in responses.
func WithProfileURLs(p ProfileURLer) LikeHandlerOption {
	return func(h *LikeHandler) { h.profiles = p }
}

// WithToggleMiddlewares wraps only the toggle route, e.g. with a rate limiter.
func WithToggleMiddlewares(mws ...func(http.Handler) http.Handler) LikeHandlerOption {
	return func(h *LikeHandler) {
		for _, mw := range mws {
			if mw != nil {
				h.toggleMiddlewares = append(h.toggleMiddlewares, mw)
			}
		}
	}
}

// NewLikeHandler builds a LikeHandler.
func NewLikeHandler(toggler LikeToggler, summaries LikeSummarizer, logger *slog.Logger, opts ...LikeHandlerOption) *LikeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &LikeHandler{
		toggler:   toggler,
		summaries: summaries,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires like endpoints.
func (h *LikeHandler) RegisterRoutes(r chiRouter) {
	r.Method(http.MethodPost, "/posts/{postID}/like", chi.Chain(h.toggleMiddlewares...).HandlerFunc(h.handleToggle))
	r.Get("/posts/{postID}/likes", h.handlePostLikes)
	r.Get("/likes", h.handleBulkLikes)
}

func (h *LikeHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if h.toggler == nil || h.summaries == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	postID, err := pathPostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	viewerID := viewerFromRequest(r)
	if viewerID == 0 {
		writeError(w, http.StatusUnauthorized, errLoginRequired)
		return
	}

	result, err := h.toggler.Toggle(r.Context(), postID, viewerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	summary, err := h.summaries.SummarizePost(r.Context(), postID, viewerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{
		PostID:  postID,
		Result:  result.String(),
		Code:    int(result),
		Liked:   result == domainLike.Liked,
		Count:   summary.Count,
		Summary: summary.Text,
	})
}

func (h *LikeHandler) handlePostLikes(w http.ResponseWriter, r *http.Request) {
	if h.summaries == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	postID, err := pathPostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := h.summaries.SummarizePost(r.Context(), postID, viewerFromRequest(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.buildSummaryResponse(summary))
}

func (h *LikeHandler) handleBulkLikes(w http.ResponseWriter, r *http.Request) {
	if h.summaries == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	postIDs, err := parsePostIDs(r.URL.Query().Get("post_ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summaries, err := h.summaries.SummarizePosts(r.Context(), postIDs, viewerFromRequest(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := bulkLikesResponse{Posts: make([]summaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		resp.Posts = append(resp.Posts, h.buildSummaryResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LikeHandler) buildSummaryResponse(s usecaseLike.Summary) summaryResponse {
	resp := summaryResponse{
		PostID:  s.PostID,
		Count:   s.Count,
		Likes:   make([]likerResponse, 0, len(s.Likes)),
		Summary: s.Text,
	}
	for _, rec := range s.Likes {
		item := likerResponse{
			UserID:       rec.UserID,
			Username:     rec.Username,
			Avatar:       rec.Avatar,
			UserGroup:    rec.UserGroup,
			DisplayGroup: rec.DisplayGroup,
			Deleted:      !rec.Valid,
			CreatedAt:    apptime.FormatTimestamp(rec.CreatedAt.In(apptime.Location())),
		}
		if h.profiles != nil && rec.Valid {
			item.ProfileURL = h.profiles.URL(rec.UserID)
		}
		resp.Likes = append(resp.Likes, item)
	}
	return resp
}

func (h *LikeHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domainLike.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.ErrorContext(r.Context(), "like request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// viewerFromRequest reads the member id set by the forum front end.
// Missing or malformed values mean a guest.
func viewerFromRequest(r *http.Request) int64 {
	raw := strings.TrimSpace(r.Header.Get(server.ViewerHeader))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func pathPostID(r *http.Request) (int64, error) {
	v, err := parseInt64("postID", chi.URLParam(r, "postID"), 1)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func parsePostIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errMissingPostIDs
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxBulkPosts {
		return nil, fmt.Errorf("post_ids must list at most %d posts", maxBulkPosts)
	}
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := parseInt64("post_ids", part, 1)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errMissingPostIDs
	}
	return ids, nil
}

type toggleResponse struct {
	PostID  int64  `json:"post_id"`
	Result  string `json:"result"`
	Code    int    `json:"code"`
	Liked   bool   `json:"liked"`
	Count   int    `json:"count"`
	Summary string `json:"summary"`
}

type likerResponse struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Avatar       string `json:"avatar"`
	UserGroup    int    `json:"usergroup"`
	DisplayGroup int    `json:"displaygroup"`
	ProfileURL   string `json:"profile_url,omitempty"`
	Deleted      bool   `json:"deleted,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type summaryResponse struct {
	PostID  int64           `json:"post_id"`
	Count   int             `json:"count"`
	Likes   []likerResponse `json:"likes"`
	Summary string          `json:"summary"`
}

type bulkLikesResponse struct {
	Posts []summaryResponse `json:"posts"`
}
