package like

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrInvalidID signals a non-positive post or user identifier.
	ErrInvalidID = errors.New("invalid id")
	// ErrClock is returned when the current time cannot be obtained.
	ErrClock = errors.New("clock unavailable")
	// ErrStorage wraps any read or write failure of the like store.
	ErrStorage = errors.New("like storage failure")
	// ErrConfig signals a malformed or missing display setting.
	ErrConfig = errors.New("invalid display config")
)

// ToggleResult is the outcome of a toggle.
type ToggleResult int

const (
	Unliked ToggleResult = 0
	Liked   ToggleResult = 1
)

func (r ToggleResult) String() string {
	if r == Liked {
		return "liked"
	}
	return "unliked"
}

// Like is a recorded approval of a post by a user.
// The (PostID, UserID) pair identifies it.
type Like struct {
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// New validates ids and builds a Like.
func New(postID, userID int64, createdAt time.Time) (Like, error) {
	if err := ValidateIDs(postID, userID); err != nil {
		return Like{}, err
	}
	return Like{PostID: postID, UserID: userID, CreatedAt: createdAt}, nil
}

// ValidateIDs checks that both ids are positive.
func ValidateIDs(postID, userID int64) error {
	if postID <= 0 {
		return fmt.Errorf("%w: post id must be positive, got %d", ErrInvalidID, postID)
	}
	if userID <= 0 {
		return fmt.Errorf("%w: user id must be positive, got %d", ErrInvalidID, userID)
	}
	return nil
}

// Profile holds the public fields of the liking user.
// Valid is false when the user row was missing at read time.
type Profile struct {
	Username     string `json:"username"`
	Avatar       string `json:"avatar"`
	UserGroup    int    `json:"usergroup"`
	DisplayGroup int    `json:"displaygroup"`
	Valid        bool   `json:"-"`
}

// Record is a Like joined with its user's profile.
type Record struct {
	Like
	Profile
}

// PostLikes maps user id to record for one post.
type PostLikes map[int64]Record

// ByPost maps post id to the likes of that post.
type ByPost map[int64]PostLikes

// Add stores rec under its post and user; later calls win.
func (b ByPost) Add(rec Record) {
	users, ok := b[rec.PostID]
	if !ok {
		users = PostLikes{}
		b[rec.PostID] = users
	}
	users[rec.UserID] = rec
}

// Clone returns a shallow copy of the likes of one post.
// A missing post yields an empty, non-nil map.
func (b ByPost) Clone(postID int64) PostLikes {
	src := b[postID]
	out := make(PostLikes, len(src))
	for id, rec := range src {
		out[id] = rec
	}
	return out
}

// SortedUserIDs returns the user ids in ascending order.
func (p PostLikes) SortedUserIDs() []int64 {
	ids := make([]int64, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Post is the subset of a forum post needed to render its like summary.
type Post struct {
	ID int64
}

// DisplayConfig bounds how many names are shown before collapsing into a count.
type DisplayConfig struct {
	MaxNamesShown int
}
