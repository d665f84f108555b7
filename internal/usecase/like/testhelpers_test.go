package like

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	domainLike "simplelikes/internal/domain/like"
)

type pairKey struct {
	postID int64
	userID int64
}

// memRepo is an in-memory repository.LikeRepository.
type memRepo struct {
	mu       sync.Mutex
	likes    map[pairKey]domainLike.Like
	profiles map[int64]domainLike.Profile

	toggleErr error
	listErr   error
	calls     int
}

func newMemRepo() *memRepo {
	return &memRepo{
		likes:    map[pairKey]domainLike.Like{},
		profiles: map[int64]domainLike.Profile{},
	}
}

func (m *memRepo) addUser(id int64, name string) {
	m.profiles[id] = domainLike.Profile{Username: name, Valid: true}
}

func (m *memRepo) addLike(postID, userID int64) {
	m.likes[pairKey{postID, userID}] = domainLike.Like{PostID: postID, UserID: userID, CreatedAt: time.Unix(userID, 0)}
}

func (m *memRepo) Find(ctx context.Context, postID, userID int64) (*domainLike.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.likes[pairKey{postID, userID}]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memRepo) Delete(ctx context.Context, postID, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{postID, userID}
	if _, ok := m.likes[key]; !ok {
		return 0, nil
	}
	delete(m.likes, key)
	return 1, nil
}

func (m *memRepo) Insert(ctx context.Context, l domainLike.Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{l.PostID, l.UserID}
	if _, ok := m.likes[key]; ok {
		return fmt.Errorf("duplicate like %d/%d", l.PostID, l.UserID)
	}
	m.likes[key] = l
	return nil
}

func (m *memRepo) Toggle(ctx context.Context, postID, userID int64, createdAt time.Time) (domainLike.ToggleResult, error) {
	m.calls++
	if m.toggleErr != nil {
		return domainLike.Unliked, m.toggleErr
	}
	n, err := m.Delete(ctx, postID, userID)
	if err != nil {
		return domainLike.Unliked, err
	}
	if n > 0 {
		return domainLike.Unliked, nil
	}
	return domainLike.Liked, m.Insert(ctx, domainLike.Like{PostID: postID, UserID: userID, CreatedAt: createdAt})
}

func (m *memRepo) ListWithUsers(ctx context.Context, sel domainLike.Selector) ([]domainLike.Record, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[int64]bool{}
	for _, id := range sel.IDs() {
		wanted[id] = true
	}
	var out []domainLike.Record
	for key, l := range m.likes {
		if !wanted[key.postID] {
			continue
		}
		profile, ok := m.profiles[key.userID]
		if !ok && sel.Kind() == domainLike.KindSinglePost {
			continue
		}
		out = append(out, domainLike.Record{Like: l, Profile: profile})
	}
	return out, nil
}

func (m *memRepo) count(postID, userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.likes[pairKey{postID, userID}]; ok {
		return 1
	}
	return 0
}

type recorderSpy struct {
	results []domainLike.ToggleResult
}

func (r *recorderSpy) ObserveToggle(result domainLike.ToggleResult) {
	r.results = append(r.results, result)
}

var fakeStrings = map[string]string{
	KeyYou:          "You",
	KeyLikeSingular: "like",
	KeyLikePlural:   "likes",
	KeyComma:        ", ",
	KeyAnd:          "and",
}

// fakeTranslator renders templates as key(arg;arg;...).
type fakeTranslator struct{}

func (fakeTranslator) Get(key string) string { return fakeStrings[key] }

func (fakeTranslator) Sprintf(key string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return key + "(" + strings.Join(parts, ";") + ")"
}

type fakeLinks struct{}

func (fakeLinks) ProfileLink(escapedUsername string, userID int64) string {
	return fmt.Sprintf("[%s#%d]", escapedUsername, userID)
}

type fakeNumbers struct{}

func (fakeNumbers) FormatNumber(n int) string { return fmt.Sprintf("n%d", n) }

type staticDisplay struct {
	cfg domainLike.DisplayConfig
	err error
}

func (s staticDisplay) DisplayConfig() (domainLike.DisplayConfig, error) { return s.cfg, s.err }

func byPostOf(postID int64, users map[int64]string) domainLike.ByPost {
	out := domainLike.ByPost{}
	for id, name := range users {
		out.Add(domainLike.Record{
			Like:    domainLike.Like{PostID: postID, UserID: id},
			Profile: domainLike.Profile{Username: name, Valid: true},
		})
	}
	return out
}
