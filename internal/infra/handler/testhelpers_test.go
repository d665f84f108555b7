package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domainLike "simplelikes/internal/domain/like"
	"simplelikes/internal/platform/server"
	usecaseLike "simplelikes/internal/usecase/like"
)

const testBasePath = "/api/v1"

func apiPath(route string) string {
	return testBasePath + route
}

// testServer wraps httptest.Server for integration testing.
type testServer struct {
	*httptest.Server
}

// newTestServer creates a test HTTP server with the given handlers.
func newTestServer(cfg RouterConfig) *testServer {
	if cfg.APIBasePath == "" {
		cfg.APIBasePath = testBasePath
	}
	return &testServer{Server: httptest.NewServer(NewRouter(cfg))}
}

// do performs a request as viewer; viewer "" sends no header.
func (ts *testServer) do(t *testing.T, method, path, viewer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	require.NoError(t, err)
	if viewer != "" {
		req.Header.Set(server.ViewerHeader, viewer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// get performs a GET request to the test server.
func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodGet, path, "")
}

// decodeJSON decodes response body as JSON.
func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, dest), "body: %s", body)
}

// assertStatus checks HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("status = %d, want %d", resp.StatusCode, want)
	}
}

// assertContentType checks Content-Type header.
func assertContentType(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	got := resp.Header.Get("Content-Type")
	if got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

// mockHealthChecker is a mock implementation of health checker.
type mockHealthChecker struct {
	healthCheckFunc func(ctx context.Context) error
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.healthCheckFunc != nil {
		return m.healthCheckFunc(ctx)
	}
	return nil
}

// fakeLikes is an in-memory LikeToggler and LikeSummarizer.
type fakeLikes struct {
	mu        sync.Mutex
	liked     map[[2]int64]bool
	toggleErr error
	summErr   error

	lastPostIDs []int64
	lastViewer  int64
}

func newFakeLikes() *fakeLikes {
	return &fakeLikes{liked: map[[2]int64]bool{}}
}

func (f *fakeLikes) Toggle(ctx context.Context, postID, viewerID int64) (domainLike.ToggleResult, error) {
	if err := domainLike.ValidateIDs(postID, viewerID); err != nil {
		return domainLike.Unliked, err
	}
	if f.toggleErr != nil {
		return domainLike.Unliked, f.toggleErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{postID, viewerID}
	if f.liked[key] {
		delete(f.liked, key)
		return domainLike.Unliked, nil
	}
	f.liked[key] = true
	return domainLike.Liked, nil
}

func (f *fakeLikes) summary(postID, viewerID int64) usecaseLike.Summary {
	s := usecaseLike.Summary{PostID: postID, Likes: []domainLike.Record{}}
	var names []string
	for key := range f.liked {
		if key[0] != postID {
			continue
		}
		s.Likes = append(s.Likes, domainLike.Record{
			Like:    domainLike.Like{PostID: postID, UserID: key[1]},
			Profile: domainLike.Profile{Username: "user", Valid: true},
		})
		if key[1] == viewerID {
			names = append(names, "You")
		} else {
			names = append(names, "user")
		}
	}
	s.Count = len(s.Likes)
	if len(names) > 0 {
		s.Text = strings.Join(names, ", ") + " like this."
	}
	return s
}

func (f *fakeLikes) SummarizePost(ctx context.Context, postID, viewerID int64) (usecaseLike.Summary, error) {
	if f.summErr != nil {
		return usecaseLike.Summary{}, f.summErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastViewer = viewerID
	return f.summary(postID, viewerID), nil
}

func (f *fakeLikes) SummarizePosts(ctx context.Context, postIDs []int64, viewerID int64) ([]usecaseLike.Summary, error) {
	if f.summErr != nil {
		return nil, f.summErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPostIDs = postIDs
	f.lastViewer = viewerID
	out := make([]usecaseLike.Summary, 0, len(postIDs))
	for _, id := range postIDs {
		out = append(out, f.summary(id, viewerID))
	}
	return out, nil
}

var errBoom = errors.New("boom")
