package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:       srv.URL,
		Token:         "ghp_test",
		PerPage:       2,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	})
}

func TestClient_SendsHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "token ghp_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"login":"octocat","id":1}`)
	})

	u, err := c.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", u.Login)
	assert.NoError(t, c.TestConnection(context.Background()))
}

func TestClient_Unauthorized(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	})

	err := c.TestConnection(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Bad credentials")
	assert.Equal(t, int32(1), calls.Load(), "401 is not retried")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"resources":{"core":{"limit":5000,"remaining":4999,"reset":1700000000,"used":1}}}`)
	})

	rl, err := c.RateLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, 4999, rl.Remaining)
	assert.Equal(t, int64(1700000000), rl.ResetAt().Unix())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ListRepositoriesPaginates(t *testing.T) {
	repos := []Repository{
		{Name: "a", FullName: "octo/a", CloneURL: "https://github.com/octo/a.git"},
		{Name: "b", FullName: "octo/b", CloneURL: "https://github.com/octo/b.git"},
		{Name: "c", FullName: "octo/c", CloneURL: "https://github.com/octo/c.git"},
	}
	var (
		mu    sync.Mutex
		pages []int
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/repos", r.URL.Path)
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("direction"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		start := (page - 1) * 2
		end := min(start+2, len(repos))
		if start >= len(repos) {
			start, end = 0, 0
		}
		require.NoError(t, json.NewEncoder(w).Encode(repos[start:end]))
	})

	got, err := c.ListRepositories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "octo/c", got[2].FullName)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, pages, "short page ends paging")
}

func TestClient_ListRepositoriesEmptyPageStops(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `[]`)
	})

	got, err := c.ListRepositories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RepositoryAndBranches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octo/a":
			fmt.Fprint(w, `{"name":"a","full_name":"octo/a","default_branch":"main","private":true}`)
		case "/repos/octo/a/branches":
			fmt.Fprint(w, `[{"name":"main","protected":true,"commit":{"sha":"abc"}}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	repo, err := c.Repository(context.Background(), "octo/a")
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch)
	assert.True(t, repo.Private)

	branches, err := c.Branches(context.Background(), "octo/a")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "abc", branches[0].Commit.SHA)

	_, err = c.Repository(context.Background(), "octo/missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
