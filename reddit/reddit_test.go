package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingFixture = `{
	"kind": "Listing",
	"data": {
		"after": "t3_bbb222",
		"children": [
			{
				"kind": "t3",
				"data": {
					"id": "aaa111",
					"name": "t3_aaa111",
					"title": "Moving to Bangalore for a tech job",
					"selftext": "Any advice on neighborhoods near Whitefield?",
					"author": "curious_dev",
					"subreddit": "golang",
					"url": "https://www.reddit.com/r/golang/comments/aaa111/",
					"score": 12,
					"num_comments": 4,
					"created_utc": 1735000000.0,
					"is_self": true,
					"locked": false
				}
			},
			{
				"kind": "t3",
				"data": {
					"id": "bbb222",
					"name": "t3_bbb222",
					"title": "Interesting article",
					"selftext": "ignored for link posts",
					"author": "",
					"subreddit": "golang",
					"url": "https://example.com/article",
					"score": -2,
					"num_comments": 0,
					"created_utc": 1735000100.0,
					"is_self": false,
					"locked": true
				}
			}
		]
	}
}`

type redditHandler struct {
	tokenRequests atomic.Int64
}

func (h *redditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/access_token":
		h.tokenRequests.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "missing user agent", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("grant_type") != "password" {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostFormValue("password") == "hunter2-wrong" {
			fmt.Fprintln(w, `{"error": "invalid_grant"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok1",
			"token_type":   "bearer",
			"expires_in":   3600,
			"scope":        "*",
		})
	case "/api/v1/me":
		if !h.authorized(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"name": "mynabot"}`)
	case "/r/golang/new":
		if !h.authorized(w, r) {
			return
		}
		if r.URL.Query().Get("limit") == "" {
			http.Error(w, "missing limit", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, listingFixture)
	case "/api/comment":
		if !h.authorized(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		h.serveComment(w, r.PostFormValue("thing_id"), r.PostFormValue("text"))
	default:
		http.NotFound(w, r)
	}
}

func (h *redditHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer tok1" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (h *redditHandler) serveComment(w http.ResponseWriter, thingID, text string) {
	if text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}
	respond := func(body string) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, body)
	}
	switch thingID {
	case "t3_ok":
		respond(`{"json": {"errors": [], "data": {"things": [{"kind": "t1", "data": {"id": "cmt123"}}]}}}`)
	case "t3_locked":
		respond(`{"json": {"errors": [["THREAD_LOCKED", "Comments are locked", "parent"]]}}`)
	case "t3_gone":
		respond(`{"json": {"errors": [["DELETED_LINK", "that link has been deleted", "parent"]]}}`)
	case "t3_slow":
		respond(`{"json": {"errors": [["RATELIMIT", "you are doing that too much. try again in 9 minutes.", "ratelimit"]]}}`)
	case "t3_throttle":
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	default:
		http.Error(w, "Not Found", http.StatusNotFound)
	}
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	c := NewClient(ClientConfig{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		Username:        "mynabot",
		Password:        "hunter2",
		AuthHost:        srv.URL,
		APIHost:         srv.URL,
		RequestInterval: time.Millisecond,
	})
	c.Client = srv.Client()
	return c
}

func TestFetchNewPosts(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	handler := &redditHandler{}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	c := testClient(t, srv)

	posts, err := c.FetchNewPosts(ctx, "golang", 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Equal("aaa111", first.ID)
	assert.Equal("t3_aaa111", first.Fullname())
	assert.Equal("Moving to Bangalore for a tech job", first.Title)
	assert.Equal("Any advice on neighborhoods near Whitefield?", first.Body)
	assert.Equal("curious_dev", first.Author)
	assert.Equal(12, first.Score)
	assert.Equal(time.Unix(1735000000, 0).UTC(), first.CreatedAt)
	assert.False(first.Unavailable())

	// link post: no body, missing author maps to [deleted], locked
	second := posts[1]
	assert.Equal("", second.Body)
	assert.Equal("[deleted]", second.Author)
	assert.True(second.Locked)
	assert.True(second.Unavailable())

	// second call reuses the cached token
	_, err = c.FetchNewPosts(ctx, "golang", 10)
	require.NoError(t, err)
	assert.Equal(int64(1), handler.tokenRequests.Load())
}

func TestAuthFailure(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(&redditHandler{})
	defer srv.Close()

	c := testClient(t, srv)
	c.password = "hunter2-wrong"

	_, err := c.FetchNewPosts(context.Background(), "golang", 10)
	require.Error(t, err)
	assert.Contains(err.Error(), "invalid_grant")
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(&redditHandler{})
	defer srv.Close()

	name, err := testClient(t, srv).Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mynabot", name)
}

func TestSubmitReply(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(&redditHandler{})
	defer srv.Close()
	c := testClient(t, srv)

	commentID, err := c.SubmitReply(ctx, "t3_ok", "happy to help!")
	require.NoError(t, err)
	assert.Equal("cmt123", commentID)

	fixtures := []struct {
		thingID  string
		reason   string
		terminal bool
	}{
		{thingID: "t3_locked", reason: SubmitThreadLocked, terminal: true},
		{thingID: "t3_gone", reason: SubmitPostRemoved, terminal: true},
		{thingID: "t3_slow", reason: SubmitRateLimited, terminal: false},
		{thingID: "t3_throttle", reason: SubmitRateLimited, terminal: false},
	}
	for _, fix := range fixtures {
		_, err := c.SubmitReply(ctx, fix.thingID, "happy to help!")
		require.Error(t, err, fix.thingID)

		var submitErr *SubmitError
		require.ErrorAs(t, err, &submitErr, fix.thingID)
		assert.Equal(fix.reason, submitErr.Reason, fix.thingID)
		assert.Equal(fix.terminal, submitErr.Terminal(), fix.thingID)
	}
}

func TestPostHelpers(t *testing.T) {
	assert := assert.New(t)

	post := &Post{ID: "abc", Title: "hello", Author: "someone"}
	assert.Equal("t3_abc", post.Fullname())
	assert.False(post.Deleted())

	post.Author = "[deleted]"
	assert.True(post.Deleted())
	assert.True(post.Unavailable())

	removed := &Post{ID: "def", Name: "t3_def", Title: "gone", Author: "someone", Removed: true}
	assert.Equal("t3_def", removed.Fullname())
	assert.True(removed.Deleted())
}
