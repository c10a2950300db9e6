package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-social/myna/autoreply/keyword"
	"github.com/perch-social/myna/reddit"
)

func TestSlackNotifier(t *testing.T) {
	assert := assert.New(t)

	var got SlackWebhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	n := &SlackNotifier{SlackWebhookURL: srv.URL, Client: srv.Client()}
	post := &reddit.Post{ID: "p9", Subreddit: "india", URL: "https://www.reddit.com/r/india/comments/p9/"}
	out := &Outcome{
		Replied:  true,
		Verdict:  keyword.Verdict{Matched: true, Pattern: "mumbai", Category: "india_specific", Priority: 3},
		Provider: "openai",
	}

	require.NoError(t, n.SendReply(context.Background(), post, out))
	assert.Contains(got.Text, "r/india")
	assert.Contains(got.Text, "mumbai")
	assert.Contains(got.Text, "openai")
}

func TestSlackNotifierFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusNotFound)
	}))
	defer srv.Close()

	n := &SlackNotifier{SlackWebhookURL: srv.URL, Client: srv.Client()}
	err := n.SendReply(context.Background(), &reddit.Post{ID: "p9"}, &Outcome{})
	assert.Error(t, err)
}
