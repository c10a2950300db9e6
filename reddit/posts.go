package reddit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Post is one submission as the rest of the bot sees it. Body is the
// selftext for text posts and empty for link posts.
type Post struct {
	ID          string
	Name        string // fullname, "t3_" + ID
	Title       string
	Body        string
	Author      string
	Subreddit   string
	URL         string
	Score       int
	NumComments int
	CreatedAt   time.Time
	IsSelf      bool
	Locked      bool
	Removed     bool
}

// Fullname returns the thing id used by write endpoints.
func (p *Post) Fullname() string {
	if p.Name != "" {
		return p.Name
	}
	return "t3_" + p.ID
}

// Deleted reports whether the post or its author is gone.
func (p *Post) Deleted() bool {
	return p.Removed || p.Title == "" || p.Author == "" || p.Author == "[deleted]"
}

// Unavailable reports whether replying to the post can no longer work.
func (p *Post) Unavailable() bool {
	return p.Deleted() || p.Locked
}

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string   `json:"kind"`
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Title             string  `json:"title"`
	Selftext          string  `json:"selftext"`
	Author            string  `json:"author"`
	Subreddit         string  `json:"subreddit"`
	URL               string  `json:"url"`
	Score             int     `json:"score"`
	NumComments       int     `json:"num_comments"`
	CreatedUTC        float64 `json:"created_utc"`
	IsSelf            bool    `json:"is_self"`
	Locked            bool    `json:"locked"`
	RemovedByCategory string  `json:"removed_by_category"`
}

func (d *postData) post() *Post {
	body := ""
	if d.IsSelf {
		body = d.Selftext
	}
	author := d.Author
	if author == "" {
		author = "[deleted]"
	}
	return &Post{
		ID:          d.ID,
		Name:        d.Name,
		Title:       d.Title,
		Body:        body,
		Author:      author,
		Subreddit:   d.Subreddit,
		URL:         d.URL,
		Score:       d.Score,
		NumComments: d.NumComments,
		CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		IsSelf:      d.IsSelf,
		Locked:      d.Locked,
		Removed:     d.RemovedByCategory != "",
	}
}

// FetchNewPosts returns the newest submissions in a subreddit, newest first.
// Limit is capped at 100, the most a single listing request returns.
func (c *Client) FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	var listing listingEnvelope
	if err := c.apiGet(ctx, "/r/"+subreddit+"/new", params, &listing); err != nil {
		return nil, fmt.Errorf("fetching new posts from r/%s: %w", subreddit, err)
	}

	posts := make([]*Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data.post())
	}
	fetchedPostCount.WithLabelValues(subreddit).Add(float64(len(posts)))
	return posts, nil
}

// FetchPost looks up a single post by fullname ("t3_..."). Returns nil when
// the post does not exist.
func (c *Client) FetchPost(ctx context.Context, fullname string) (*Post, error) {
	params := url.Values{}
	params.Set("id", fullname)
	params.Set("raw_json", "1")

	var listing listingEnvelope
	if err := c.apiGet(ctx, "/api/info", params, &listing); err != nil {
		return nil, fmt.Errorf("fetching post %s: %w", fullname, err)
	}
	if len(listing.Data.Children) == 0 {
		return nil, nil
	}
	return listing.Data.Children[0].Data.post(), nil
}
