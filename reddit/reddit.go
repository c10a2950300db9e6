// Package reddit is a minimal Reddit API client for a script app: OAuth2
// password-grant auth, new-post listings, and comment submission. Request
// pacing follows what Reddit expects from bots (a couple seconds between
// requests, 60 requests per minute hard cap).
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/RussellLuo/slidingwindow"
	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	"github.com/perch-social/myna/util"
)

const (
	defaultAuthHost = "https://www.reddit.com"
	defaultAPIHost  = "https://oauth.reddit.com"

	defaultRequestInterval = 2 * time.Second
	requestsPerMinute      = 60
)

type ClientConfig struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// UserAgent defaults to reddit's recommended script-app form
	UserAgent string

	// AuthHost and APIHost exist for tests; leave empty in production
	AuthHost string
	APIHost  string

	RequestInterval time.Duration
}

type Client struct {
	// Client is an HTTP client to use. If not set, defaults to util.RobustHTTPClient().
	Client    *http.Client
	UserAgent string

	clientID     string
	clientSecret string
	username     string
	password     string
	authHost     string
	apiHost      string

	pace   *rate.Limiter
	window *slidingwindow.Limiter

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.AuthHost == "" {
		cfg.AuthHost = defaultAuthHost
	}
	if cfg.APIHost == "" {
		cfg.APIHost = defaultAPIHost
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = defaultRequestInterval
	}
	return &Client{
		UserAgent:    cfg.UserAgent,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		username:     cfg.Username,
		password:     cfg.Password,
		authHost:     cfg.AuthHost,
		apiHost:      cfg.APIHost,
		pace:         rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		window:       perMinuteLimiter(requestsPerMinute),
	}
}

func perMinuteLimiter(count int64) *slidingwindow.Limiter {
	lim, _ := slidingwindow.NewLimiter(time.Minute, count, func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	return lim
}

func (c *Client) getClient() *http.Client {
	if c.Client == nil {
		return util.RobustHTTPClient()
	}
	return c.Client
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return fmt.Sprintf("script:myna:%s (by /u/%s)", versioninfo.Short(), c.username)
}

// APIError is a non-200 response from the Reddit API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("reddit API error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("reddit API error %d", e.StatusCode)
}

func (e *APIError) IsThrottled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// throttle blocks until the next request is allowed to go out.
func (c *Client) throttle(ctx context.Context) error {
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}
	for !c.window.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	// reddit reports grant failures with a 200 and an error field
	Error string `json:"error"`
}

// token returns a valid access token, fetching a fresh one when the cached
// token is missing or within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.authHost+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.getClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("fetching access token: %w", errorFromResponse(resp))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.Error != "" {
		// invalid_grant: bad username/password, or 2FA enabled on the account
		return "", fmt.Errorf("reddit auth failed: %s", tok.Error)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit auth failed: empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) apiGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	uri := c.apiHost + path
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.getClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	apiRequestCount.WithLabelValues("GET", fmt.Sprint(resp.StatusCode)).Inc()
	if resp.StatusCode != 200 {
		return errorFromResponse(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding reddit response: %w", err)
		}
	}
	return nil
}

func (c *Client) apiPostForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiHost+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.getClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	apiRequestCount.WithLabelValues("POST", fmt.Sprint(resp.StatusCode)).Inc()
	if resp.StatusCode != 200 {
		return errorFromResponse(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding reddit response: %w", err)
		}
	}
	return nil
}

// Verify checks the credentials by fetching the authenticated account and
// returns its username. Call once at startup to fail fast on bad config.
func (c *Client) Verify(ctx context.Context) (string, error) {
	var me struct {
		Name string `json:"name"`
	}
	if err := c.apiGet(ctx, "/api/v1/me", nil, &me); err != nil {
		return "", fmt.Errorf("verifying reddit credentials: %w", err)
	}
	if me.Name == "" {
		return "", fmt.Errorf("verifying reddit credentials: empty account name")
	}
	return me.Name, nil
}
