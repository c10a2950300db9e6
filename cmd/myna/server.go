package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/perch-social/myna/autoreply/cachestore"
	"github.com/perch-social/myna/autoreply/compose"
	"github.com/perch-social/myna/autoreply/consumer"
	"github.com/perch-social/myna/autoreply/countstore"
	"github.com/perch-social/myna/autoreply/engine"
	"github.com/perch-social/myna/autoreply/eventlog"
	"github.com/perch-social/myna/autoreply/keyword"
	"github.com/perch-social/myna/autoreply/ledger"
	"github.com/perch-social/myna/autoreply/seenstore"
	"github.com/perch-social/myna/reddit"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"
)

// recently-rejected posts skip the gate until this expires
const rejectionCacheTTL = 6 * time.Hour

type Server struct {
	logger   *slog.Logger
	consumer *consumer.Consumer
	events   *eventlog.EventLog
	counts   countstore.CountStore
	notifier *engine.SlackNotifier
	subs     []string

	httpd *http.Server
}

type Config struct {
	Logger *slog.Logger
	Bind   string

	RedisURL string

	Subreddits   []string
	PollInterval time.Duration
	FetchLimit   int
	MaxPostAge   time.Duration
	Concurrency  int

	MaxRepliesPerHour int
	MinCooldown       time.Duration
	MinPostScore      int
	RulesFile         string

	ProviderOrder     string
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	GeminiAPIKey      string
	GeminiModel       string
	GenerationTimeout time.Duration

	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string

	SlackWebhookURL string
	EventRetention  time.Duration
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if config.RedditClientID == "" || config.RedditClientSecret == "" ||
		config.RedditUsername == "" || config.RedditPassword == "" {
		return nil, fmt.Errorf("reddit credentials are required (client id, client secret, username, password)")
	}
	if len(config.Subreddits) == 0 {
		return nil, fmt.Errorf("at least one subreddit is required")
	}

	rc := reddit.NewClient(reddit.ClientConfig{
		ClientID:     config.RedditClientID,
		ClientSecret: config.RedditClientSecret,
		Username:     config.RedditUsername,
		Password:     config.RedditPassword,
		UserAgent:    config.RedditUserAgent,
	})
	username, err := rc.Verify(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("connecting to reddit: %w", err)
	}
	logger.Info("authenticated with reddit", "username", username)

	rules, err := loadRules(config.RulesFile, logger)
	if err != nil {
		return nil, err
	}

	var states ledger.StateStore
	var seen seenstore.SeenStore
	var counters countstore.CountStore
	var cache cachestore.CacheStore
	if config.RedisURL != "" {
		// check the connection once before handing the URL to every store
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		st, err := ledger.NewRedisStateStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis statestore: %v", err)
		}
		states = st

		sn, err := seenstore.NewRedisSeenStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis seenstore: %v", err)
		}
		seen = sn

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, rejectionCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh
	} else {
		st, err := ledger.NewGormStateStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing statestore: %v", err)
		}
		states = st

		sn, err := seenstore.NewGormSeenStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing seenstore: %v", err)
		}
		seen = sn

		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, rejectionCacheTTL)
	}

	events, err := eventlog.NewEventLog(db)
	if err != nil {
		return nil, fmt.Errorf("initializing event log: %v", err)
	}

	providers, err := buildProviders(config, logger)
	if err != nil {
		return nil, err
	}

	var notifier *engine.SlackNotifier
	if config.SlackWebhookURL != "" {
		notifier = &engine.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	}

	eng := &engine.Engine{
		Logger:       logger,
		Rules:        rules,
		Ledger:       ledger.NewLedger(states, config.MaxRepliesPerHour, config.MinCooldown),
		Seen:         seen,
		Counts:       counters,
		Composer:     compose.NewComposer(providers, config.GenerationTimeout),
		Submitter:    rc,
		Events:       events,
		MinPostScore: config.MinPostScore,
	}
	if notifier != nil {
		eng.Notifier = notifier
	}

	co := &consumer.Consumer{
		Logger:         logger,
		Engine:         eng,
		Fetcher:        rc,
		Cache:          cache,
		Events:         events,
		Subreddits:     config.Subreddits,
		PollInterval:   config.PollInterval,
		FetchLimit:     config.FetchLimit,
		MaxPostAge:     config.MaxPostAge,
		Concurrency:    config.Concurrency,
		EventRetention: config.EventRetention,
	}

	s := &Server{
		logger:   logger,
		consumer: co,
		events:   events,
		counts:   counters,
		notifier: notifier,
		subs:     config.Subreddits,
	}
	s.buildAdminAPI(config.Bind)

	return s, nil
}

func loadRules(path string, logger *slog.Logger) (*keyword.RuleSet, error) {
	if path == "" {
		return keyword.DefaultRules(), nil
	}
	rules, err := keyword.LoadRulesFile(path)
	if err != nil {
		return nil, fmt.Errorf("initializing keyword rules: %w", err)
	}
	logger.Info("loaded keyword rules from JSON",
		"path", path,
		"keywords", len(rules.Keywords),
		"blacklist", len(rules.Blacklist))
	return rules, nil
}

// buildProviders assembles the generation chain in configured order. A
// provider named in the order but missing its API key is skipped; the
// resulting chain must be non-empty.
func buildProviders(config Config, logger *slog.Logger) ([]compose.Provider, error) {
	available := map[string]compose.ProviderConfig{
		"openai":    {Kind: "openai", APIKey: config.OpenAIAPIKey, Model: config.OpenAIModel},
		"anthropic": {Kind: "anthropic", APIKey: config.AnthropicAPIKey, Model: config.AnthropicModel},
		"gemini":    {Kind: "gemini", APIKey: config.GeminiAPIKey, Model: config.GeminiModel},
		"canned":    {Kind: "canned"},
	}

	var providers []compose.Provider
	for _, kind := range strings.Split(config.ProviderOrder, ",") {
		kind = strings.TrimSpace(strings.ToLower(kind))
		if kind == "" {
			continue
		}
		cfg, ok := available[kind]
		if !ok {
			return nil, fmt.Errorf("unknown generation provider %q in provider order", kind)
		}
		if cfg.Kind != "canned" && cfg.APIKey == "" {
			logger.Info("generation provider has no API key, skipping", "provider", kind)
			continue
		}
		p, err := compose.NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no generation providers configured; set at least one API key or add 'canned' to the provider order")
	}
	return providers, nil
}

func (s *Server) buildAdminAPI(bind string) {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("myna"))

	e.GET("/_health", s.handleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/stats", s.handleStats)
	e.GET("/interactions", s.handleInteractions)

	s.httpd = &http.Server{
		Handler:        e,
		Addr:           bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}
}

// Run starts the admin API and the poll loop, and blocks until the context
// is cancelled or an exit signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("starting admin API", "bind", s.httpd.Addr)
	go func() {
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin API shutting down unexpectedly", "err", err)
		}
	}()

	if s.notifier != nil {
		go s.RunDailySummary(ctx)
	}

	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		s.logger.Info("received OS exit signal", "signal", sig)
		cancel()
	}()

	err := s.consumer.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if herr := s.httpd.Shutdown(shutdownCtx); herr != nil {
		s.logger.Error("admin API shutdown error", "err", herr)
	}
	s.logger.Info("graceful shutdown complete")
	return err
}

// RunDailySummary posts the trailing day's counters to slack once a day.
// Expects to be run in a goroutine.
func (s *Server) RunDailySummary(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap, err := s.collectStats(ctx)
			if err != nil {
				s.logger.Error("collecting daily summary failed", "err", err)
				continue
			}
			if err := s.notifier.Send(ctx, formatDailySummary(snap)); err != nil {
				s.logger.Error("sending daily summary failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// rejectReasons are the countstore buckets surfaced on /stats and in the
// daily summary. already-processed is deliberately absent: repeat sightings
// are not counted.
var rejectReasons = []string{
	engine.RejectPostUnavailable,
	engine.RejectLowQuality,
	engine.RejectBlacklisted,
	engine.RejectNoKeywordMatch,
}

type StatsSnapshot struct {
	PostsEvaluatedDay   int            `json:"postsEvaluatedDay"`
	PostsEvaluatedTotal int            `json:"postsEvaluatedTotal"`
	RepliesSentHour     int            `json:"repliesSentHour"`
	RepliesSentDay      int            `json:"repliesSentDay"`
	RepliesSentTotal    int            `json:"repliesSentTotal"`
	RepliesFailedDay    int64          `json:"repliesFailedDay"`
	RejectsDay          map[string]int `json:"rejectsDay"`
}

func (s *Server) collectStats(ctx context.Context) (*StatsSnapshot, error) {
	snap := &StatsSnapshot{RejectsDay: make(map[string]int)}

	for _, sub := range s.subs {
		n, err := s.counts.GetCountDistinct(ctx, "post-evaluated", sub, countstore.PeriodDay)
		if err != nil {
			return nil, fmt.Errorf("reading evaluation counts: %w", err)
		}
		snap.PostsEvaluatedDay += n

		n, err = s.counts.GetCountDistinct(ctx, "post-evaluated", sub, countstore.PeriodTotal)
		if err != nil {
			return nil, fmt.Errorf("reading evaluation counts: %w", err)
		}
		snap.PostsEvaluatedTotal += n

		n, err = s.counts.GetCount(ctx, "reply-sent", sub, countstore.PeriodHour)
		if err != nil {
			return nil, fmt.Errorf("reading reply counts: %w", err)
		}
		snap.RepliesSentHour += n

		n, err = s.counts.GetCount(ctx, "reply-sent", sub, countstore.PeriodDay)
		if err != nil {
			return nil, fmt.Errorf("reading reply counts: %w", err)
		}
		snap.RepliesSentDay += n

		n, err = s.counts.GetCount(ctx, "reply-sent", sub, countstore.PeriodTotal)
		if err != nil {
			return nil, fmt.Errorf("reading reply counts: %w", err)
		}
		snap.RepliesSentTotal += n
	}

	for _, reason := range rejectReasons {
		n, err := s.counts.GetCount(ctx, "reject", reason, countstore.PeriodDay)
		if err != nil {
			return nil, fmt.Errorf("reading reject counts: %w", err)
		}
		if n > 0 {
			snap.RejectsDay[reason] = n
		}
	}

	failed, err := s.events.CountSince(ctx, eventlog.ActionReplyFailed, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("reading failure counts: %w", err)
	}
	snap.RepliesFailedDay = failed

	return snap, nil
}

func formatDailySummary(snap *StatsSnapshot) string {
	msg := "===== myna daily summary =====\n"
	msg += fmt.Sprintf("posts evaluated: `%d`\n", snap.PostsEvaluatedDay)
	msg += fmt.Sprintf("replies posted: `%d`\n", snap.RepliesSentDay)
	msg += fmt.Sprintf("replies failed: `%d`\n", snap.RepliesFailedDay)
	for _, reason := range rejectReasons {
		if n, ok := snap.RejectsDay[reason]; ok {
			msg += fmt.Sprintf("rejected %s: `%d`\n", reason, n)
		}
	}
	return msg
}

type GenericStatus struct {
	Daemon string `json:"daemon"`
	Status string `json:"status"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "myna"})
}

func (s *Server) handleStats(c echo.Context) error {
	snap, err := s.collectStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleInteractions(c echo.Context) error {
	limit := 50
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	rows, err := s.events.Recent(c.Request().Context(), limit, c.QueryParam("action"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}
