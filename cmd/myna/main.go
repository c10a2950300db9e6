package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/perch-social/myna/autoreply/compose"
	"github.com/perch-social/myna/autoreply/consumer"
	"github.com/perch-social/myna/autoreply/countstore"
	"github.com/perch-social/myna/autoreply/engine"
	"github.com/perch-social/myna/autoreply/ledger"
	"github.com/perch-social/myna/autoreply/seenstore"
	"github.com/perch-social/myna/reddit"
	"github.com/perch-social/myna/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "myna",
		Usage:   "reddit auto-reply daemon (the talking bird)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "reddit-client-id",
			Usage:   "OAuth2 client id of the reddit script app",
			EnvVars: []string{"REDDIT_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "reddit-client-secret",
			Usage:   "OAuth2 client secret of the reddit script app",
			EnvVars: []string{"REDDIT_CLIENT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "reddit-username",
			Usage:   "account the bot fetches and posts as",
			EnvVars: []string{"REDDIT_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "reddit-password",
			EnvVars: []string{"REDDIT_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "reddit-user-agent",
			Usage:   "override the default script-app user agent",
			EnvVars: []string{"REDDIT_USER_AGENT"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"MYNA_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (json, text)",
			Value:   "json",
			EnvVars: []string{"MYNA_LOG_FORMAT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		scanCmd,
	}

	return app.Run(args)
}

func redditClientFromFlags(cctx *cli.Context) *reddit.Client {
	return reddit.NewClient(reddit.ClientConfig{
		ClientID:     cctx.String("reddit-client-id"),
		ClientSecret: cctx.String("reddit-client-secret"),
		Username:     cctx.String("reddit-username"),
		Password:     cctx.String("reddit-password"),
		UserAgent:    cctx.String("reddit-user-agent"),
	})
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the reply daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string for audit log and persisted state",
			Value:   "sqlite://data/myna/myna.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for shared state; empty keeps state in the database",
			EnvVars: []string{"MYNA_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for admin HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"MYNA_BIND"},
		},
		&cli.StringSliceFlag{
			Name:    "subreddit",
			Usage:   "subreddit to watch (can be repeated)",
			Value:   cli.NewStringSlice("india"),
			EnvVars: []string{"MYNA_SUBREDDITS", "SUBREDDITS"},
		},
		&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "how often to poll for new posts",
			Value:   time.Hour,
			EnvVars: []string{"MYNA_POLL_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "fetch-limit",
			Usage:   "posts to fetch per subreddit per cycle",
			Value:   25,
			EnvVars: []string{"MYNA_FETCH_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "max-post-age",
			Usage:   "skip posts older than this",
			Value:   24 * time.Hour,
			EnvVars: []string{"MYNA_MAX_POST_AGE"},
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "parallel post processors per cycle",
			Value:   4,
			EnvVars: []string{"MYNA_CONCURRENCY"},
		},
		&cli.IntFlag{
			Name:    "max-replies-per-hour",
			Usage:   "hard cap on replies in any trailing hour",
			Value:   3,
			EnvVars: []string{"MAX_REPLIES_PER_HOUR"},
		},
		&cli.DurationFlag{
			Name:    "min-cooldown",
			Usage:   "minimum gap between consecutive replies",
			Value:   10 * time.Minute,
			EnvVars: []string{"MYNA_MIN_COOLDOWN"},
		},
		&cli.IntFlag{
			Name:    "min-post-score",
			Usage:   "reject posts scoring strictly below this",
			Value:   engine.DefaultMinPostScore,
			EnvVars: []string{"MYNA_MIN_POST_SCORE"},
		},
		&cli.StringFlag{
			Name:    "rules-file",
			Usage:   "JSON keyword and blacklist rules; empty uses the built-in set",
			EnvVars: []string{"MYNA_RULES_FILE"},
		},
		&cli.StringFlag{
			Name:    "provider-order",
			Usage:   "comma-separated generation fallback chain",
			Value:   "openai,anthropic,gemini",
			EnvVars: []string{"MYNA_PROVIDER_ORDER"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			EnvVars: []string{"OPENAI_MODEL"},
		},
		&cli.StringFlag{
			Name:    "anthropic-api-key",
			EnvVars: []string{"ANTHROPIC_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "anthropic-model",
			EnvVars: []string{"ANTHROPIC_MODEL"},
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			EnvVars: []string{"GEMINI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "gemini-model",
			EnvVars: []string{"GEMINI_MODEL"},
		},
		&cli.DurationFlag{
			Name:    "generation-timeout",
			Usage:   "per-provider call timeout",
			Value:   30 * time.Second,
			EnvVars: []string{"MYNA_GENERATION_TIMEOUT"},
		},
		&cli.StringFlag{
			Name: "slack-webhook-url",
			// eg: https://hooks.slack.com/services/X1234
			Usage:   "full URL of slack webhook for reply notifications",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.DurationFlag{
			Name:    "event-retention",
			Usage:   "trim audit rows older than this; 0 keeps everything",
			Value:   90 * 24 * time.Hour,
			EnvVars: []string{"MYNA_EVENT_RETENTION"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), 40)
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				Logger:             logger,
				Bind:               cctx.String("bind"),
				RedisURL:           cctx.String("redis-url"),
				Subreddits:         cctx.StringSlice("subreddit"),
				PollInterval:       cctx.Duration("poll-interval"),
				FetchLimit:         cctx.Int("fetch-limit"),
				MaxPostAge:         cctx.Duration("max-post-age"),
				Concurrency:        cctx.Int("concurrency"),
				MaxRepliesPerHour:  cctx.Int("max-replies-per-hour"),
				MinCooldown:        cctx.Duration("min-cooldown"),
				MinPostScore:       cctx.Int("min-post-score"),
				RulesFile:          cctx.String("rules-file"),
				ProviderOrder:      cctx.String("provider-order"),
				OpenAIAPIKey:       cctx.String("openai-api-key"),
				OpenAIModel:        cctx.String("openai-model"),
				AnthropicAPIKey:    cctx.String("anthropic-api-key"),
				AnthropicModel:     cctx.String("anthropic-model"),
				GeminiAPIKey:       cctx.String("gemini-api-key"),
				GeminiModel:        cctx.String("gemini-model"),
				GenerationTimeout:  cctx.Duration("generation-timeout"),
				RedditClientID:     cctx.String("reddit-client-id"),
				RedditClientSecret: cctx.String("reddit-client-secret"),
				RedditUsername:     cctx.String("reddit-username"),
				RedditPassword:     cctx.String("reddit-password"),
				RedditUserAgent:    cctx.String("reddit-user-agent"),
				SlackWebhookURL:    cctx.String("slack-webhook-url"),
				EventRetention:     cctx.Duration("event-retention"),
			},
		)
		if err != nil {
			return err
		}

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run reply daemon: %w", err)
		}
		return nil
	},
}

var scanCmd = &cli.Command{
	Name:  "scan",
	Usage: "fetch and evaluate posts once, generating canned replies without posting anything",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "subreddit",
			Usage:   "subreddit to scan (can be repeated)",
			Value:   cli.NewStringSlice("india"),
			EnvVars: []string{"MYNA_SUBREDDITS", "SUBREDDITS"},
		},
		&cli.IntFlag{
			Name:    "fetch-limit",
			Usage:   "posts to fetch per subreddit",
			Value:   25,
			EnvVars: []string{"MYNA_FETCH_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "max-post-age",
			Usage:   "skip posts older than this",
			Value:   24 * time.Hour,
			EnvVars: []string{"MYNA_MAX_POST_AGE"},
		},
		&cli.IntFlag{
			Name:    "min-post-score",
			Usage:   "reject posts scoring strictly below this",
			Value:   engine.DefaultMinPostScore,
			EnvVars: []string{"MYNA_MIN_POST_SCORE"},
		},
		&cli.StringFlag{
			Name:    "rules-file",
			Usage:   "JSON keyword and blacklist rules; empty uses the built-in set",
			EnvVars: []string{"MYNA_RULES_FILE"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		rules, err := loadRules(cctx.String("rules-file"), logger)
		if err != nil {
			return err
		}

		rc := redditClientFromFlags(cctx)
		username, err := rc.Verify(ctx)
		if err != nil {
			return fmt.Errorf("connecting to reddit: %w", err)
		}
		logger.Info("authenticated with reddit", "username", username)

		eng := &engine.Engine{
			Logger: logger,
			Rules:  rules,
			// a dry run should evaluate every candidate, so the quota and
			// cooldown are effectively disabled
			Ledger:       ledger.NewLedger(ledger.NewMemStateStore(), 1_000_000, time.Nanosecond),
			Seen:         seenstore.NewMemSeenStore(),
			Counts:       countstore.NewMemCountStore(),
			Composer:     compose.NewComposer([]compose.Provider{compose.NewCannedProvider()}, time.Second),
			Submitter:    &dryRunSubmitter{logger: logger},
			MinPostScore: cctx.Int("min-post-score"),
		}

		co := &consumer.Consumer{
			Logger:      logger,
			Engine:      eng,
			Fetcher:     rc,
			Subreddits:  cctx.StringSlice("subreddit"),
			FetchLimit:  cctx.Int("fetch-limit"),
			MaxPostAge:  cctx.Duration("max-post-age"),
			Concurrency: 1,
		}
		co.RunCycle(ctx)
		return nil
	},
}

// dryRunSubmitter satisfies engine.Submitter without touching reddit.
type dryRunSubmitter struct {
	logger *slog.Logger
}

func (s *dryRunSubmitter) SubmitReply(ctx context.Context, postFullname, text string) (string, error) {
	s.logger.Info("dry run, not submitting reply", "post", postFullname, "reply", text)
	return "dry-run", nil
}
