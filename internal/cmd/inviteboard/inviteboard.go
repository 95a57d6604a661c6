// Package inviteboard parses bot command flags and launches the bot runtime.
package inviteboard

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/mkallio/inviteboard/internal/platform/cmd"
	"github.com/mkallio/inviteboard/internal/platform/config"
)

// Config holds inviteboard command configuration. The Telegram and git
// tokens are sourced from the environment only.
type Config struct {
	TelegramToken     string        `env:"INVITEBOARD_TELEGRAM_TOKEN"`
	RepoPath          string        `env:"INVITEBOARD_REPO_PATH" envDefault:"."`
	Branch            string        `env:"INVITEBOARD_BRANCH" envDefault:"main"`
	Remote            string        `env:"INVITEBOARD_REMOTE" envDefault:"origin"`
	StateFile         string        `env:"INVITEBOARD_STATE_FILE" envDefault:"leaderboard_data.json"`
	PageFile          string        `env:"INVITEBOARD_PAGE_FILE" envDefault:"index.html"`
	PageTitle         string        `env:"INVITEBOARD_PAGE_TITLE" envDefault:"EA Summit Helsinki"`
	GitToken          string        `env:"INVITEBOARD_GIT_TOKEN"`
	CommitAuthor      string        `env:"INVITEBOARD_COMMIT_AUTHOR" envDefault:"Invite Leaderboard Bot"`
	CommitEmail       string        `env:"INVITEBOARD_COMMIT_EMAIL" envDefault:"inviteboard@localhost"`
	PublishRetries    int           `env:"INVITEBOARD_PUBLISH_RETRIES" envDefault:"4"`
	PublishBackoff    time.Duration `env:"INVITEBOARD_PUBLISH_BACKOFF" envDefault:"2s"`
	PublishMaxDelay   time.Duration `env:"INVITEBOARD_PUBLISH_MAX_DELAY" envDefault:"10s"`
	RepublishInterval time.Duration `env:"INVITEBOARD_REPUBLISH_INTERVAL" envDefault:"1m"`
	PollTimeout       time.Duration `env:"INVITEBOARD_POLL_TIMEOUT" envDefault:"30s"`
	ChatRate          float64       `env:"INVITEBOARD_CHAT_RATE" envDefault:"1"`
	ChatBurst         int           `env:"INVITEBOARD_CHAT_BURST" envDefault:"5"`
	OpsAddr           string        `env:"INVITEBOARD_OPS_ADDR" envDefault:":8090"`
	MetricsUser       string        `env:"INVITEBOARD_METRICS_USER"`
	MetricsPass       string        `env:"INVITEBOARD_METRICS_PASS"`
	JournalPath       string        `env:"INVITEBOARD_JOURNAL_PATH" envDefault:"data/inviteboard.db"`
}

// ParseConfig parses dotenv files, environment, and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if err := config.LoadDotenv(); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.RepoPath, "repo-path", cfg.RepoPath, "Path to the local leaderboard git repository")
	fs.StringVar(&cfg.Branch, "branch", cfg.Branch, "Branch the leaderboard is published to")
	fs.StringVar(&cfg.Remote, "remote", cfg.Remote, "Git remote the leaderboard is pushed to")
	fs.StringVar(&cfg.StateFile, "state-file", cfg.StateFile, "Leaderboard state file name inside the repository")
	fs.StringVar(&cfg.PageFile, "page-file", cfg.PageFile, "Rendered leaderboard page name inside the repository")
	fs.StringVar(&cfg.PageTitle, "page-title", cfg.PageTitle, "Event title shown on the page and in replies")
	fs.IntVar(&cfg.PublishRetries, "publish-retries", cfg.PublishRetries, "Maximum publish attempts per update")
	fs.DurationVar(&cfg.PublishBackoff, "publish-backoff", cfg.PublishBackoff, "Base publish retry backoff delay")
	fs.DurationVar(&cfg.PublishMaxDelay, "publish-max-delay", cfg.PublishMaxDelay, "Maximum publish retry delay")
	fs.DurationVar(&cfg.RepublishInterval, "republish-interval", cfg.RepublishInterval, "How often unpublished changes are retried")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", cfg.PollTimeout, "Telegram long poll timeout")
	fs.Float64Var(&cfg.ChatRate, "chat-rate", cfg.ChatRate, "Allowed commands per second per chat")
	fs.IntVar(&cfg.ChatBurst, "chat-burst", cfg.ChatBurst, "Command burst allowance per chat")
	fs.StringVar(&cfg.OpsAddr, "ops-addr", cfg.OpsAddr, "The operational HTTP server address")
	fs.StringVar(&cfg.JournalPath, "journal-path", cfg.JournalPath, "The publish journal SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the bot runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceInviteboard, func(context.Context) error {
		return run(ctx, cfg)
	})
}
