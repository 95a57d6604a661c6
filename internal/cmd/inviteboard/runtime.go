package inviteboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/mkallio/inviteboard/internal/leaderboard/app"
	"github.com/mkallio/inviteboard/internal/leaderboard/publish"
	"github.com/mkallio/inviteboard/internal/leaderboard/publish/gitrepo"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage/jsonfile"
	"github.com/mkallio/inviteboard/internal/leaderboard/storage/sqlite"
	"github.com/mkallio/inviteboard/internal/ops"
	"github.com/mkallio/inviteboard/internal/platform/metrics"
	"github.com/mkallio/inviteboard/internal/transport/telegram"
)

// run starts runtime dependencies and the Telegram polling loop. It returns
// when the context is cancelled or a runtime component fails.
func run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if strings.TrimSpace(cfg.RepoPath) == "" {
		cfg.RepoPath = "."
	}
	if strings.TrimSpace(cfg.StateFile) == "" {
		cfg.StateFile = "leaderboard_data.json"
	}
	if strings.TrimSpace(cfg.PageFile) == "" {
		cfg.PageFile = "index.html"
	}
	if strings.TrimSpace(cfg.JournalPath) == "" {
		cfg.JournalPath = "data/inviteboard.db"
	}

	metrics.Register()

	if dir := filepath.Dir(cfg.JournalPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal storage dir: %w", err)
		}
	}

	journal, err := sqlite.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open publish journal: %w", err)
	}
	defer func() {
		if closeErr := journal.Close(); closeErr != nil {
			log.Printf("close publish journal: %v", closeErr)
		}
	}()

	publisher, err := gitrepo.New(gitrepo.Options{
		RepoPath:    cfg.RepoPath,
		Branch:      cfg.Branch,
		Remote:      cfg.Remote,
		Token:       cfg.GitToken,
		AuthorName:  cfg.CommitAuthor,
		AuthorEmail: cfg.CommitEmail,
	})
	if err != nil {
		return fmt.Errorf("open leaderboard repository: %w", err)
	}

	service, err := app.New(app.Config{
		Store:     jsonfile.New(filepath.Join(cfg.RepoPath, cfg.StateFile)),
		Journal:   journal,
		Publisher: publisher,
		RetryPolicy: publish.RetryPolicy{
			Attempts: cfg.PublishRetries,
			Backoff:  cfg.PublishBackoff,
			MaxDelay: cfg.PublishMaxDelay,
		},
		PageTitle:    cfg.PageTitle,
		PagePath:     filepath.Join(cfg.RepoPath, cfg.PageFile),
		PublishPaths: []string{cfg.StateFile, cfg.PageFile},
	})
	if err != nil {
		return fmt.Errorf("build leaderboard service: %w", err)
	}

	if err := service.Load(ctx); err != nil {
		return err
	}
	// A crash between commit and push leaves work behind. Push it before
	// accepting new submissions rather than waiting for the next one.
	if err := service.Reconcile(ctx); err != nil {
		log.Printf("reconcile pending changes: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	log.Printf("telegram bot authorized as @%s", api.Self.UserName)

	bot, err := telegram.New(api, service, telegram.Options{
		Title:       cfg.PageTitle,
		RateLimit:   rate.Limit(cfg.ChatRate),
		RateBurst:   cfg.ChatBurst,
		PollTimeout: cfg.PollTimeout,
	})
	if err != nil {
		return fmt.Errorf("build telegram bot: %w", err)
	}

	opsServer := ops.New(service, journal, ops.Options{
		Addr:        cfg.OpsAddr,
		MetricsUser: cfg.MetricsUser,
		MetricsPass: cfg.MetricsPass,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opsErr := make(chan error, 1)
	go func() {
		opsErr <- opsServer.Run(ctx)
	}()

	go func() {
		// Only ever returns the context error.
		_ = service.RunRepublisher(ctx, cfg.RepublishInterval)
	}()

	botErr := make(chan error, 1)
	go func() {
		botErr <- bot.Run(ctx)
	}()

	var runErr error
	select {
	case runErr = <-botErr:
		cancel()
		<-opsErr
	case runErr = <-opsErr:
		cancel()
		<-botErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
