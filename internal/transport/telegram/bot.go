// Package telegram turns chat commands into leaderboard submissions and
// queries. Replies mirror what users typed against the original bot, with
// localized variants selected by the sender's language code.
package telegram

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/mkallio/inviteboard/internal/leaderboard/app"
	"github.com/mkallio/inviteboard/internal/leaderboard/domain"
)

// Client is the Telegram API surface the bot uses.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ Client = (*tgbotapi.BotAPI)(nil)

// Service is the pipeline surface the bot drives.
type Service interface {
	Submit(ctx context.Context, sub domain.Submission) (app.SubmitResult, error)
	Snapshot() app.Snapshot
	Stats(userID int64) (app.UserStats, error)
}

var _ Service = (*app.Service)(nil)

// Options tune bot behavior.
type Options struct {
	// Title names the event in the welcome message and board header.
	Title string
	// RateLimit and RateBurst cap accepted commands per chat.
	RateLimit rate.Limit
	RateBurst int
	// PollTimeout is the long-poll duration for update fetches.
	PollTimeout time.Duration
}

// Bot routes chat commands to the leaderboard pipeline.
type Bot struct {
	api     Client
	service Service
	title   string
	limiter *chatLimiter
	timeout time.Duration
}

// New wires a bot over an authenticated Telegram client.
func New(client Client, service Service, opts Options) (*Bot, error) {
	if client == nil {
		return nil, errors.New("telegram: client is required")
	}
	if service == nil {
		return nil, errors.New("telegram: service is required")
	}
	if opts.Title == "" {
		opts.Title = "Leaderboard"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(1)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	return &Bot{
		api:     client,
		service: service,
		title:   opts.Title,
		limiter: newChatLimiter(opts.RateLimit, opts.RateBurst),
		timeout: opts.PollTimeout,
	}, nil
}

// Run consumes updates until the context is cancelled or the update channel
// closes.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = int(b.timeout / time.Second)
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if !b.limiter.allow(msg.Chat.ID) {
		log.Printf("rate limited chat %d", msg.Chat.ID)
		return
	}

	loc := printerFor(msg.From.LanguageCode)
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, welcomeReply(loc, b.title), tgbotapi.ModeMarkdown)
	case "submit", "invites":
		b.handleSubmit(ctx, loc, msg)
	case "leaderboard":
		b.handleLeaderboard(loc, msg)
	case "mystats":
		b.handleMyStats(loc, msg)
	}
}

func (b *Bot) handleSubmit(ctx context.Context, loc Localizer, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		b.reply(msg.Chat.ID, submitUsageReply(loc), tgbotapi.ModeMarkdown)
		return
	}
	invites, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(msg.Chat.ID, notANumberReply(loc), "")
		return
	}
	if invites < 0 {
		b.reply(msg.Chat.ID, negativeCountReply(loc), "")
		return
	}

	result, err := b.service.Submit(ctx, domain.Submission{
		UserID:   msg.From.ID,
		Username: displayName(msg.From),
		Invites:  invites,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidCount):
		b.reply(msg.Chat.ID, negativeCountReply(loc), "")
		return
	case err != nil:
		log.Printf("submit from user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, saveFailedReply(loc), "")
		return
	}

	if result.Existed {
		b.reply(msg.Chat.ID, submissionUpdatedReply(loc, result.Previous.Invites, result.Record.Invites), tgbotapi.ModeMarkdown)
	} else {
		b.reply(msg.Chat.ID, submissionAddedReply(loc, result.Record.Invites), tgbotapi.ModeMarkdown)
	}
	if !result.Published {
		b.reply(msg.Chat.ID, publishWarningReply(loc), "")
	}
}

func (b *Bot) handleLeaderboard(loc Localizer, msg *tgbotapi.Message) {
	snapshot := b.service.Snapshot()
	if len(snapshot.Entries) == 0 {
		b.reply(msg.Chat.ID, boardEmptyReply(loc), tgbotapi.ModeMarkdown)
		return
	}
	b.reply(msg.Chat.ID, boardReply(loc, b.title, snapshot), tgbotapi.ModeMarkdown)
}

func (b *Bot) handleMyStats(loc Localizer, msg *tgbotapi.Message) {
	stats, err := b.service.Stats(msg.From.ID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		b.reply(msg.Chat.ID, statsMissingReply(loc), tgbotapi.ModeMarkdown)
		return
	}
	if err != nil {
		log.Printf("stats for user %d: %v", msg.From.ID, err)
		return
	}
	b.reply(msg.Chat.ID, statsReply(loc, stats), tgbotapi.ModeMarkdown)
}

func (b *Bot) reply(chatID int64, text, parseMode string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = parseMode
	if _, err := b.api.Send(reply); err != nil {
		log.Printf("send reply to chat %d: %v", chatID, err)
	}
}

// displayName falls back to a synthetic name for accounts without a public
// username, so every leaderboard entry stays addressable.
func displayName(user *tgbotapi.User) string {
	if name := strings.TrimSpace(user.UserName); name != "" {
		return name
	}
	return "user" + strconv.FormatInt(user.ID, 10)
}

type chatLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	chats map[int64]*chatState
}

type chatState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newChatLimiter(limit rate.Limit, burst int) *chatLimiter {
	return &chatLimiter{
		limit: limit,
		burst: burst,
		chats: make(map[int64]*chatState),
	}
}

func (l *chatLimiter) allow(chatID int64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.chats[chatID]
	if !ok {
		state = &chatState{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.chats[chatID] = state
	}
	state.lastSeen = now
	l.prune(now)
	return state.limiter.Allow()
}

// prune drops chats idle for ten minutes once the map grows large.
func (l *chatLimiter) prune(now time.Time) {
	if len(l.chats) < 1024 {
		return
	}
	for id, state := range l.chats {
		if now.Sub(state.lastSeen) > 10*time.Minute {
			delete(l.chats, id)
		}
	}
}
