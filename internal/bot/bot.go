// Package bot exposes lookups over a Telegram bot. Each chat message is
// a command or a bare username; bare usernames get an inline keyboard to
// pick the platform.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"socialscope/pkg/cache"
	errs "socialscope/pkg/errors"
	"socialscope/pkg/export"
	"socialscope/pkg/fetcher"
	"socialscope/pkg/history"
	"socialscope/pkg/logger"
	"socialscope/pkg/social"
)

const maxBatchSize = 10

type Bot struct {
	api          *tgbotapi.BotAPI
	orchestrator *fetcher.Orchestrator
	batch        *fetcher.BatchRunner
	history      *history.Store
	cache        *cache.Cache
	logger       logger.Logger
}

// New connects to the Telegram API with token.
func New(token string, orchestrator *fetcher.Orchestrator, batch *fetcher.BatchRunner,
	hist *history.Store, c *cache.Cache, log logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "failed to connect to Telegram")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Bot{
		api:          api,
		orchestrator: orchestrator,
		batch:        batch,
		history:      hist,
		cache:        c,
		logger:       log,
	}, nil
}

// Start consumes updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.InfoWithFields("bot started", map[string]interface{}{
		"account": b.api.Self.UserName,
	})

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	b.logger.DebugWithFields("incoming message", map[string]interface{}{
		"from": msg.From.UserName,
		"text": msg.Text,
	})

	switch msg.Command() {
	case "start", "help":
		b.send(msg.Chat.ID, helpText)
	case "lookup":
		b.handleLookup(ctx, msg.Chat.ID, msg.CommandArguments())
	case "batch":
		b.handleBatch(ctx, msg.Chat.ID, msg.CommandArguments())
	case "history":
		b.handleHistory(msg.Chat.ID)
	case "export":
		b.handleExport(msg.Chat.ID)
	case "clear":
		b.handleClear(msg.Chat.ID)
	case "":
		// bare text: treat it as a username and ask for the platform
		b.handleBareUsername(msg.Chat.ID, msg.Text)
	default:
		b.send(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

const helpText = `I look up public profile metadata on Instagram and TikTok.

/lookup <instagram|tiktok> <username> - fetch one profile
/batch <instagram|tiktok> <user1> <user2> ... - fetch several profiles
/history - show recent lookups
/export - download the lookup history as CSV
/clear - forget the lookup history

You can also just send a username and pick the platform.`

func (b *Bot) handleLookup(ctx context.Context, chatID int64, args string) {
	platform, username, err := parseLookupArgs(args)
	if err != nil {
		b.send(chatID, err.Error())
		return
	}
	b.runLookup(ctx, chatID, platform, username)
}

func (b *Bot) runLookup(ctx context.Context, chatID int64, platform social.Platform, username string) {
	record, err := b.orchestrator.Lookup(ctx, platform, username)
	if err != nil {
		b.send(chatID, describeFailure(platform, username, err))
		return
	}
	b.sendMarkdown(chatID, RenderRecord(record))
}

func (b *Bot) handleBatch(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.send(chatID, "Usage: /batch <instagram|tiktok> <user1> <user2> ...")
		return
	}

	platform, err := ParsePlatform(fields[0])
	if err != nil {
		b.send(chatID, err.Error())
		return
	}

	usernames := fields[1:]
	if len(usernames) > maxBatchSize {
		b.send(chatID, fmt.Sprintf("Too many usernames, the limit is %d per batch.", maxBatchSize))
		return
	}

	jobs := make([]fetcher.BatchJob, len(usernames))
	for i, username := range usernames {
		jobs[i] = fetcher.BatchJob{Platform: platform, Username: username}
	}

	b.send(chatID, fmt.Sprintf("Looking up %d profiles...", len(jobs)))
	results := b.batch.Run(ctx, jobs)

	var sb strings.Builder
	for _, result := range results {
		if result.Err != nil {
			sb.WriteString(fmt.Sprintf("@%s: %s\n", result.Job.Username,
				describeFailure(platform, result.Job.Username, result.Err)))
			continue
		}
		sb.WriteString(RenderRecordShort(result.Record))
		sb.WriteString("\n")
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) handleHistory(chatID int64) {
	records := b.history.List()
	if len(records) == 0 {
		b.send(chatID, "No lookups yet.")
		return
	}

	const limit = 15
	if len(records) > limit {
		records = records[:limit]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Last %d lookups:*\n", len(records)))
	for _, record := range records {
		sb.WriteString(RenderRecordShort(record))
		sb.WriteString("\n")
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) handleExport(chatID int64) {
	records := b.history.List()
	if len(records) == 0 {
		b.send(chatID, "Nothing to export yet.")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		b.logger.WithError(err).Error("failed to render CSV export")
		b.send(chatID, "Export failed, see the server log.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "search_history.csv",
		Bytes: buf.Bytes(),
	})
	if _, err := b.api.Send(doc); err != nil {
		b.logger.WithError(err).Error("failed to send export document")
	}
}

func (b *Bot) handleClear(chatID int64) {
	if err := b.history.Clear(); err != nil {
		b.logger.WithError(err).Error("failed to clear history")
		b.send(chatID, "Could not clear the history.")
		return
	}
	if b.cache != nil {
		b.cache.Clear()
	}
	b.send(chatID, "History cleared.")
}

func (b *Bot) handleBareUsername(chatID int64, text string) {
	username := social.NormalizeUsername(text)
	if !social.ValidUsername(username) {
		b.send(chatID, "That does not look like a username. Try /help.")
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Instagram", callbackData(social.Instagram, username)),
			tgbotapi.NewInlineKeyboardButtonData("TikTok", callbackData(social.TikTok, username)),
		),
	)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Look up @%s on which platform?", username))
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.logger.WithError(err).Error("failed to send platform keyboard")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	platform, username, err := parseCallbackData(cb.Data)
	if err != nil {
		b.logger.WithError(err).Warn("ignoring malformed callback")
		return
	}

	// Acknowledge the tap so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.WithError(err).Warn("failed to answer callback")
	}

	b.runLookup(ctx, cb.Message.Chat.ID, platform, username)
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.WithError(err).Error("failed to send message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.WithError(err).Error("failed to send message")
	}
}
