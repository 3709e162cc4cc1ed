// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"panelbot/internal/config"
	"panelbot/internal/domain"
	"panelbot/internal/feature/admin"
	"panelbot/internal/logging"
)

const (
	welcomeText     = "Welcome! Click the web app to open your panel"
	openPanelText   = "Open User Panel"
	openBrowserText = "Open in Browser"
	failureText     = "Something went wrong, please try again later."
)

type botRunner interface {
	Start(ctx context.Context)
}

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// AdminReporter answers the /admin command.
type AdminReporter interface {
	Report(ctx context.Context, invokerID domain.UserID) (admin.Report, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"edited_message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botRunner, error) {
		return bot.New(token, options...)
	}
)

// Option customizes the client before the bot is created.
type Option func(*handlers)

// WithReporter wires the admin stats command.
func WithReporter(reporter AdminReporter) Option {
	return func(h *handlers) {
		h.reporter = reporter
	}
}

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot    botRunner
	logger *logrus.Entry
}

type handlers struct {
	publicURL string
	reporter  AdminReporter
	logger    *logrus.Entry
}

// NewClient initializes the Telegram bot with long polling, the /start and
// /admin commands, and a logging default handler.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	h := &handlers{
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(defaultHandler(logger)),
		bot.WithErrorsHandler(errorHandler(logger)),
		bot.WithMessageTextHandler("/start", bot.MatchTypeCommand, func(ctx context.Context, b *bot.Bot, update *models.Update) {
			h.handleStart(ctx, b, update)
		}),
		bot.WithMessageTextHandler("/admin", bot.MatchTypeCommand, func(ctx context.Context, b *bot.Bot, update *models.Update) {
			h.handleAdmin(ctx, b, update)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	return &Client{
		bot:    tgBot,
		logger: logger,
	}, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// panelURL points the invoker at their own user page.
func (h *handlers) panelURL(id int64) string {
	return fmt.Sprintf("%s/user?user_id=%d", h.publicURL, id)
}

func (h *handlers) handleStart(ctx context.Context, sender messageSender, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	meta := extractUpdateMeta(update)
	link := h.panelURL(meta.userID)

	h.send(ctx, sender, meta, &bot.SendMessageParams{
		ChatID: meta.chatID,
		Text:   welcomeText,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: openPanelText, WebApp: &models.WebAppInfo{URL: link}}},
				{{Text: openBrowserText, URL: link}},
			},
		},
	}, "start")
}

func (h *handlers) handleAdmin(ctx context.Context, sender messageSender, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	meta := extractUpdateMeta(update)
	text := failureText

	if h.reporter == nil {
		h.logger.WithField("event", "telegram_admin_unavailable").Warn("admin reporter is not configured")
	} else {
		report, err := h.reporter.Report(ctx, domain.UserID(meta.userID))
		if err != nil {
			meta.log(h.logger, "telegram_admin_failed").WithError(err).Error("failed to build admin report")
		} else {
			text = report.Reply()
		}
	}

	h.send(ctx, sender, meta, &bot.SendMessageParams{
		ChatID: meta.chatID,
		Text:   text,
	}, "admin")
}

func (h *handlers) send(ctx context.Context, sender messageSender, meta updateMeta, params *bot.SendMessageParams, command string) {
	if sender == nil {
		return
	}

	if _, err := sender.SendMessage(ctx, params); err != nil {
		meta.log(h.logger, "telegram_reply_failed").
			WithField("command", command).
			WithError(err).Error("failed to send telegram reply")
	}
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	updateType string
}

func defaultHandler(logger *logrus.Entry) bot.HandlerFunc {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		if update == nil {
			return
		}

		meta := extractUpdateMeta(update)

		entry := meta.log(logger, "telegram_update").WithField("update_type", meta.updateType)
		if meta.text != "" {
			entry = entry.WithField("text", meta.text)
		}

		entry.Info("telegram update received")
	}
}

// log tags base with the update's sender and chat.
func (m updateMeta) log(base *logrus.Entry, event string) *logrus.Entry {
	return logging.WithContext(base, logging.Context{
		UserID: m.userID,
		ChatID: m.chatID,
		Event:  event,
	})
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.EditedMessage != nil:
		return updateMeta{
			userID:     userID(update.EditedMessage.From),
			chatID:     chatID(&update.EditedMessage.Chat),
			text:       strings.TrimSpace(update.EditedMessage.Text),
			updateType: "edited_message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     userID(&update.CallbackQuery.From),
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			updateType: "callback_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}
