package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Riv33R/Support-bot/internal/connector"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// Config holds Telegram connector configuration.
type Config struct {
	Token       string       // Bot token from @BotFather
	AllowFrom   []int64      // Allowed Telegram user IDs (empty = allow all)
	Voice       *VoiceConfig // Optional voice transcription settings
	APIEndpoint string       // Bot API URL pattern, defaults to tgbotapi.APIEndpoint
}

// Connector implements connector.Connector for Telegram using long polling.
type Connector struct {
	bot     *tgbotapi.BotAPI
	config  Config
	handler connector.Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates a Telegram connector and verifies the token.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) (*Connector, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	// Long polling holds requests for up to 30s.
	client := &http.Client{Timeout: 60 * time.Second}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
// Updates are handled one at a time so a user's messages keep their order.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := c.bot.GetUpdatesChan(u)
	c.logger.Info("telegram connector started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			c.handleUpdate(ctx, update)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send renders one action as a new message.
func (c *Connector) Send(_ context.Context, action protocol.Action) error {
	return c.send(action, nil)
}

func (c *Connector) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

func (c *Connector) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || !c.allowed(cq.From) {
		return
	}

	// Stop the client's loading indicator whatever happens next.
	if _, err := c.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		c.logger.Warn("answer callback failed", "user_id", cq.From.ID, "error", err)
	}

	ev := eventFromCallback(cq)
	c.dispatch(ctx, ev, cq.Message)
}

func (c *Connector) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !c.allowed(msg.From) {
		return
	}

	ev, ok := eventFromMessage(msg)
	if !ok && (msg.Voice != nil || msg.Audio != nil) && c.config.Voice != nil && c.config.Voice.WhisperAPIKey != "" {
		text, err := c.transcribeVoice(ctx, msg)
		if err != nil {
			c.logger.Error("voice transcription failed", "chat_id", msg.Chat.ID, "error", err)
			c.reply(msg.Chat.ID, c.config.Voice.failedText())
			return
		}
		ev.Text = strings.TrimSpace(text)
		ok = ev.Text != ""
	}
	if !ok {
		return
	}

	c.bot.Send(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))
	c.dispatch(ctx, ev, nil)
}

// dispatch runs the handler and renders its actions. origin is the message
// a button press came from, if any.
func (c *Connector) dispatch(ctx context.Context, ev protocol.Event, origin *tgbotapi.Message) {
	actions := c.handler(ctx, ev)
	err := connector.Render(actions, func(a protocol.Action) error {
		return c.send(a, origin)
	})
	if err != nil {
		c.logger.Error("render actions failed", "user_id", ev.UserID, "kind", ev.Kind, "error", err)
	}
}

func (c *Connector) send(a protocol.Action, origin *tgbotapi.Message) error {
	if strings.TrimSpace(a.Text) == "" {
		c.logger.Warn("skipping empty message", "target", a.TargetID)
		return nil
	}
	msg, err := buildChattable(a, origin)
	if err != nil {
		return err
	}
	_, err = c.bot.Send(msg)
	return err
}

func (c *Connector) reply(chatID int64, text string) {
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		c.logger.Warn("send reply failed", "chat_id", chatID, "error", err)
	}
}

func (c *Connector) allowed(u *tgbotapi.User) bool {
	if len(c.config.AllowFrom) == 0 || slices.Contains(c.config.AllowFrom, u.ID) {
		return true
	}
	c.logger.Warn("unauthorized user", "user_id", u.ID, "username", u.UserName)
	return false
}

// eventFromMessage maps a chat message to an event. It reports false for
// unknown commands and for messages without text, such as stickers or
// untranscribed voice notes.
func eventFromMessage(msg *tgbotapi.Message) (protocol.Event, bool) {
	ev := protocol.Event{
		Channel:     "telegram",
		UserID:      strconv.FormatInt(msg.From.ID, 10),
		DisplayName: displayName(msg.From),
	}

	// Other commands are not for the desk and must never become ticket text.
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help", "menu":
			ev.Kind = protocol.EventStart
			return ev, true
		}
		return ev, false
	}

	ev.Kind = protocol.EventText
	ev.Text = msg.Text
	if ev.Text == "" {
		ev.Text = msg.Caption
	}
	return ev, strings.TrimSpace(ev.Text) != ""
}

func eventFromCallback(cq *tgbotapi.CallbackQuery) protocol.Event {
	return protocol.Event{
		Kind:        protocol.EventButton,
		Channel:     "telegram",
		UserID:      strconv.FormatInt(cq.From.ID, 10),
		DisplayName: displayName(cq.From),
		Token:       cq.Data,
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// buildChattable renders an action as a Bot API request. Text is sent
// without a parse mode so ticket bodies are shown verbatim.
func buildChattable(a protocol.Action, origin *tgbotapi.Message) (tgbotapi.Chattable, error) {
	chatID, err := strconv.ParseInt(a.TargetID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", a.TargetID, err)
	}

	if a.Kind == protocol.ActionEditPrevious && origin != nil && origin.Chat != nil && origin.Chat.ID == chatID {
		if len(a.Options) > 0 {
			return tgbotapi.NewEditMessageTextAndMarkup(chatID, origin.MessageID, a.Text, inlineKeyboard(a.Options)), nil
		}
		return tgbotapi.NewEditMessageText(chatID, origin.MessageID, a.Text), nil
	}

	msg := tgbotapi.NewMessage(chatID, a.Text)
	msg.DisableWebPagePreview = true
	if len(a.Options) > 0 {
		if a.Layout == protocol.LayoutReply {
			msg.ReplyMarkup = replyKeyboard(a.Options)
		} else {
			msg.ReplyMarkup = inlineKeyboard(a.Options)
		}
	}
	return msg, nil
}

func inlineKeyboard(opts []protocol.Option) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Token)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// replyKeyboard sends each option's label back as text when pressed.
func replyKeyboard(opts []protocol.Option) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(o.Label)))
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}
