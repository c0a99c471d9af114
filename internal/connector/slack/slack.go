package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/Riv33R/Support-bot/internal/connector"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// maxSectionText is Slack's limit, in characters, for a section block's text.
const maxSectionText = 3000

// Config holds Slack connector configuration.
type Config struct {
	BotToken     string // xoxb-... Bot User OAuth Token
	AppToken     string // xapp-... App-Level Token (for Socket Mode)
	StartCommand string // slash command that opens the menu; empty accepts any
	APIURL       string // Web API base URL override, mainly for tests
}

// Connector implements connector.Connector for Slack via Socket Mode.
type Connector struct {
	api     *slack.Client
	socket  *socketmode.Client
	config  Config
	handler connector.Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string

	mu    sync.Mutex
	names map[string]string // user id → display name
}

// origin is the message a button was clicked on.
type origin struct {
	channel string
	ts      string
}

// New creates a Slack connector and verifies the bot token.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}

	if logger == nil {
		logger = slog.Default()
	}

	opts := []slack.Option{slack.OptionAppLevelToken(cfg.AppToken)}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	api := slack.New(cfg.BotToken, opts...)

	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	return &Connector{
		api:     api,
		socket:  socketmode.New(api),
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
		names:   make(map[string]string),
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events via Socket Mode. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send renders one action as a new message.
func (c *Connector) Send(ctx context.Context, action protocol.Action) error {
	return c.send(ctx, action, nil)
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			switch event.Type {
			case socketmode.EventTypeEventsAPI:
				c.handleEventsAPI(ctx, event)
			case socketmode.EventTypeSlashCommand:
				c.handleSlashCommand(ctx, event)
			case socketmode.EventTypeInteractive:
				c.handleInteractive(ctx, event)
			}
		}
	}
}

func (c *Connector) handleEventsAPI(ctx context.Context, event socketmode.Event) {
	eventsAPIEvent, ok := event.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	c.socket.Ack(*event.Request)

	var (
		ev      protocol.Event
		handled bool
	)
	switch inner := eventsAPIEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		ev, handled = eventFromMessage(inner, c.botID)
	case *slackevents.AppMentionEvent:
		ev, handled = eventFromMention(inner, c.botID)
	}
	if !handled {
		return
	}
	ev.DisplayName = c.displayName(ctx, ev.UserID)
	c.dispatch(ctx, ev, nil)
}

func (c *Connector) handleSlashCommand(ctx context.Context, event socketmode.Event) {
	cmd, ok := event.Data.(slack.SlashCommand)
	if !ok {
		return
	}
	c.socket.Ack(*event.Request)

	if c.config.StartCommand != "" && cmd.Command != c.config.StartCommand {
		c.logger.Debug("ignoring slash command", "command", cmd.Command)
		return
	}
	c.dispatch(ctx, protocol.Event{
		Kind:        protocol.EventStart,
		Channel:     "slack",
		UserID:      cmd.UserID,
		DisplayName: cmd.UserName,
	}, nil)
}

func (c *Connector) handleInteractive(ctx context.Context, event socketmode.Event) {
	cb, ok := event.Data.(slack.InteractionCallback)
	if !ok {
		return
	}
	c.socket.Ack(*event.Request)

	ev, ok := eventFromBlockAction(cb)
	if !ok {
		return
	}
	c.dispatch(ctx, ev, &origin{channel: cb.Container.ChannelID, ts: cb.Container.MessageTs})
}

func (c *Connector) dispatch(ctx context.Context, ev protocol.Event, from *origin) {
	actions := c.handler(ctx, ev)
	err := connector.Render(actions, func(a protocol.Action) error {
		return c.send(ctx, a, from)
	})
	if err != nil {
		c.logger.Error("render actions failed", "user", ev.UserID, "kind", ev.Kind, "error", err)
	}
}

// send posts an action. Targets are user ids, which Slack resolves to the
// bot's direct message channel with that user.
func (c *Connector) send(ctx context.Context, a protocol.Action, from *origin) error {
	if strings.TrimSpace(a.Text) == "" {
		return nil
	}
	opts := []slack.MsgOption{
		slack.MsgOptionText(a.Text, false),
		slack.MsgOptionBlocks(buildBlocks(a)...),
	}

	if a.Kind == protocol.ActionEditPrevious && from != nil && from.ts != "" {
		if _, _, _, err := c.api.UpdateMessageContext(ctx, from.channel, from.ts, opts...); err != nil {
			return fmt.Errorf("slack: update message: %w", err)
		}
		return nil
	}

	if _, _, err := c.api.PostMessageContext(ctx, a.TargetID, opts...); err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// displayName looks up and caches a user's display name. Lookup failures
// leave the name empty.
func (c *Connector) displayName(ctx context.Context, userID string) string {
	c.mu.Lock()
	name, ok := c.names[userID]
	c.mu.Unlock()
	if ok {
		return name
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		c.logger.Debug("user lookup failed", "user", userID, "error", err)
		return ""
	}
	name = user.Profile.DisplayName
	if name == "" {
		name = user.Name
	}

	c.mu.Lock()
	c.names[userID] = name
	c.mu.Unlock()
	return name
}

// eventFromMessage maps a direct message to a text event. Channel chatter,
// bot messages and edits are ignored.
func eventFromMessage(ev *slackevents.MessageEvent, botID string) (protocol.Event, bool) {
	if ev.BotID != "" || ev.User == "" || ev.User == botID || ev.SubType != "" {
		return protocol.Event{}, false
	}
	if ev.ChannelType != "im" || strings.TrimSpace(ev.Text) == "" {
		return protocol.Event{}, false
	}
	return protocol.Event{Kind: protocol.EventText, Channel: "slack", UserID: ev.User, Text: ev.Text}, true
}

func eventFromMention(ev *slackevents.AppMentionEvent, botID string) (protocol.Event, bool) {
	if ev.User == "" || ev.User == botID {
		return protocol.Event{}, false
	}
	text := StripMention(ev.Text, botID)
	if text == "" {
		return protocol.Event{Kind: protocol.EventStart, Channel: "slack", UserID: ev.User}, true
	}
	return protocol.Event{Kind: protocol.EventText, Channel: "slack", UserID: ev.User, Text: text}, true
}

func eventFromBlockAction(cb slack.InteractionCallback) (protocol.Event, bool) {
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return protocol.Event{}, false
	}
	action := cb.ActionCallback.BlockActions[0]
	token := action.Value
	if token == "" {
		token = action.ActionID
	}
	return protocol.Event{
		Kind:        protocol.EventButton,
		Channel:     "slack",
		UserID:      cb.User.ID,
		DisplayName: cb.User.Name,
		Token:       token,
	}, true
}

// buildBlocks renders an action as a section with one button per option.
// Slack has no reply keyboard, so both layouts become buttons.
func buildBlocks(a protocol.Action) []slack.Block {
	text := a.Text
	if r := []rune(text); len(r) > maxSectionText {
		text = string(r[:maxSectionText-1]) + "…"
	}
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.PlainTextType, text, false, false), nil, nil),
	}
	if len(a.Options) == 0 {
		return blocks
	}

	buttons := make([]slack.BlockElement, 0, len(a.Options))
	for _, o := range a.Options {
		buttons = append(buttons, slack.NewButtonBlockElement(o.Token, o.Token,
			slack.NewTextBlockObject(slack.PlainTextType, o.Label, false, false)))
	}
	return append(blocks, slack.NewActionBlock("", buttons...))
}

// StripMention removes the <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	text = strings.Replace(text, mention, "", 1)
	return strings.TrimSpace(text)
}
