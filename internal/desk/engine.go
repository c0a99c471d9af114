package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Riv33R/Support-bot/internal/access"
	"github.com/Riv33R/Support-bot/internal/conversation"
	"github.com/Riv33R/Support-bot/internal/events"
	"github.com/Riv33R/Support-bot/internal/ticket"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// Notifier delivers a message to a user on the channel they wrote from.
// connector.Registry implements it.
type Notifier interface {
	Notify(ctx context.Context, channel, userID, text string) error
}

// Options configures optional Engine collaborators.
type Options struct {
	Messages Messages         // zero fields fall back to English
	Events   events.Publisher // nil discards lifecycle events
	Notifier Notifier         // nil makes every contact attempt fail
	Logger   *slog.Logger
}

// Engine interprets inbound events against the sender's conversation state
// and the ticket store, and returns the actions a transport should render.
type Engine struct {
	store    ticket.Store
	state    conversation.Store
	policy   *access.Policy
	dispatch *Dispatcher
	locks    *conversation.KeyedMutex
	msgs     Messages
	events   events.Publisher
	notifier Notifier
	logger   *slog.Logger
}

// New creates an engine.
func New(store ticket.Store, state conversation.Store, policy *access.Policy, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	return &Engine{
		store:    store,
		state:    state,
		policy:   policy,
		dispatch: NewDispatcher(store, policy),
		locks:    conversation.NewKeyedMutex(),
		msgs:     opts.Messages.WithDefaults(EnglishMessages()),
		events:   opts.Events,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// Messages returns the texts the engine replies with.
func (e *Engine) Messages() Messages { return e.msgs }

// Handle processes one inbound event. Events from the same user are
// handled one at a time; different users proceed in parallel. Every failure
// is reported to the sender as a message, so Handle has no error result.
func (e *Engine) Handle(ctx context.Context, ev protocol.Event) []protocol.Action {
	if ev.UserID == "" {
		e.logger.Warn("dropping event without user id", "kind", ev.Kind, "channel", ev.Channel)
		return nil
	}

	unlock := e.locks.Lock(ev.UserID)
	defer unlock()

	switch ev.Kind {
	case protocol.EventStart:
		return e.handleStart(ev)
	case protocol.EventText:
		return e.handleText(ctx, ev)
	case protocol.EventButton:
		return e.handleButton(ctx, ev)
	default:
		e.logger.Warn("unknown event kind", "kind", ev.Kind, "user", ev.UserID)
		return []protocol.Action{protocol.ReplyText(ev.UserID, e.msgs.UnknownAction)}
	}
}

func (e *Engine) handleStart(ev protocol.Event) []protocol.Action {
	create := protocol.Option{Label: e.msgs.CreateLabel, Token: protocol.TokenCreateTicket}
	view := protocol.Option{Label: e.msgs.ViewLabel, Token: protocol.TokenViewTickets}

	layout := protocol.LayoutReply
	if e.policy.IsAgent(ev.UserID) {
		layout = protocol.LayoutInline
	}
	return []protocol.Action{protocol.ReplyWithMenu(ev.UserID, e.msgs.MenuPrompt, layout, create, view)}
}

func (e *Engine) handleText(ctx context.Context, ev protocol.Event) []protocol.Action {
	user := ev.UserID
	text := strings.TrimSpace(ev.Text)

	capturing, err := e.state.IsCapturing(ctx, user)
	if err != nil {
		e.logger.Error("read conversation state failed", "user", user, "error", err)
		return []protocol.Action{protocol.ReplyText(user, e.msgs.Unavailable)}
	}

	// While capturing, any text is the ticket body. The create label is the
	// one exception: pressing it again only repeats the prompt.
	if capturing {
		if text == "" || text == e.msgs.CreateLabel {
			return []protocol.Action{protocol.ReplyText(user, e.msgs.TicketPrompt)}
		}
		return e.captureTicket(ctx, ev)
	}

	// Reply keyboards send their labels back as text.
	switch text {
	case e.msgs.CreateLabel:
		if err := e.state.SetCapturing(ctx, user, true); err != nil {
			e.logger.Error("write conversation state failed", "user", user, "error", err)
			return []protocol.Action{protocol.ReplyText(user, e.msgs.Unavailable)}
		}
		return []protocol.Action{protocol.ReplyText(user, e.msgs.TicketPrompt)}
	case e.msgs.ViewLabel:
		return e.view(ev, false)
	default:
		return []protocol.Action{protocol.ReplyText(user, e.msgs.UseMenu)}
	}
}

// captureTicket stores ev.Text as a new ticket. On failure the user stays in
// capture mode so that resending the text creates the ticket.
func (e *Engine) captureTicket(ctx context.Context, ev protocol.Event) []protocol.Action {
	t := protocol.NewTicket(ev.UserID, ev.DisplayName, ev.Text)
	t.Channel = ev.Channel

	if err := e.store.Append(t); err != nil {
		e.logger.Error("save ticket failed", "user", ev.UserID, "ticket", t.ID, "error", err)
		return []protocol.Action{protocol.ReplyText(ev.UserID, e.msgs.TicketSaveFailed)}
	}
	e.logger.Info("ticket created", "ticket", t.ID, "user", ev.UserID, "channel", ev.Channel)

	if err := e.state.SetCapturing(ctx, ev.UserID, false); err != nil {
		// The ticket is stored; the user may only end up filing a second one.
		e.logger.Warn("reset capture state failed", "user", ev.UserID, "error", err)
	}

	e.publish(ctx, events.Event{
		Type:        events.TicketCreated,
		TicketID:    t.ID,
		SubmitterID: ev.UserID,
		Channel:     ev.Channel,
	})
	return []protocol.Action{protocol.ReplyText(ev.UserID, e.msgs.TicketSaved)}
}

func (e *Engine) handleButton(ctx context.Context, ev protocol.Event) []protocol.Action {
	user := ev.UserID
	verb, ticketID := protocol.ParseToken(ev.Token)

	switch verb {
	case protocol.VerbCreateTicket:
		if err := e.state.SetCapturing(ctx, user, true); err != nil {
			e.logger.Error("write conversation state failed", "user", user, "error", err)
			return []protocol.Action{protocol.EditPrevious(user, e.msgs.Unavailable)}
		}
		return []protocol.Action{protocol.EditPrevious(user, e.msgs.TicketPrompt)}

	case protocol.VerbViewTickets:
		return e.view(ev, true)

	case protocol.VerbContact:
		t, err := e.dispatch.Contact(user, ticketID)
		if err != nil {
			return []protocol.Action{protocol.EditPrevious(user, e.failureText("contact", user, ticketID, err))}
		}
		if err := e.notify(ctx, t); err != nil {
			e.logger.Error("contact submitter failed", "ticket", t.ID, "agent", user,
				"submitter", t.SubmitterID, "channel", t.Channel, "error", err)
			return []protocol.Action{protocol.EditPrevious(user, e.msgs.ContactFailed)}
		}
		e.logger.Info("submitter contacted", "ticket", t.ID, "agent", user, "submitter", t.SubmitterID)
		e.publish(ctx, events.Event{
			Type:        events.TicketContacted,
			TicketID:    t.ID,
			SubmitterID: string(t.SubmitterID),
			AgentID:     user,
			Channel:     t.Channel,
		})
		return []protocol.Action{protocol.EditPrevious(user, e.msgs.ContactSent)}

	case protocol.VerbResolve:
		if err := e.dispatch.Resolve(user, ticketID); err != nil {
			return []protocol.Action{protocol.EditPrevious(user, e.failureText("resolve", user, ticketID, err))}
		}
		e.logger.Info("ticket resolved", "ticket", ticketID, "agent", user)
		e.publish(ctx, events.Event{
			Type:     events.TicketResolved,
			TicketID: ticketID,
			AgentID:  user,
		})
		return []protocol.Action{protocol.EditPrevious(user, e.msgs.TicketResolved)}

	default:
		e.logger.Warn("unknown action token", "user", user, "token", ev.Token)
		return []protocol.Action{protocol.ReplyText(user, e.msgs.UnknownAction)}
	}
}

// view lists open tickets for an agent. A button press answers by editing
// the menu message; typed text answers with a new message.
func (e *Engine) view(ev protocol.Event, viaButton bool) []protocol.Action {
	user := ev.UserID
	respond := func(text string) []protocol.Action {
		if viaButton {
			return []protocol.Action{protocol.EditPrevious(user, text)}
		}
		return []protocol.Action{protocol.ReplyText(user, text)}
	}

	listing, err := e.dispatch.List(user)
	if err != nil {
		return respond(e.failureText("list", user, "", err))
	}
	if listing.Empty() {
		return respond(e.msgs.NoTickets)
	}

	actions := make([]protocol.Action, 0, len(listing.Summaries))
	for _, s := range listing.Summaries {
		actions = append(actions, protocol.ReplyWithMenu(user, e.summaryText(s.Ticket), protocol.LayoutInline,
			protocol.Option{Label: e.msgs.ContactLabel, Token: s.ContactToken},
			protocol.Option{Label: e.msgs.ResolveLabel, Token: s.ResolveToken},
		))
	}
	return actions
}

func (e *Engine) summaryText(t protocol.Ticket) string {
	return fmt.Sprintf("%s %s (%s):\n%s: %s", e.msgs.TicketFrom, t.DisplayName(), t.SubmitterID, e.msgs.ContentLabel, t.Body)
}

// failureText maps a dispatch error to the reply shown to the requester.
func (e *Engine) failureText(op, user, ticketID string, err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		e.logger.Warn("agent operation denied", "op", op, "user", user)
		return e.msgs.AccessDenied
	case errors.Is(err, ErrNotFound):
		e.logger.Info("ticket not found", "op", op, "user", user, "ticket", ticketID)
		return e.msgs.TicketNotFound
	default:
		e.logger.Error("dispatch failed", "op", op, "user", user, "ticket", ticketID, "error", err)
		return e.msgs.Unavailable
	}
}

// notify reaches the submitter through the connector their ticket came in
// on, which need not be the one serving the agent.
func (e *Engine) notify(ctx context.Context, t protocol.Ticket) error {
	if e.notifier == nil {
		return errors.New("desk: no notifier configured")
	}
	return e.notifier.Notify(ctx, t.Channel, string(t.SubmitterID), e.msgs.ContactNotice)
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	ev.Time = time.Now().UTC()
	if err := e.events.Publish(ctx, ev); err != nil {
		e.logger.Warn("publish lifecycle event failed", "event", ev.Type, "ticket", ev.TicketID, "error", err)
	}
}
