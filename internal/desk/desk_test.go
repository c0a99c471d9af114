package desk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Riv33R/Support-bot/internal/access"
	"github.com/Riv33R/Support-bot/internal/conversation"
	"github.com/Riv33R/Support-bot/internal/events"
	"github.com/Riv33R/Support-bot/internal/ticket"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

const (
	agentID = "420825051"
	userID  = "555"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStore wraps a Store and fails writes while failWrites is set.
type failingStore struct {
	ticket.Store
	mu         sync.Mutex
	failWrites bool
	failReads  bool
}

func (f *failingStore) setFail(writes, reads bool) {
	f.mu.Lock()
	f.failWrites, f.failReads = writes, reads
	f.mu.Unlock()
}

func (f *failingStore) LoadAll() ([]protocol.Ticket, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return nil, ticket.ErrIOFailure
	}
	return f.Store.LoadAll()
}

func (f *failingStore) Append(t protocol.Ticket) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return ticket.ErrIOFailure
	}
	return f.Store.Append(t)
}

func (f *failingStore) Remove(id string) (bool, error) {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return false, ticket.ErrIOFailure
	}
	return f.Store.Remove(id)
}

// failingState fails every call.
type failingState struct{}

func (failingState) IsCapturing(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (failingState) SetCapturing(context.Context, string, bool) error {
	return errors.New("redis down")
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Type
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// notice is one message delivered through a recordingNotifier.
type notice struct {
	channel, user, text string
}

// recordingNotifier delivers to the channels listed in reachable and fails
// for any other.
type recordingNotifier struct {
	mu        sync.Mutex
	reachable map[string]bool
	sent      []notice
}

func (n *recordingNotifier) Notify(_ context.Context, channel, user, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.reachable[channel] {
		return fmt.Errorf("no connector for channel %q", channel)
	}
	n.sent = append(n.sent, notice{channel, user, text})
	return nil
}

func (n *recordingNotifier) notices() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.sent...)
}

type harness struct {
	engine   *Engine
	store    *failingStore
	state    *conversation.MemoryStore
	pub      *recordingPublisher
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := &failingStore{Store: ticket.NewFileStore(filepath.Join(t.TempDir(), "tickets.json"))}
	state := conversation.NewMemoryStore()
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{reachable: map[string]bool{"telegram": true, "slack": true}}
	e := New(store, state, access.New([]string{agentID}), Options{Events: pub, Notifier: notifier, Logger: testLogger()})
	return &harness{engine: e, store: store, state: state, pub: pub, notifier: notifier}
}

func (h *harness) text(user, name, body string) []protocol.Action {
	return h.textOn("telegram", user, name, body)
}

func (h *harness) textOn(channel, user, name, body string) []protocol.Action {
	return h.engine.Handle(context.Background(), protocol.Event{
		Kind: protocol.EventText, Channel: channel, UserID: user, DisplayName: name, Text: body,
	})
}

func (h *harness) button(user, token string) []protocol.Action {
	return h.engine.Handle(context.Background(), protocol.Event{
		Kind: protocol.EventButton, Channel: "telegram", UserID: user, Token: token,
	})
}

func (h *harness) tickets(t *testing.T) []protocol.Ticket {
	t.Helper()
	got, err := h.store.Store.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return got
}

func single(t *testing.T, actions []protocol.Action) protocol.Action {
	t.Helper()
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d: %+v", len(actions), actions)
	}
	return actions[0]
}

func TestStartMenu(t *testing.T) {
	h := newHarness(t)
	msgs := EnglishMessages()

	t.Run("agent gets inline menu", func(t *testing.T) {
		a := single(t, h.engine.Handle(context.Background(), protocol.Event{Kind: protocol.EventStart, UserID: agentID}))
		if a.Kind != protocol.ActionReplyWithMenu || a.Layout != protocol.LayoutInline {
			t.Fatalf("unexpected action %+v", a)
		}
		if len(a.Options) != 2 || a.Options[0].Token != protocol.TokenCreateTicket || a.Options[1].Token != protocol.TokenViewTickets {
			t.Errorf("unexpected options %+v", a.Options)
		}
	})

	t.Run("user gets reply keyboard", func(t *testing.T) {
		a := single(t, h.engine.Handle(context.Background(), protocol.Event{Kind: protocol.EventStart, UserID: userID}))
		if a.Kind != protocol.ActionReplyWithMenu || a.Layout != protocol.LayoutReply {
			t.Fatalf("unexpected action %+v", a)
		}
		if a.Options[0].Label != msgs.CreateLabel || a.Options[1].Label != msgs.ViewLabel {
			t.Errorf("unexpected labels %+v", a.Options)
		}
	})

	t.Run("start does not change state", func(t *testing.T) {
		if h.state.Len() != 0 {
			t.Errorf("start created state entries: %d", h.state.Len())
		}
	})
}

func TestDefaultCaptureForNewUser(t *testing.T) {
	h := newHarness(t)

	a := single(t, h.text(userID, "ivan", "My printer is on fire"))
	if a.Kind != protocol.ActionReplyText || a.Text != EnglishMessages().TicketSaved {
		t.Fatalf("unexpected ack %+v", a)
	}

	got := h.tickets(t)
	if len(got) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(got))
	}
	tk := got[0]
	if tk.Body != "My printer is on fire" || tk.SubmitterID != userID || tk.SubmitterName != "ivan" || tk.Channel != "telegram" {
		t.Errorf("unexpected ticket %+v", tk)
	}
	if tk.ID == "" || tk.CreatedAt.IsZero() {
		t.Errorf("ticket missing id or timestamp: %+v", tk)
	}
}

func TestStateResetsAfterCapture(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "ivan", "first problem")

	a := single(t, h.text(userID, "ivan", "hello?"))
	if a.Text != EnglishMessages().UseMenu {
		t.Errorf("expected use-menu reply, got %q", a.Text)
	}
	if n := len(h.tickets(t)); n != 1 {
		t.Errorf("expected 1 ticket, got %d", n)
	}
}

func TestCreateIntent(t *testing.T) {
	msgs := EnglishMessages()

	t.Run("literal text while idle", func(t *testing.T) {
		h := newHarness(t)
		h.text(userID, "ivan", "first")

		a := single(t, h.text(userID, "ivan", "  Create ticket "))
		if a.Kind != protocol.ActionReplyText || a.Text != msgs.TicketPrompt {
			t.Fatalf("unexpected prompt %+v", a)
		}
		h.text(userID, "ivan", "second")
		if n := len(h.tickets(t)); n != 2 {
			t.Errorf("expected 2 tickets, got %d", n)
		}
	})

	t.Run("labels match exactly", func(t *testing.T) {
		h := newHarness(t)
		h.text(userID, "ivan", "first")

		a := single(t, h.text(userID, "ivan", "create ticket"))
		if a.Text != msgs.UseMenu {
			t.Errorf("expected use-menu for a near miss, got %q", a.Text)
		}
		if c, _ := h.state.IsCapturing(context.Background(), userID); c {
			t.Error("near miss started capture")
		}
	})

	t.Run("button edits the menu message", func(t *testing.T) {
		h := newHarness(t)
		h.text(agentID, "sup", "agent's own ticket")

		a := single(t, h.button(agentID, protocol.TokenCreateTicket))
		if a.Kind != protocol.ActionEditPrevious || a.Text != msgs.TicketPrompt {
			t.Fatalf("unexpected action %+v", a)
		}
		if c, _ := h.state.IsCapturing(context.Background(), agentID); !c {
			t.Error("expected capturing after create button")
		}
	})

	t.Run("literal while capturing is not a ticket body", func(t *testing.T) {
		h := newHarness(t)
		a := single(t, h.text(userID, "ivan", msgs.CreateLabel))
		if a.Text != msgs.TicketPrompt {
			t.Errorf("expected prompt, got %q", a.Text)
		}
		if n := len(h.tickets(t)); n != 0 {
			t.Errorf("create label was stored as a ticket")
		}
	})

	t.Run("whitespace while capturing re-prompts", func(t *testing.T) {
		h := newHarness(t)
		a := single(t, h.text(userID, "ivan", "   "))
		if a.Text != msgs.TicketPrompt {
			t.Errorf("expected prompt, got %q", a.Text)
		}
		if n := len(h.tickets(t)); n != 0 {
			t.Errorf("blank text was stored as a ticket")
		}
	})
}

func TestAppendFailureKeepsCapturing(t *testing.T) {
	h := newHarness(t)
	h.store.setFail(true, false)

	a := single(t, h.text(userID, "ivan", "urgent issue"))
	if a.Text != EnglishMessages().TicketSaveFailed {
		t.Fatalf("expected save-failed reply, got %q", a.Text)
	}
	if c, _ := h.state.IsCapturing(context.Background(), userID); !c {
		t.Fatal("state advanced past a failed save")
	}

	h.store.setFail(false, false)
	a = single(t, h.text(userID, "ivan", "urgent issue"))
	if a.Text != EnglishMessages().TicketSaved {
		t.Fatalf("expected saved on retry, got %q", a.Text)
	}
	if n := len(h.tickets(t)); n != 1 {
		t.Errorf("expected 1 ticket after retry, got %d", n)
	}
}

func TestStateFailureReportsUnavailable(t *testing.T) {
	store := ticket.NewFileStore(filepath.Join(t.TempDir(), "tickets.json"))
	e := New(store, failingState{}, access.New([]string{agentID}), Options{Logger: testLogger()})

	a := single(t, e.Handle(context.Background(), protocol.Event{Kind: protocol.EventText, UserID: userID, Text: "help"}))
	if a.Text != EnglishMessages().Unavailable {
		t.Errorf("expected unavailable, got %q", a.Text)
	}
	a = single(t, e.Handle(context.Background(), protocol.Event{Kind: protocol.EventButton, UserID: userID, Token: protocol.TokenCreateTicket}))
	if a.Kind != protocol.ActionEditPrevious || a.Text != EnglishMessages().Unavailable {
		t.Errorf("unexpected action %+v", a)
	}
	if got, _ := store.LoadAll(); len(got) != 0 {
		t.Errorf("ticket created despite state failure")
	}
}

func TestViewTickets(t *testing.T) {
	msgs := EnglishMessages()

	t.Run("empty listing is explicit", func(t *testing.T) {
		h := newHarness(t)
		a := single(t, h.button(agentID, protocol.TokenViewTickets))
		if a.Kind != protocol.ActionEditPrevious || a.Text != msgs.NoTickets {
			t.Errorf("unexpected action %+v", a)
		}
	})

	t.Run("one menu per ticket", func(t *testing.T) {
		h := newHarness(t)
		h.text("u1", "alice", "laptop")
		h.text("u2", "", "mouse")

		actions := h.button(agentID, protocol.TokenViewTickets)
		if len(actions) != 2 {
			t.Fatalf("expected 2 actions, got %d", len(actions))
		}
		got := h.tickets(t)
		for i, a := range actions {
			if a.Kind != protocol.ActionReplyWithMenu || a.TargetID != agentID || a.Layout != protocol.LayoutInline {
				t.Errorf("action %d: unexpected %+v", i, a)
			}
			if a.Options[0].Token != protocol.ContactToken(got[i].ID) || a.Options[1].Token != protocol.ResolveToken(got[i].ID) {
				t.Errorf("action %d: unexpected tokens %+v", i, a.Options)
			}
		}
		want := "Ticket from alice (u1):\nContent: laptop"
		if actions[0].Text != want {
			t.Errorf("summary = %q, want %q", actions[0].Text, want)
		}
		if actions[1].Text != "Ticket from u2 (u2):\nContent: mouse" {
			t.Errorf("fallback summary = %q", actions[1].Text)
		}
	})

	t.Run("non-agent is denied", func(t *testing.T) {
		h := newHarness(t)
		a := single(t, h.button(userID, protocol.TokenViewTickets))
		if a.Text != msgs.AccessDenied {
			t.Errorf("expected access denied, got %q", a.Text)
		}
	})

	t.Run("view label text while idle", func(t *testing.T) {
		h := newHarness(t)
		h.state.SetCapturing(context.Background(), userID, false)
		h.state.SetCapturing(context.Background(), agentID, false)

		a := single(t, h.text(userID, "ivan", msgs.ViewLabel))
		if a.Kind != protocol.ActionReplyText || a.Text != msgs.AccessDenied {
			t.Errorf("unexpected action %+v", a)
		}
		a = single(t, h.text(agentID, "sup", msgs.ViewLabel))
		if a.Kind != protocol.ActionReplyText || a.Text != msgs.NoTickets {
			t.Errorf("unexpected agent action %+v", a)
		}
		if n := len(h.tickets(t)); n != 0 {
			t.Errorf("view label was stored as a ticket")
		}
	})

	t.Run("view label text while capturing is a ticket body", func(t *testing.T) {
		h := newHarness(t)
		for _, body := range []string{msgs.ViewLabel, "view tickets"} {
			a := single(t, h.text(body, "new", body))
			if a.Text != msgs.TicketSaved {
				t.Errorf("%q: expected ticket saved, got %q", body, a.Text)
			}
		}
		got := h.tickets(t)
		if len(got) != 2 || got[0].Body != msgs.ViewLabel || got[1].Body != "view tickets" {
			t.Errorf("unexpected tickets %+v", got)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(t)
		h.store.setFail(false, true)
		a := single(t, h.button(agentID, protocol.TokenViewTickets))
		if a.Text != msgs.Unavailable {
			t.Errorf("expected unavailable, got %q", a.Text)
		}
	})
}

func TestContact(t *testing.T) {
	msgs := EnglishMessages()
	h := newHarness(t)
	h.text(userID, "ivan", "call me")
	id := h.tickets(t)[0].ID

	a := single(t, h.button(agentID, protocol.ContactToken(id)))
	if a.Kind != protocol.ActionEditPrevious || a.TargetID != agentID || a.Text != msgs.ContactSent {
		t.Errorf("unexpected confirmation %+v", a)
	}
	sent := h.notifier.notices()
	if len(sent) != 1 || sent[0] != (notice{"telegram", userID, msgs.ContactNotice}) {
		t.Fatalf("unexpected notices %+v", sent)
	}

	// No dedup: a second press notifies again.
	h.button(agentID, protocol.ContactToken(id))
	if n := len(h.notifier.notices()); n != 2 {
		t.Errorf("second contact sent %d notices in total", n)
	}
	if n := len(h.tickets(t)); n != 1 {
		t.Errorf("contact must not mutate the store")
	}

	a = single(t, h.button(agentID, protocol.ContactToken("missing")))
	if a.Text != msgs.TicketNotFound {
		t.Errorf("expected not found, got %q", a.Text)
	}
}

func TestContactReachesSubmitterOnTheirChannel(t *testing.T) {
	h := newHarness(t)
	h.textOn("slack", "U0SLACK", "bob", "slack is slow")
	id := h.tickets(t)[0].ID

	// The agent works from Telegram.
	a := single(t, h.button(agentID, protocol.ContactToken(id)))
	if a.Text != EnglishMessages().ContactSent {
		t.Fatalf("unexpected confirmation %+v", a)
	}
	sent := h.notifier.notices()
	if len(sent) != 1 || sent[0].channel != "slack" || sent[0].user != "U0SLACK" {
		t.Errorf("notice went to %+v, want slack/U0SLACK", sent)
	}
}

func TestContactDeliveryFailure(t *testing.T) {
	msgs := EnglishMessages()
	h := newHarness(t)
	h.textOn("webhook:portal", "webhook:portal:u1", "eve", "no push channel")
	id := h.tickets(t)[0].ID

	a := single(t, h.button(agentID, protocol.ContactToken(id)))
	if a.Kind != protocol.ActionEditPrevious || a.Text != msgs.ContactFailed {
		t.Fatalf("expected delivery failure, got %+v", a)
	}
	for _, typ := range h.pub.types() {
		if typ == events.TicketContacted {
			t.Error("contacted event published for an undelivered notice")
		}
	}

	store := ticket.NewFileStore(filepath.Join(t.TempDir(), "tickets.json"))
	store.Append(protocol.NewTicket(userID, "ivan", "x"))
	tickets, _ := store.LoadAll()
	e := New(store, conversation.NewMemoryStore(), access.New([]string{agentID}), Options{Logger: testLogger()})
	a = single(t, e.Handle(context.Background(), protocol.Event{
		Kind: protocol.EventButton, UserID: agentID, Token: protocol.ContactToken(tickets[0].ID),
	}))
	if a.Text != msgs.ContactFailed {
		t.Errorf("engine without notifier: got %q", a.Text)
	}
}

func TestResolve(t *testing.T) {
	msgs := EnglishMessages()
	h := newHarness(t)
	h.text(userID, "ivan", "fix it")
	id := h.tickets(t)[0].ID

	a := single(t, h.button(agentID, protocol.ResolveToken(id)))
	if a.Kind != protocol.ActionEditPrevious || a.Text != msgs.TicketResolved {
		t.Fatalf("unexpected action %+v", a)
	}
	if n := len(h.tickets(t)); n != 0 {
		t.Errorf("ticket still present after resolve")
	}

	a = single(t, h.button(agentID, protocol.ResolveToken(id)))
	if a.Text != msgs.TicketNotFound {
		t.Errorf("second resolve: expected not found, got %q", a.Text)
	}

	want := []events.Type{events.TicketCreated, events.TicketResolved}
	got := h.pub.types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("published %v, want %v", got, want)
	}
}

func TestResolveStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "ivan", "fix it")
	id := h.tickets(t)[0].ID

	h.store.setFail(true, false)
	a := single(t, h.button(agentID, protocol.ResolveToken(id)))
	if a.Text != EnglishMessages().Unavailable {
		t.Errorf("expected unavailable, got %q", a.Text)
	}
	if n := len(h.tickets(t)); n != 1 {
		t.Errorf("ticket lost on failed resolve")
	}
}

func TestNonAgentCannotDispatch(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "ivan", "mine")
	id := h.tickets(t)[0].ID
	before := len(h.pub.types())

	for _, token := range []string{protocol.TokenViewTickets, protocol.ContactToken(id), protocol.ResolveToken(id)} {
		actions := h.button(userID, token)
		a := single(t, actions)
		if a.Text != EnglishMessages().AccessDenied || a.TargetID != userID {
			t.Errorf("%s: unexpected action %+v", token, a)
		}
		if a.Kind == protocol.ActionDirectMessage {
			t.Errorf("%s: non-agent triggered a notification", token)
		}
	}
	if n := len(h.tickets(t)); n != 1 {
		t.Errorf("non-agent mutated the store")
	}
	if n := len(h.pub.types()); n != before {
		t.Errorf("non-agent produced lifecycle events")
	}
	if n := len(h.notifier.notices()); n != 0 {
		t.Errorf("non-agent triggered %d notices", n)
	}
}

func TestDispatcherErrors(t *testing.T) {
	store := ticket.NewFileStore(filepath.Join(t.TempDir(), "tickets.json"))
	d := NewDispatcher(store, access.New([]string{agentID}))

	if _, err := d.List(userID); !errors.Is(err, ErrForbidden) {
		t.Errorf("List: expected ErrForbidden, got %v", err)
	}
	if _, err := d.Contact(userID, "x"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Contact: expected ErrForbidden, got %v", err)
	}
	if err := d.Resolve(userID, "x"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Resolve: expected ErrForbidden, got %v", err)
	}

	listing, err := d.List(agentID)
	if err != nil || !listing.Empty() {
		t.Errorf("List on empty store = (%+v, %v)", listing, err)
	}
	if _, err := d.Contact(agentID, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Contact: expected ErrNotFound, got %v", err)
	}
	if err := d.Resolve(agentID, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve: expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentResolveExactlyOnce(t *testing.T) {
	store := ticket.NewFileStore(filepath.Join(t.TempDir(), "tickets.json"))
	d := NewDispatcher(store, access.New([]string{"a1", "a2"}))
	tk := protocol.NewTicket(userID, "ivan", "race")
	store.Append(tk)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, agent := range []string{"a1", "a2"} {
		wg.Add(1)
		go func(i int, agent string) {
			defer wg.Done()
			errs[i] = d.Resolve(agent, tk.ID)
		}(i, agent)
	}
	wg.Wait()

	ok, notFound := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || notFound != 1 {
		t.Errorf("got %d successes and %d not-found, want 1 and 1", ok, notFound)
	}
	if got, _ := store.LoadAll(); len(got) != 0 {
		t.Errorf("ticket survived concurrent resolve")
	}
}

func TestConcurrentUsersCreateUniqueTickets(t *testing.T) {
	h := newHarness(t)
	const n = 30

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := string(rune('A'+i%26)) + string(rune('0'+i/26))
			h.text(user, "", "problem")
		}(i)
	}
	wg.Wait()

	got := h.tickets(t)
	if len(got) != n {
		t.Fatalf("expected %d tickets, got %d", n, len(got))
	}
	seen := make(map[string]bool)
	for _, tk := range got {
		if seen[tk.ID] {
			t.Errorf("duplicate ticket id %s", tk.ID)
		}
		seen[tk.ID] = true
	}
}

func TestSameUserRacingMessagesCreateOneTicket(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.text(userID, "ivan", "double send")
		}()
	}
	wg.Wait()

	if n := len(h.tickets(t)); n != 1 {
		t.Errorf("expected 1 ticket from racing messages, got %d", n)
	}
}

func TestUnknownInputs(t *testing.T) {
	h := newHarness(t)
	msgs := EnglishMessages()

	a := single(t, h.button(agentID, "explode_now"))
	if a.Text != msgs.UnknownAction {
		t.Errorf("unknown token: got %q", a.Text)
	}
	a = single(t, h.engine.Handle(context.Background(), protocol.Event{Kind: "sticker", UserID: userID}))
	if a.Text != msgs.UnknownAction {
		t.Errorf("unknown kind: got %q", a.Text)
	}
	if actions := h.engine.Handle(context.Background(), protocol.Event{Kind: protocol.EventText, Text: "x"}); actions != nil {
		t.Errorf("event without user produced %+v", actions)
	}
}

func TestMessagesOverride(t *testing.T) {
	store := ticket.NewFileStore(filepath.Join(t.TempDir(), "tickets.json"))
	ru := RussianMessages()
	e := New(store, conversation.NewMemoryStore(), access.New(nil), Options{
		Messages: Messages{TicketSaved: "Принято"}.WithDefaults(ru),
		Logger:   testLogger(),
	})

	a := single(t, e.Handle(context.Background(), protocol.Event{Kind: protocol.EventText, UserID: userID, Text: "Создать тикет"}))
	if a.Text != ru.TicketPrompt {
		t.Errorf("russian create label not recognised: %q", a.Text)
	}
	a = single(t, e.Handle(context.Background(), protocol.Event{Kind: protocol.EventText, UserID: userID, Text: "не работает"}))
	if a.Text != "Принято" {
		t.Errorf("override not applied: %q", a.Text)
	}
}

func TestLocaleMessages(t *testing.T) {
	if m, err := LocaleMessages(""); err != nil || m.CreateLabel != "Create ticket" {
		t.Errorf("default locale = (%q, %v)", m.CreateLabel, err)
	}
	if m, err := LocaleMessages("ru"); err != nil || m.CreateLabel != "Создать тикет" {
		t.Errorf("ru locale = (%q, %v)", m.CreateLabel, err)
	}
	if _, err := LocaleMessages("fr"); err == nil {
		t.Error("expected error for unsupported locale")
	}
}
