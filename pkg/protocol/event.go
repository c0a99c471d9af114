package protocol

// EventKind identifies the kind of inbound event a transport delivers.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventText   EventKind = "text"
	EventButton EventKind = "button"
)

// Event is an inbound message from a transport, already reduced to the
// three shapes the desk understands.
type Event struct {
	Kind        EventKind `json:"type"`
	Channel     string    `json:"channel,omitempty"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Text        string    `json:"text,omitempty"`
	Token       string    `json:"token,omitempty"`
}

// ActionKind identifies how a transport should render an outbound action.
type ActionKind string

const (
	ActionReplyText     ActionKind = "reply_text"
	ActionReplyWithMenu ActionKind = "reply_with_menu"
	ActionEditPrevious  ActionKind = "edit_previous"
	ActionDirectMessage ActionKind = "direct_message"
)

// Layout tells the transport how menu options are presented.
type Layout string

const (
	// LayoutInline attaches buttons to the message; pressing one produces
	// an EventButton carrying the option's token.
	LayoutInline Layout = "inline"
	// LayoutReply replaces the user's keyboard; pressing a key sends its
	// label back as plain text.
	LayoutReply Layout = "reply"
)

// Option is one selectable control in a menu.
type Option struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Action is an outbound instruction produced by the desk.
type Action struct {
	Kind     ActionKind `json:"kind"`
	TargetID string     `json:"target_id"`
	Text     string     `json:"text"`
	Options  []Option   `json:"options,omitempty"`
	Layout   Layout     `json:"layout,omitempty"`
}

// ReplyText answers the sender with plain text.
func ReplyText(target, text string) Action {
	return Action{Kind: ActionReplyText, TargetID: target, Text: text}
}

// ReplyWithMenu answers the sender with text and navigation controls.
func ReplyWithMenu(target, text string, layout Layout, opts ...Option) Action {
	return Action{Kind: ActionReplyWithMenu, TargetID: target, Text: text, Options: opts, Layout: layout}
}

// EditPrevious rewrites the message whose button produced the event.
func EditPrevious(target, text string, opts ...Option) Action {
	a := Action{Kind: ActionEditPrevious, TargetID: target, Text: text, Options: opts}
	if len(opts) > 0 {
		a.Layout = LayoutInline
	}
	return a
}

// DirectMessage sends an unsolicited message to target.
func DirectMessage(target, text string) Action {
	return Action{Kind: ActionDirectMessage, TargetID: target, Text: text}
}
