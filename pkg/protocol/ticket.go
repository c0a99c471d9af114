package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ticket is a support request recorded from an end user.
//
// The JSON field names follow the tickets.json layout the bot has always
// written, so files produced by older deployments load unchanged.
type Ticket struct {
	ID            string      `json:"id"`
	SubmitterID   SubmitterID `json:"user"`
	SubmitterName string      `json:"username"`
	Body          string      `json:"message"`
	Channel       string      `json:"channel,omitempty"`
	CreatedAt     time.Time   `json:"created_at,omitzero"`
}

// NewTicket builds a ticket with a freshly generated ID.
func NewTicket(submitterID, submitterName, body string) Ticket {
	return Ticket{
		ID:            NewTicketID(),
		SubmitterID:   SubmitterID(submitterID),
		SubmitterName: submitterName,
		Body:          body,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewTicketID returns a random UUID. UUIDs only contain hex digits and
// hyphens, so they never collide with TokenDelimiter.
func NewTicketID() string {
	id := uuid.NewString()
	if strings.Contains(id, TokenDelimiter) {
		panic(fmt.Sprintf("protocol: generated ticket id %q contains token delimiter", id))
	}
	return id
}

// DisplayName returns the submitter label, falling back to the raw ID.
func (t Ticket) DisplayName() string {
	if t.SubmitterName != "" {
		return t.SubmitterName
	}
	return string(t.SubmitterID)
}

// SubmitterID is a user identity. Legacy records stored Telegram user IDs as
// JSON numbers, so it decodes from either a string or a number.
type SubmitterID string

func (s *SubmitterID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SubmitterID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("protocol: submitter id must be a string or number: %w", err)
	}
	*s = SubmitterID(n.String())
	return nil
}

func (s SubmitterID) String() string { return string(s) }
