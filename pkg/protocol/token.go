package protocol

import "strings"

// TokenDelimiter separates an action verb from the ticket ID it refers to.
const TokenDelimiter = "_"

// Action tokens understood by the desk.
const (
	TokenCreateTicket = "create_ticket"
	TokenViewTickets  = "view_tickets"

	verbContact = "contact"
	verbResolve = "resolve"
)

// TokenVerb classifies a parsed action token.
type TokenVerb int

const (
	VerbUnknown TokenVerb = iota
	VerbCreateTicket
	VerbViewTickets
	VerbContact
	VerbResolve
)

// ContactToken returns the token for the "contact submitter" button of a ticket.
func ContactToken(ticketID string) string { return verbContact + TokenDelimiter + ticketID }

// ResolveToken returns the token for the "resolve" button of a ticket.
func ResolveToken(ticketID string) string { return verbResolve + TokenDelimiter + ticketID }

// ParseToken splits a button token into its verb and, for ticket-scoped
// verbs, the ticket ID. The ID is everything after the first delimiter.
func ParseToken(token string) (TokenVerb, string) {
	switch token {
	case TokenCreateTicket:
		return VerbCreateTicket, ""
	case TokenViewTickets:
		return VerbViewTickets, ""
	}
	verb, id, ok := strings.Cut(token, TokenDelimiter)
	if !ok || id == "" {
		return VerbUnknown, ""
	}
	switch verb {
	case verbContact:
		return VerbContact, id
	case verbResolve:
		return VerbResolve, id
	}
	return VerbUnknown, ""
}
