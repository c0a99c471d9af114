// Package access classifies user identities as support agents or end users.
package access

import (
	"slices"
	"strings"
)

// Policy is a static agent roster. It is never mutated after construction,
// so it is safe for concurrent use without locking.
type Policy struct {
	agents map[string]struct{}
}

// New builds a policy from agent identities. Blank entries are ignored and
// surrounding whitespace is trimmed.
func New(agentIDs []string) *Policy {
	p := &Policy{agents: make(map[string]struct{}, len(agentIDs))}
	for _, id := range agentIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		p.agents[id] = struct{}{}
	}
	return p
}

// IsAgent reports whether userID is on the roster.
func (p *Policy) IsAgent(userID string) bool {
	_, ok := p.agents[userID]
	return ok
}

// Agents returns the roster, sorted.
func (p *Policy) Agents() []string {
	ids := make([]string, 0, len(p.agents))
	for id := range p.agents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
