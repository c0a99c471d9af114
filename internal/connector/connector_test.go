package connector

import (
	"errors"
	"strings"
	"testing"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

func TestRender(t *testing.T) {
	actions := []protocol.Action{
		protocol.DirectMessage("1", "hello"),
		protocol.EditPrevious("2", "sent"),
		protocol.ReplyText("3", "bye"),
	}

	var seen []string
	err := Render(actions, func(a protocol.Action) error {
		seen = append(seen, a.TargetID)
		if a.TargetID == "1" {
			return errors.New("blocked by user")
		}
		return nil
	})

	if len(seen) != 3 {
		t.Fatalf("expected every action to be attempted, got %v", seen)
	}
	if err == nil || !strings.Contains(err.Error(), "blocked by user") || !strings.Contains(err.Error(), "direct_message") {
		t.Errorf("unexpected error %v", err)
	}
	if err := Render(nil, func(protocol.Action) error { return errors.New("x") }); err != nil {
		t.Errorf("empty render returned %v", err)
	}
}
