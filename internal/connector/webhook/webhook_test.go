package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Riv33R/Support-bot/pkg/protocol"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (c *capturedEvents) handler(_ context.Context, ev protocol.Event) []protocol.Action {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return []protocol.Action{protocol.ReplyText(ev.UserID, "ok")}
}

func (c *capturedEvents) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *capturedEvents) last() protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func newTestHandler(endpoints map[string]EndpointConfig) (*Handler, *capturedEvents) {
	cap := &capturedEvents{}
	return New(Config{Endpoints: endpoints}, cap.handler, nil), cap
}

func post(h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhook_TextEvent(t *testing.T) {
	h, cap := newTestHandler(map[string]EndpointConfig{"portal": {Insecure: true}})

	w := post(h, "/api/webhook/portal", `{"user_id":"u-7","display_name":"Ivan","text":"VPN is down"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	ev := cap.last()
	if ev.Kind != protocol.EventText || ev.Channel != "webhook:portal" || ev.UserID != "webhook:portal:u-7" || ev.DisplayName != "Ivan" || ev.Text != "VPN is down" {
		t.Errorf("event = %+v", ev)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Actions) != 1 || resp.Actions[0].Kind != protocol.ActionReplyText || resp.Actions[0].TargetID != "u-7" {
		t.Errorf("actions = %+v", resp.Actions)
	}
}

func TestWebhook_ButtonAndStart(t *testing.T) {
	h, cap := newTestHandler(map[string]EndpointConfig{"portal": {Insecure: true}})

	if w := post(h, "/api/webhook/portal", `{"type":"button","user_id":"a-1","token":"resolve_t1"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("button status = %d", w.Code)
	}
	if ev := cap.last(); ev.Kind != protocol.EventButton || ev.Token != "resolve_t1" {
		t.Errorf("button event = %+v", ev)
	}

	if w := post(h, "/api/webhook/portal/", `{"type":"start","user_id":"a-1"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("start status = %d", w.Code)
	}
	if ev := cap.last(); ev.Kind != protocol.EventStart {
		t.Errorf("start event = %+v", ev)
	}
}

func TestWebhook_EmptyActionsEncodeAsArray(t *testing.T) {
	h := New(Config{Endpoints: map[string]EndpointConfig{"portal": {Insecure: true}}},
		func(context.Context, protocol.Event) []protocol.Action { return nil }, nil)

	w := post(h, "/api/webhook/portal", `{"type":"start","user_id":"u"}`, nil)
	if !strings.Contains(w.Body.String(), `"actions":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestWebhook_BadPayloads(t *testing.T) {
	h, cap := newTestHandler(map[string]EndpointConfig{"portal": {Insecure: true}})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"missing user", `{"text":"hi"}`},
		{"empty text", `{"user_id":"u","text":"  "}`},
		{"button without token", `{"type":"button","user_id":"u"}`},
		{"unknown type", `{"type":"sticker","user_id":"u"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := post(h, "/api/webhook/portal", tt.body, nil); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
	if cap.count() != 0 {
		t.Errorf("handler called %d times for bad payloads", cap.count())
	}
}

func TestWebhook_BearerAuth(t *testing.T) {
	h, _ := newTestHandler(map[string]EndpointConfig{"portal": {BearerToken: "secret-token"}})
	body := `{"user_id":"u","text":"hi"}`

	if w := post(h, "/api/webhook/portal", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d", w.Code)
	}
	if w := post(h, "/api/webhook/portal", body, map[string]string{"Authorization": "Bearer wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", w.Code)
	}
	if w := post(h, "/api/webhook/portal", body, map[string]string{"Authorization": "Bearer secret-token"}); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", w.Code)
	}
}

func TestWebhook_HMACAuth(t *testing.T) {
	secret := "whsec_test123"
	h, _ := newTestHandler(map[string]EndpointConfig{"portal": {Secret: secret}})
	body := `{"user_id":"u","text":"signed"}`

	if w := post(h, "/api/webhook/portal", body, map[string]string{"X-Hub-Signature-256": ComputeSignature([]byte(body), secret)}); w.Code != http.StatusOK {
		t.Errorf("valid signature: status = %d", w.Code)
	}
	if w := post(h, "/api/webhook/portal", body, map[string]string{"X-Signature-256": ComputeSignature([]byte(body), secret)}); w.Code != http.StatusOK {
		t.Errorf("alternate header: status = %d", w.Code)
	}
	if w := post(h, "/api/webhook/portal", body, map[string]string{"X-Hub-Signature-256": "sha256=deadbeef"}); w.Code != http.StatusUnauthorized {
		t.Errorf("invalid signature: status = %d", w.Code)
	}
	if w := post(h, "/api/webhook/portal", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing signature: status = %d", w.Code)
	}
}

func TestWebhook_RoutingErrors(t *testing.T) {
	h, _ := newTestHandler(map[string]EndpointConfig{"portal": {Insecure: true}})

	if w := post(h, "/api/webhook/unknown", `{}`, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown endpoint: status = %d", w.Code)
	}
	if w := post(h, "/api/webhook/", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/webhook/portal", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d", w.Code)
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct{ path, want string }{
		{"/api/webhook/portal", "portal"},
		{"/api/webhook/portal/", "portal"},
		{"/api/webhook/ci-pipeline", "ci-pipeline"},
		{"portal", "portal"},
	}
	for _, tt := range tests {
		if got := extractName(tt.path); got != tt.want {
			t.Errorf("extractName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestComputeSignature(t *testing.T) {
	sig := ComputeSignature([]byte("hello"), "secret")
	if !strings.HasPrefix(sig, "sha256=") || len(sig) != len("sha256=")+64 {
		t.Errorf("signature = %q", sig)
	}
	if !verifyHMAC([]byte("hello"), "secret", sig) {
		t.Error("signature does not verify")
	}
}

func TestWebhook_RejectsUnauthenticatedEndpoint(t *testing.T) {
	h, cap := newTestHandler(map[string]EndpointConfig{"portal": {}})

	w := post(h, "/api/webhook/portal", `{"type":"button","user_id":"420825051","token":"resolve_t1"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if cap.count() != 0 {
		t.Error("handler reached without auth")
	}
}

func TestWebhook_IdentityIsNamespaced(t *testing.T) {
	h, cap := newTestHandler(map[string]EndpointConfig{
		"portal": {BearerToken: "tok"},
		"crm":    {BearerToken: "tok"},
	})
	auth := map[string]string{"Authorization": "Bearer tok"}

	post(h, "/api/webhook/portal", `{"type":"button","user_id":"420825051","token":"view_tickets"}`, auth)
	if got := cap.last().UserID; got != "webhook:portal:420825051" {
		t.Errorf("portal user = %q", got)
	}
	post(h, "/api/webhook/crm", `{"type":"start","user_id":"420825051"}`, auth)
	if got := cap.last().UserID; got != "webhook:crm:420825051" {
		t.Errorf("crm user = %q", got)
	}
	if UserID("webhook:portal", "a") == UserID("webhook:crm", "a") {
		t.Error("endpoints share an identity space")
	}
}
