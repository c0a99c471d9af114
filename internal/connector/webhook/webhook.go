package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Riv33R/Support-bot/internal/connector"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// Config holds webhook connector configuration.
type Config struct {
	// Endpoints maps endpoint names to their auth settings,
	// e.g. {"portal": {Secret: "whsec_abc123"}}.
	Endpoints map[string]EndpointConfig `json:"endpoints"`
}

// EndpointConfig holds per-endpoint webhook configuration.
type EndpointConfig struct {
	// Secret for HMAC-SHA256 signature verification (X-Hub-Signature-256 header).
	// If empty, Bearer auth is used instead.
	Secret string `json:"secret,omitempty"`
	// BearerToken for Authorization header auth. Used if Secret is empty.
	BearerToken string `json:"bearer_token,omitempty"`
	// Insecure accepts unauthenticated requests when neither Secret nor
	// BearerToken is set. Without it such an endpoint rejects everything.
	Insecure bool `json:"insecure,omitempty"`
}

// Payload is the JSON body of a webhook request.
type Payload struct {
	Type        protocol.EventKind `json:"type"` // start, text (default) or button
	UserID      string             `json:"user_id"`
	DisplayName string             `json:"display_name,omitempty"`
	Text        string             `json:"text,omitempty"`
	Token       string             `json:"token,omitempty"`
}

// Response is returned to the caller, which renders the actions itself.
type Response struct {
	Actions []protocol.Action `json:"actions"`
}

// Handler serves /api/webhook/{name}. Each request is one event and the
// response carries the resulting actions.
type Handler struct {
	config  Config
	handler connector.Handler
	logger  *slog.Logger
}

// New creates a webhook handler.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

// ServeHTTP handles webhook requests at /api/webhook/{name}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := extractName(r.URL.Path)
	if name == "" || name == "webhook" {
		http.Error(w, "missing endpoint name in path", http.StatusBadRequest)
		return
	}

	endpoint, ok := h.config.Endpoints[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown webhook endpoint: %s", name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.authenticate(r, endpoint, body) {
		h.logger.Warn("webhook auth failed", "endpoint", name, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	channel := "webhook:" + name
	ev, err := payload.event(channel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actions := h.handler(r.Context(), ev)
	if actions == nil {
		actions = []protocol.Action{}
	}
	// Callers address their own users; drop the namespace again.
	for i := range actions {
		if id, ok := strings.CutPrefix(actions[i].TargetID, channel+":"); ok {
			actions[i].TargetID = id
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{Actions: actions})
}

func (p Payload) event(channel string) (protocol.Event, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return protocol.Event{}, fmt.Errorf("user_id is required")
	}
	kind := p.Type
	if kind == "" {
		kind = protocol.EventText
	}
	switch kind {
	case protocol.EventStart:
	case protocol.EventText:
		if strings.TrimSpace(p.Text) == "" {
			return protocol.Event{}, fmt.Errorf("text is required")
		}
	case protocol.EventButton:
		if p.Token == "" {
			return protocol.Event{}, fmt.Errorf("token is required for button events")
		}
	default:
		return protocol.Event{}, fmt.Errorf("unknown event type %q", p.Type)
	}
	return protocol.Event{
		Kind:        kind,
		Channel:     channel,
		UserID:      UserID(channel, p.UserID),
		DisplayName: p.DisplayName,
		Text:        p.Text,
		Token:       p.Token,
	}, nil
}

// UserID namespaces a caller-supplied user id by endpoint channel, so a
// webhook caller can never claim a Telegram or Slack identity. An agent who
// works through a webhook is listed in the roster under this form,
// e.g. "webhook:portal:alice".
func UserID(channel, id string) string {
	return channel + ":" + id
}

func (h *Handler) authenticate(r *http.Request, endpoint EndpointConfig, body []byte) bool {
	if endpoint.Secret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if sig == "" {
			sig = r.Header.Get("X-Signature-256")
		}
		return verifyHMAC(body, endpoint.Secret, sig)
	}

	if endpoint.BearerToken != "" {
		auth := r.Header.Get("Authorization")
		return hmac.Equal([]byte(auth), []byte("Bearer "+endpoint.BearerToken))
	}

	return endpoint.Insecure
}

// verifyHMAC checks an HMAC-SHA256 signature of the form "sha256=<hex>".
func verifyHMAC(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	expectedMAC, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expectedMAC)
}

// extractName gets the last path segment from /api/webhook/{name}.
func extractName(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ComputeSignature generates an HMAC-SHA256 signature for callers signing requests.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
