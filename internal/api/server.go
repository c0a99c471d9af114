package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Riv33R/Support-bot/internal/logbuf"
	"github.com/Riv33R/Support-bot/internal/ticket"
	"github.com/Riv33R/Support-bot/pkg/protocol"
)

// TicketReader is the read side of a ticket store.
type TicketReader interface {
	LoadAll() ([]protocol.Ticket, error)
}

// Roster lists the configured agents.
type Roster interface {
	Agents() []string
}

// LogQuerier abstracts log entry querying.
type LogQuerier interface {
	Query(f logbuf.Filter) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Options holds optional collaborators.
type Options struct {
	Logs    LogQuerier   // serves /api/logs when set
	Webhook http.Handler // mounted at /api/webhook/{name} when set
	Logger  *slog.Logger
}

// Server is the support desk admin REST API.
type Server struct {
	tickets TicketReader
	roster  Roster
	cfg     Config
	logger  *slog.Logger
	logs    LogQuerier
	started time.Time
	srv     *http.Server
}

// NewServer creates a new API server.
func NewServer(tickets TicketReader, roster Roster, cfg Config, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		tickets: tickets,
		roster:  roster,
		cfg:     cfg,
		logger:  opts.Logger,
		logs:    opts.Logs,
		started: time.Now(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/agents", s.requireAuth(s.handleListAgents))
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	if opts.Webhook != nil {
		// Webhook endpoints carry their own HMAC or bearer auth.
		mux.Handle("POST /api/webhook/{name}", opts.Webhook)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Key)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

type healthResponse struct {
	Status      string `json:"status"`
	OpenTickets int    `json:"open_tickets"`
	Agents      int    `json:"agents"`
	Uptime      string `json:"uptime"`
	Error       string `json:"error,omitempty"`
}

// handleHealth reports 503 when the ticket store cannot be read.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Agents: len(s.roster.Agents()),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	tickets, err := s.tickets.LoadAll()
	if err != nil {
		s.logger.Error("health check: load tickets failed", "error", err)
		resp.Status = "degraded"
		resp.Error = "ticket store unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.OpenTickets = len(tickets)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.roster.Agents())
}

// handleListTickets supports ?submitter=, ?q= (case-insensitive body or
// name search) and ?limit= (oldest first).
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.tickets.LoadAll()
	if err != nil {
		s.logger.Error("list tickets failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ticket store unavailable"})
		return
	}

	q := r.URL.Query()
	submitter := q.Get("submitter")
	needle := strings.ToLower(q.Get("q"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	out := make([]protocol.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if submitter != "" && string(t.SubmitterID) != submitter {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Body), needle) &&
			!strings.Contains(strings.ToLower(t.SubmitterName), needle) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.tickets.LoadAll()
	if err != nil {
		s.logger.Error("get ticket failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ticket store unavailable"})
		return
	}
	t, ok := ticket.Find(tickets, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleGetLogs supports ?level=, ?since= (unix ms or RFC 3339), ?limit=
// (default 200), ?q= and ?attr.<key>=<value>.
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	f := logbuf.Filter{
		MinLevel: slog.LevelDebug,
		Limit:    200,
		Contains: q.Get("q"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	if lvl := q.Get("level"); lvl != "" {
		f.MinLevel = logbuf.ParseLevel(lvl)
	}
	if v := q.Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		} else if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = ts
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since"})
			return
		}
	}
	for key, vals := range q {
		if name, ok := strings.CutPrefix(key, "attr."); ok && name != "" && len(vals) > 0 {
			if f.Attrs == nil {
				f.Attrs = make(map[string]string)
			}
			f.Attrs[name] = vals[0]
		}
	}

	entries := s.logs.Query(f)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
