package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Riv33R/Support-bot/internal/access"
	apiPkg "github.com/Riv33R/Support-bot/internal/api"
	"github.com/Riv33R/Support-bot/internal/config"
	"github.com/Riv33R/Support-bot/internal/connector"
	slackconn "github.com/Riv33R/Support-bot/internal/connector/slack"
	"github.com/Riv33R/Support-bot/internal/connector/telegram"
	"github.com/Riv33R/Support-bot/internal/connector/webhook"
	"github.com/Riv33R/Support-bot/internal/conversation"
	"github.com/Riv33R/Support-bot/internal/desk"
	"github.com/Riv33R/Support-bot/internal/events"
	"github.com/Riv33R/Support-bot/internal/logbuf"
	"github.com/Riv33R/Support-bot/internal/scheduler"
	"github.com/Riv33R/Support-bot/internal/ticket"
)

const defaultCaptureIdle = 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON, or YAML by extension)")
	configURL := flag.String("config-url", os.Getenv("DESK_CONFIG_URL"), "URL to fetch config from")
	configKey := flag.String("config-key", os.Getenv("DESK_CONFIG_KEY"), "Bearer key for -config-url")
	deskID := flag.String("desk-id", os.Getenv("DESK_ID"), "Desk ID sent to the config service")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before reading the environment")
	importPath := flag.String("import", "", "Import a legacy tickets.json before starting")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Config has three sources: file, remote, environment.
	var cfg *config.Config
	var err error
	switch {
	case *configPath != "":
		cfg, err = config.Load(*configPath)
	case *configURL != "":
		logger.Info("loading config from url", "url", *configURL, "desk_id", *deskID)
		cfg, err = config.LoadFromURL(ctx, config.RemoteOptions{
			URL:     *configURL,
			DeskID:  *deskID,
			APIKey:  *configKey,
			DataDir: os.Getenv("DESK_DATA_DIR"),
		})
	default:
		cfg, err = config.LoadFromEnv()
		if err == nil {
			err = cfg.Validate()
		}
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("deskd starting", "desk_id", cfg.Desk.ID, "store", cfg.Desk.Store, "state", cfg.State.Backend)

	// 1. Ticket store
	store, err := ticket.Open(cfg.Desk.Store, cfg.Desk.DataDir)
	if err != nil {
		logger.Error("failed to open ticket store", "dir", cfg.Desk.DataDir, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *importPath != "" {
		n, err := ticket.ImportLegacy(store, *importPath)
		if err != nil {
			logger.Error("legacy import failed", "path", *importPath, "error", err)
			os.Exit(1)
		}
		logger.Info("legacy tickets imported", "path", *importPath, "count", n)
	}

	// 2. Conversation state
	state, memState, closeState, err := openState(ctx, cfg)
	if err != nil {
		logger.Error("failed to open conversation state", "backend", cfg.State.Backend, "error", err)
		os.Exit(1)
	}
	defer closeState.Close()

	// 3. Lifecycle events
	publisher, closeEvents, err := openEvents(cfg)
	if err != nil {
		logger.Error("failed to init event publisher", "error", err)
		os.Exit(1)
	}
	defer closeEvents.Close()

	// 4. Routing engine
	msgs, err := cfg.DeskMessages()
	if err != nil {
		logger.Error("invalid messages", "error", err)
		os.Exit(1)
	}
	policy := access.New(cfg.Desk.Agents)
	if len(policy.Agents()) == 0 {
		logger.Warn("no agents configured, tickets can be created but nobody can view them")
	}
	// Contact notices go out through the submitter's own connector.
	registry := connector.NewRegistry()
	engine := desk.New(store, state, policy, desk.Options{
		Messages: msgs,
		Events:   publisher,
		Notifier: registry,
		Logger:   logger.With("component", "engine"),
	})
	handle := connector.Handler(engine.Handle)

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			safeGo(logger, name, fn)
		}()
	}

	// 5. Connectors
	started := 0
	if tg := cfg.Connectors.Telegram; tg != nil {
		tcfg := telegram.Config{Token: tg.Token, AllowFrom: tg.AllowFrom}
		if tg.Voice != nil {
			tcfg.Voice = &telegram.VoiceConfig{
				WhisperURL:    tg.Voice.WhisperURL,
				WhisperAPIKey: tg.Voice.WhisperAPIKey,
				WhisperModel:  tg.Voice.WhisperModel,
			}
		}
		tgConn, err := telegram.New(tcfg, handle, logger.With("connector", "telegram"))
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		registry.Register(tgConn)
		// Legacy tickets carry no channel; they all came from Telegram.
		registry.SetFallback(tgConn.Name())
		run("telegram", func() {
			if err := tgConn.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("telegram connector failed", "error", err)
			}
		})
		started++
	}

	if sl := cfg.Connectors.Slack; sl != nil {
		slConn, err := slackconn.New(slackconn.Config{
			BotToken:     sl.BotToken,
			AppToken:     sl.AppToken,
			StartCommand: sl.StartCommand,
		}, handle, logger.With("connector", "slack"))
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		registry.Register(slConn)
		run("slack", func() {
			if err := slConn.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("slack connector failed", "error", err)
			}
		})
		started++
	}

	var webhookHandler *webhook.Handler
	if wh := cfg.Connectors.Webhook; wh != nil && len(wh.Endpoints) > 0 {
		endpoints := make(map[string]webhook.EndpointConfig, len(wh.Endpoints))
		for name, ep := range wh.Endpoints {
			endpoints[name] = webhook.EndpointConfig{Secret: ep.Secret, BearerToken: ep.BearerToken, Insecure: ep.Insecure}
			if ep.Insecure {
				logger.Warn("webhook endpoint accepts unauthenticated requests", "endpoint", name)
			}
		}
		webhookHandler = webhook.New(webhook.Config{Endpoints: endpoints}, handle, logger.With("connector", "webhook"))
		started++
	}

	logger.Info("connectors ready", "push", registry.Names(), "webhook", webhookHandler != nil)
	if started == 0 {
		logger.Warn("no connectors configured, only the admin API is available")
	}

	// 6. Housekeeping
	sched := scheduler.New(logger.With("component", "scheduler"))
	if memState != nil {
		idle := cfg.Desk.CaptureIdle.Std()
		if idle == 0 {
			idle = defaultCaptureIdle
		}
		err := sched.Every("evict-idle-state", time.Hour, func(context.Context) error {
			if n := memState.Evict(idle); n > 0 {
				logger.Info("evicted idle conversation state", "count", n, "remaining", memState.Len())
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to schedule state eviction", "error", err)
		}
	}
	err = sched.Every("ticket-backlog", 15*time.Minute, func(context.Context) error {
		tickets, err := store.LoadAll()
		if err != nil {
			return err
		}
		logger.Info("open tickets", "count", len(tickets))
		return nil
	})
	if err != nil {
		logger.Error("failed to schedule backlog report", "error", err)
	}
	run("scheduler", func() { sched.Start(ctx) })

	// 7. API server
	apiOpts := apiPkg.Options{Logs: logBuf, Logger: logger.With("component", "api")}
	if webhookHandler != nil {
		apiOpts.Webhook = webhookHandler
	}
	apiSrv := apiPkg.NewServer(store, policy, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, apiOpts)
	run("api-server", func() {
		if err := apiSrv.Start(ctx); err != nil {
			logger.Error("api server failed", "error", err)
		}
	})

	// 8. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out waiting for goroutines")
	}
	logger.Info("deskd stopped")
}

// openState returns the configured conversation store. memState is set only
// for the in-process backend, which needs scheduled eviction.
func openState(ctx context.Context, cfg *config.Config) (state conversation.Store, memState *conversation.MemoryStore, closer io.Closer, err error) {
	if cfg.State.Backend != "redis" {
		mem := conversation.NewMemoryStore()
		return mem, mem, nopCloser{}, nil
	}

	rc := cfg.State.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	rs := conversation.NewRedisStore(client, rc.KeyPrefix, rc.TTL.Std())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
	}
	return rs, nil, rs, nil
}

func openEvents(cfg *config.Config) (events.Publisher, io.Closer, error) {
	k := cfg.Events.Kafka
	if k == nil {
		return events.Nop{}, nopCloser{}, nil
	}
	p, err := events.NewKafkaPublisher(k.Brokers, k.Topic)
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
