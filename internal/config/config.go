package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Riv33R/Support-bot/internal/desk"
)

// Config is the top-level support desk configuration.
type Config struct {
	Desk       DeskConfig      `json:"desk" yaml:"desk"`
	State      StateConfig     `json:"state" yaml:"state"`
	Connectors ConnectorConfig `json:"connectors" yaml:"connectors"`
	Events     EventsConfig    `json:"events" yaml:"events"`
	API        APIConfig       `json:"api" yaml:"api"`
}

// DeskConfig holds desk-level settings.
type DeskConfig struct {
	ID          string        `json:"id" yaml:"id"`
	DataDir     string        `json:"data_dir" yaml:"data_dir"`
	Store       string        `json:"store,omitempty" yaml:"store,omitempty"` // "json" (default) or "sqlite"
	Agents      IDList        `json:"agents" yaml:"agents"`
	Locale      string        `json:"locale,omitempty" yaml:"locale,omitempty"`
	Messages    desk.Messages `json:"messages,omitzero" yaml:"messages,omitempty"`
	CaptureIdle Duration      `json:"capture_idle,omitempty" yaml:"capture_idle,omitempty"`
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend string       `json:"backend,omitempty" yaml:"backend,omitempty"` // "memory" (default) or "redis"
	Redis   *RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string   `json:"addr" yaml:"addr"`
	Password  string   `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int      `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string   `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	TTL       Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// ConnectorConfig holds settings for external platform connectors.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty" yaml:"slack,omitempty"`
	Webhook  *WebhookConfig  `json:"webhook,omitempty" yaml:"webhook,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string       `json:"token" yaml:"token"`
	AllowFrom []int64      `json:"allow_from,omitempty" yaml:"allow_from,omitempty"`
	Voice     *VoiceConfig `json:"voice,omitempty" yaml:"voice,omitempty"`
}

// VoiceConfig enables voice message transcription.
type VoiceConfig struct {
	WhisperURL    string `json:"whisper_url,omitempty" yaml:"whisper_url,omitempty"`
	WhisperAPIKey string `json:"whisper_api_key" yaml:"whisper_api_key"`
	WhisperModel  string `json:"whisper_model,omitempty" yaml:"whisper_model,omitempty"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	BotToken     string `json:"bot_token" yaml:"bot_token"`
	AppToken     string `json:"app_token" yaml:"app_token"`
	StartCommand string `json:"start_command,omitempty" yaml:"start_command,omitempty"`
}

// WebhookConfig maps endpoint names to their auth settings.
type WebhookConfig struct {
	Endpoints map[string]WebhookEndpoint `json:"endpoints" yaml:"endpoints"`
}

// WebhookEndpoint holds per-endpoint auth. Secret takes precedence.
type WebhookEndpoint struct {
	Secret      string `json:"secret,omitempty" yaml:"secret,omitempty"`
	BearerToken string `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"`
	// Insecure must be set to run an endpoint with neither secret nor token.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
}

// EventsConfig holds ticket lifecycle event publishing settings.
type EventsConfig struct {
	Kafka *KafkaConfig `json:"kafka,omitempty" yaml:"kafka,omitempty"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	Key  string `json:"api_key" yaml:"api_key"`
}

// IDList is a list of user ids. JSON numbers are accepted so that numeric
// Telegram ids can be written unquoted.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(IDList, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %s", r)
		}
		out = append(out, n.String())
	}
	*l = out
	return nil
}

// Duration is a time.Duration that reads as "30m" in JSON and YAML.
// Bare JSON numbers are taken as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds: %s", data)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// Load reads configuration from a JSON or YAML file. The format follows the
// extension; anything other than .yaml/.yml is parsed as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Format is a configuration encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes data without validating it. Defaults are applied.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Desk.Store == "" {
		c.Desk.Store = "json"
	}
	if c.State.Backend == "" {
		c.State.Backend = "memory"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
}

// DeskMessages returns the locale defaults overlaid with configured texts.
func (c *Config) DeskMessages() (desk.Messages, error) {
	defaults, err := desk.LocaleMessages(c.Desk.Locale)
	if err != nil {
		return desk.Messages{}, err
	}
	return c.Desk.Messages.WithDefaults(defaults), nil
}

// LoadFromEnv builds a config from environment variables with the DESK_
// prefix. Call LoadDotEnv first to pick up a .env file.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Desk: DeskConfig{
			ID:      getenv("DESK_ID", "default"),
			DataDir: getenv("DESK_DATA_DIR", "/data"),
			Store:   getenv("DESK_STORE", "json"),
			Agents:  parseList(os.Getenv("DESK_AGENTS")),
			Locale:  os.Getenv("DESK_LOCALE"),
		},
		State: StateConfig{
			Backend: getenv("DESK_STATE_BACKEND", "memory"),
		},
		API: APIConfig{
			Host: getenv("DESK_API_HOST", "0.0.0.0"),
			Port: getenvInt("DESK_API_PORT", 8080),
			Key:  os.Getenv("DESK_API_KEY"),
		},
	}

	if v := os.Getenv("DESK_CAPTURE_IDLE"); v != "" {
		if err := cfg.Desk.CaptureIdle.parse(v); err != nil {
			return nil, fmt.Errorf("config: DESK_CAPTURE_IDLE: %w", err)
		}
	}

	if addr := os.Getenv("DESK_REDIS_ADDR"); addr != "" {
		cfg.State.Redis = &RedisConfig{
			Addr:      addr,
			Password:  os.Getenv("DESK_REDIS_PASSWORD"),
			DB:        getenvInt("DESK_REDIS_DB", 0),
			KeyPrefix: os.Getenv("DESK_REDIS_PREFIX"),
		}
		if v := os.Getenv("DESK_REDIS_TTL"); v != "" {
			if err := cfg.State.Redis.TTL.parse(v); err != nil {
				return nil, fmt.Errorf("config: DESK_REDIS_TTL: %w", err)
			}
		}
	}

	if token := os.Getenv("DESK_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("DESK_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: DESK_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
		if key := os.Getenv("DESK_WHISPER_API_KEY"); key != "" {
			cfg.Connectors.Telegram.Voice = &VoiceConfig{
				WhisperURL:    os.Getenv("DESK_WHISPER_URL"),
				WhisperAPIKey: key,
				WhisperModel:  os.Getenv("DESK_WHISPER_MODEL"),
			}
		}
	}

	if bot := os.Getenv("DESK_SLACK_BOT_TOKEN"); bot != "" {
		cfg.Connectors.Slack = &SlackConfig{
			BotToken:     bot,
			AppToken:     os.Getenv("DESK_SLACK_APP_TOKEN"),
			StartCommand: os.Getenv("DESK_SLACK_START_COMMAND"),
		}
	}

	if brokers := os.Getenv("DESK_KAFKA_BROKERS"); brokers != "" {
		cfg.Events.Kafka = &KafkaConfig{
			Brokers: parseList(brokers),
			Topic:   getenv("DESK_KAFKA_TOPIC", "support-tickets"),
		}
	}

	return cfg, nil
}

// Validate checks for required fields and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Desk.ID == "" {
		errs = append(errs, "desk.id is required")
	}
	if c.Desk.DataDir == "" {
		errs = append(errs, "desk.data_dir is required")
	}
	switch c.Desk.Store {
	case "", "json", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("desk.store must be json or sqlite, got %q", c.Desk.Store))
	}
	for i, id := range c.Desk.Agents {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Sprintf("desk.agents[%d] is empty", i))
		}
	}
	if _, err := desk.LocaleMessages(c.Desk.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("desk.locale %q is not supported", c.Desk.Locale))
	}
	if c.Desk.CaptureIdle < 0 {
		errs = append(errs, "desk.capture_idle must not be negative")
	}

	switch c.State.Backend {
	case "", "memory":
	case "redis":
		if c.State.Redis == nil || c.State.Redis.Addr == "" {
			errs = append(errs, "state.redis.addr is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("state.backend must be memory or redis, got %q", c.State.Backend))
	}

	if tg := c.Connectors.Telegram; tg != nil {
		if tg.Token == "" {
			errs = append(errs, "connectors.telegram.token is required")
		}
		if tg.Voice != nil && tg.Voice.WhisperAPIKey == "" {
			errs = append(errs, "connectors.telegram.voice.whisper_api_key is required")
		}
	}
	if sl := c.Connectors.Slack; sl != nil {
		if sl.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
		if sl.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
	}
	if wh := c.Connectors.Webhook; wh != nil {
		for name, ep := range wh.Endpoints {
			if name == "" || strings.Contains(name, "/") {
				errs = append(errs, fmt.Sprintf("connectors.webhook.endpoints: invalid name %q", name))
			}
			if ep.Secret == "" && ep.BearerToken == "" && !ep.Insecure {
				errs = append(errs, fmt.Sprintf("connectors.webhook.endpoints.%s needs a secret or bearer_token (or insecure: true)", name))
			}
		}
	}

	if k := c.Events.Kafka; k != nil {
		if len(k.Brokers) == 0 {
			errs = append(errs, "events.kafka.brokers is required")
		}
		if k.Topic == "" {
			errs = append(errs, "events.kafka.topic is required")
		}
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}
