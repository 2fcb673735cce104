package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Generation  GenerationConfig          `json:"generation"`
	Secrets     Secrets                   `json:"-"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type BasicConfig struct {
	ServerAddress         string `json:"server_address"`
	FileBaseDir           string `json:"file_base_dir"`
	MediaPath             string `json:"media_path"`
	MinWorkers            int    `json:"min_workers"`
	MaxWorkers            int    `json:"max_workers"`
	QueueSize             int    `json:"queue_size"`
	WorkerIdleTimeout     int    `json:"worker_idle_timeout"` // minutes
	HistoryRetentionHours int    `json:"history_retention_hours"`
	CleanInterval         int    `json:"clean_interval"` // minutes
	RequestTimeout        int    `json:"request_timeout"` // seconds
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// GenerationConfig tunes the provider adapters.
type GenerationConfig struct {
	TextProvider    string `json:"text_provider"`
	VideoProvider   string `json:"video_provider"`
	ImageModel      string `json:"image_model"`
	SpeechModel     string `json:"speech_model"`
	VideoModel      string `json:"video_model"`
	ImageCount      int    `json:"image_count"`
	PollInterval    int    `json:"poll_interval"` // seconds
	PollMaxAttempts int    `json:"poll_max_attempts"`
	PollTimeout     int    `json:"poll_timeout"` // seconds
	CooldownSeconds int    `json:"cooldown_seconds"`
	WebSearch       bool   `json:"web_search"`
}

// Secrets are never read from the config file.
type Secrets struct {
	GeminiAPIKey         string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey         string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey      string `env:"ANTHROPIC_API_KEY"`
	RunwayAPIKey         string `env:"RUNWAYML_API_KEY"`
	GoogleSearchAPIKey   string `env:"GOOGLE_API_KEY"`
	GoogleSearchEngineID string `env:"GOOGLE_SEARCH_ENGINE_ID"`
}

const (
	DefaultServerAddress = ":8090"
	DefaultFileBaseDir   = "./data/media"
	DefaultMediaPath     = "/media"
	DefaultImageCount    = 4
	DefaultPollInterval  = 5
	DefaultPollAttempts  = 120
	DefaultPollTimeout   = 900
	DefaultCooldown      = 60
	DefaultReqTimeout    = 900
)

// Load reads configuration from the provided path (defaults to config.json).
// A missing file is not an error: defaults and environment secrets still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, fmt.Errorf("parse env secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	for name, db := range cfg.Databases {
		if db.DSN != "" && db.DSN != ":memory:" && !filepath.IsAbs(db.DSN) && (name == "sqlite" || name == "sqlite3") {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = DefaultServerAddress
	}
	if b.FileBaseDir == "" {
		b.FileBaseDir = DefaultFileBaseDir
	}
	if b.MediaPath == "" {
		b.MediaPath = DefaultMediaPath
	}
	if b.RequestTimeout <= 0 {
		b.RequestTimeout = DefaultReqTimeout
	}

	g := &c.Generation
	if g.TextProvider == "" {
		g.TextProvider = "gemini"
	}
	if g.VideoProvider == "" {
		g.VideoProvider = VideoProviderVeo
	}
	if g.ImageCount <= 0 {
		g.ImageCount = DefaultImageCount
	}
	if g.PollInterval <= 0 {
		g.PollInterval = DefaultPollInterval
	}
	if g.PollMaxAttempts <= 0 {
		g.PollMaxAttempts = DefaultPollAttempts
	}
	if g.PollTimeout <= 0 {
		g.PollTimeout = DefaultPollTimeout
	}
	if g.CooldownSeconds <= 0 {
		g.CooldownSeconds = DefaultCooldown
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if _, ok := c.Databases["sqlite3"]; !ok {
		c.Databases["sqlite3"] = DatabaseConfig{DSN: "./data/cyberjungle.db"}
	}
}

const (
	VideoProviderVeo    = "veo"
	VideoProviderRunway = "runway"
)

func (c *Config) validate() error {
	switch c.Generation.VideoProvider {
	case VideoProviderVeo, VideoProviderRunway:
	default:
		return fmt.Errorf("unknown generation.video_provider %q (want %q or %q)",
			c.Generation.VideoProvider, VideoProviderVeo, VideoProviderRunway)
	}
	return nil
}

// APIKey resolves the credential for a provider: config file first, then environment.
func (c *Config) APIKey(provider string) string {
	if p, ok := c.Providers[provider]; ok && p.APIKey != "" {
		return p.APIKey
	}
	switch provider {
	case "gemini":
		return c.Secrets.GeminiAPIKey
	case "openai":
		return c.Secrets.OpenAIAPIKey
	case "claude":
		return c.Secrets.AnthropicAPIKey
	case "runway":
		return c.Secrets.RunwayAPIKey
	}
	return ""
}

func (g GenerationConfig) PollIntervalDuration() time.Duration {
	return time.Duration(g.PollInterval) * time.Second
}

func (g GenerationConfig) PollTimeoutDuration() time.Duration {
	return time.Duration(g.PollTimeout) * time.Second
}

func (g GenerationConfig) CooldownDuration() time.Duration {
	return time.Duration(g.CooldownSeconds) * time.Second
}
