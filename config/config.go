package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default webhook paths exposed by the analysis workflow.
const (
	DefaultLoginPath    = "/b7c0c5d6-9835-4b26-b0ee-ccaf8829ca82"
	DefaultRegisterPath = "/d746f1fe-5fab-49e7-894b-696aecb92a9d"
	DefaultHistoryPath  = "/c9eaf6ab-21bd-4817-8c7c-16b36019a113"
	DefaultDocumentPath = "/156dfa37-7384-4c2f-bcf2-ade46e6d7f4e"
	DefaultUploadPath   = "/ad577ad7-3860-48b8-88a3-0e4760aea239"
	DefaultChatPath     = "/26d37223-c353-40db-9ffe-6d07daffd1b2"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Webhook WebhookConfig `yaml:"webhook"`
	Auth    AuthConfig    `yaml:"auth"`
	Upload  UploadConfig  `yaml:"upload"`
	Display DisplayConfig `yaml:"display"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	RateLimit      int      `yaml:"rate_limit"` // requests per minute per client
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WebhookConfig struct {
	BaseURL        string        `yaml:"base_url"`
	LoginPath      string        `yaml:"login_path"`
	RegisterPath   string        `yaml:"register_path"`
	HistoryPath    string        `yaml:"history_path"`
	DocumentPath   string        `yaml:"document_path"`
	UploadPath     string        `yaml:"upload_path"`
	ChatPath       string        `yaml:"chat_path"`
	Timeout        time.Duration `yaml:"timeout"`
	UploadTimeout  time.Duration `yaml:"upload_timeout"`
	UploadAttempts int           `yaml:"upload_attempts"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	CallbackSeed   string        `yaml:"callback_seed"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type UploadConfig struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// MaxBytes returns the upload ceiling in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return u.MaxSizeMB * 1024 * 1024
}

type DisplayConfig struct {
	DateLayout string `yaml:"date_layout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	MaxConversations    int `yaml:"max_conversations"`
	MaxTrackedDocuments int `yaml:"max_tracked_documents"`
}

// Load reads the YAML file at path. A missing file is not an error: defaults
// and environment overrides still apply.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JURCHAT_WEBHOOK_BASE_URL"); v != "" {
		c.Webhook.BaseURL = v
	}
	if v := os.Getenv("JURCHAT_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("JURCHAT_CALLBACK_SEED"); v != "" {
		c.Webhook.CallbackSeed = v
	}
	if v := os.Getenv("JURCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("JURCHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Webhook.BaseURL == "" {
		c.Webhook.BaseURL = "http://localhost:5678/webhook"
	}
	if c.Webhook.LoginPath == "" {
		c.Webhook.LoginPath = DefaultLoginPath
	}
	if c.Webhook.RegisterPath == "" {
		c.Webhook.RegisterPath = DefaultRegisterPath
	}
	if c.Webhook.HistoryPath == "" {
		c.Webhook.HistoryPath = DefaultHistoryPath
	}
	if c.Webhook.DocumentPath == "" {
		c.Webhook.DocumentPath = DefaultDocumentPath
	}
	if c.Webhook.UploadPath == "" {
		c.Webhook.UploadPath = DefaultUploadPath
	}
	if c.Webhook.ChatPath == "" {
		c.Webhook.ChatPath = DefaultChatPath
	}
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = 60 * time.Second
	}
	if c.Webhook.UploadTimeout == 0 {
		c.Webhook.UploadTimeout = 120 * time.Second
	}
	if c.Webhook.UploadAttempts == 0 {
		c.Webhook.UploadAttempts = 3
	}
	if c.Webhook.RetryBackoff == 0 {
		c.Webhook.RetryBackoff = time.Second
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 10
	}
	if c.Display.DateLayout == "" {
		c.Display.DateLayout = "02/01/2006"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.MaxConversations < 0 {
		c.Store.MaxConversations = 0
	} else if c.Store.MaxConversations == 0 {
		c.Store.MaxConversations = 500
	}
	if c.Store.MaxTrackedDocuments < 0 {
		c.Store.MaxTrackedDocuments = 0
	} else if c.Store.MaxTrackedDocuments == 0 {
		c.Store.MaxTrackedDocuments = 1000
	}
}
