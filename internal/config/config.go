package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for anonqa
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host    string     `mapstructure:"host"`
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	Env     string     `mapstructure:"env"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds cross-origin settings for the HTTP API
type CORSConfig struct {
	AllowOrigins  []string      `mapstructure:"allow_origins"`
	AllowMethods  []string      `mapstructure:"allow_methods"`
	AllowHeaders  []string      `mapstructure:"allow_headers"`
	ExposeHeaders []string      `mapstructure:"expose_headers"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LLMConfig holds the upstream generative service configuration.
// An empty APIKey leaves the AI endpoints reporting "not configured".
type LLMConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	CostPerToken string  `mapstructure:"cost_per_token"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float32 `mapstructure:"temperature"`
}

// QuotaConfig holds AI usage quotas
type QuotaConfig struct {
	AnswersPerQuestion      int           `mapstructure:"answers_per_question"`
	QuestionsPerWindow      int           `mapstructure:"questions_per_window"`
	QuestionWindow          time.Duration `mapstructure:"question_window"`
	SimilarCandidates       int           `mapstructure:"similar_candidates"`
	SimilarPromptCandidates int           `mapstructure:"similar_prompt_candidates"`
}

// RealtimeConfig holds websocket settings
type RealtimeConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// ANONQA_LLM_API_KEY overrides llm.api_key
	v.SetEnvPrefix("ANONQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := decimal.NewFromString(cfg.LLM.CostPerToken); err != nil {
		return nil, fmt.Errorf("invalid llm.cost_per_token %q: %w", cfg.LLM.CostPerToken, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.env", "production")
	v.SetDefault("server.cors.allow_origins", []string{"*"})
	v.SetDefault("server.cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors.allow_headers", []string{"Content-Type", "Authorization", "X-API-Key", "X-Group-Password"})
	v.SetDefault("server.cors.expose_headers", []string{})
	v.SetDefault("server.cors.max_age", 24*time.Hour)

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/anonqa.db")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.cost_per_token", "0.000002")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("quota.answers_per_question", 3)
	v.SetDefault("quota.questions_per_window", 10)
	v.SetDefault("quota.question_window", 24*time.Hour)
	v.SetDefault("quota.similar_candidates", 100)
	v.SetDefault("quota.similar_prompt_candidates", 20)

	v.SetDefault("realtime.allowed_origins", []string{"*"})
	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("realtime.write_wait", 10*time.Second)
	v.SetDefault("realtime.pong_wait", 60*time.Second)
	v.SetDefault("realtime.max_message_size", 4096)
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// CostPerToken returns the per-token rate used for usage accounting
func (c *Config) CostPerToken() decimal.Decimal {
	rate, err := decimal.NewFromString(c.LLM.CostPerToken)
	if err != nil {
		return decimal.Zero
	}
	return rate
}
