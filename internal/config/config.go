// Package config loads process configuration from defaults, an optional
// YAML file and QUERYBOT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QUERYBOT_SERVER_ADDR.
const EnvPrefix = "QUERYBOT"

// Config is the full process configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Responder  ResponderConfig  `mapstructure:"responder"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Metrics    bool             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// OpenAIConfig also reads the conventional OPENAI_API_KEY variable.
// An empty APIKey runs the bot offline.
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	ChatModel      string  `mapstructure:"chat_model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
}

type ClassifierConfig struct {
	// RulesFile overrides the heuristic phrase lists.
	RulesFile    string        `mapstructure:"rules_file"`
	ModelTimeout time.Duration `mapstructure:"model_timeout"`
}

// Retrieval backends.
const (
	RetrievalCatalog = "catalog"
	RetrievalQdrant  = "qdrant"
)

type RetrievalConfig struct {
	Backend string        `mapstructure:"backend"`
	TopK    int           `mapstructure:"top_k"`
	Timeout time.Duration `mapstructure:"timeout"`
	Qdrant  QdrantConfig  `mapstructure:"qdrant"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
	// Seed loads the sample catalog into the collection at startup.
	Seed bool `mapstructure:"seed"`
}

type ResponderConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// Checkpoint backends.
const (
	CheckpointNone   = "none"
	CheckpointMemory = "memory"
	CheckpointSQLite = "sqlite"
	CheckpointRedis  = "redis"
)

type CheckpointConfig struct {
	Backend    string      `mapstructure:"backend"`
	SQLitePath string      `mapstructure:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LogConfig selects the slog handler. A non-empty File also writes
// rotated logs there.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return level, nil
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.embedding_model", "text-embedding-ada-002")
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.max_tokens", 500)

	v.SetDefault("classifier.rules_file", "")
	v.SetDefault("classifier.model_timeout", 10*time.Second)

	v.SetDefault("retrieval.backend", RetrievalCatalog)
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.timeout", 10*time.Second)
	v.SetDefault("retrieval.qdrant.host", "localhost")
	v.SetDefault("retrieval.qdrant.port", 6334)
	v.SetDefault("retrieval.qdrant.api_key", "")
	v.SetDefault("retrieval.qdrant.collection", "products")
	v.SetDefault("retrieval.qdrant.seed", false)

	v.SetDefault("responder.timeout", 30*time.Second)
	v.SetDefault("responder.max_attempts", 3)

	v.SetDefault("checkpoint.backend", CheckpointMemory)
	v.SetDefault("checkpoint.sqlite_path", "querybot.db")
	v.SetDefault("checkpoint.redis.addr", "localhost:6379")
	v.SetDefault("checkpoint.redis.password", "")
	v.SetDefault("checkpoint.redis.db", 0)
	v.SetDefault("checkpoint.redis.key_prefix", "querybot:checkpoint:")
	v.SetDefault("checkpoint.redis.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "product-query-bot")

	v.SetDefault("metrics", false)
}

// Load reads configuration. An empty path searches for querybot.yaml in
// the working directory, ./config and $HOME/.querybot; finding none is
// not an error. A non-empty path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind openai api key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("querybot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.querybot")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	switch c.Retrieval.Backend {
	case RetrievalCatalog:
	case RetrievalQdrant:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("retrieval.backend qdrant needs openai.api_key for embeddings"))
		}
		if c.Retrieval.Qdrant.Collection == "" {
			errs = append(errs, errors.New("retrieval.qdrant.collection is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("retrieval.backend %q: want %s or %s", c.Retrieval.Backend, RetrievalCatalog, RetrievalQdrant))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}

	switch c.Checkpoint.Backend {
	case CheckpointNone, CheckpointMemory:
	case CheckpointSQLite:
		if c.Checkpoint.SQLitePath == "" {
			errs = append(errs, errors.New("checkpoint.sqlite_path is required"))
		}
	case CheckpointRedis:
		if c.Checkpoint.Redis.Addr == "" {
			errs = append(errs, errors.New("checkpoint.redis.addr is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("checkpoint.backend %q: want none, memory, sqlite or redis", c.Checkpoint.Backend))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json or text", c.Log.Format))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
