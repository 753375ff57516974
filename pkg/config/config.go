// Package config loads and validates timecloud configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// engine, tokenizer, corpus loader, renderers and every snapshot sink.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Render    RenderConfig    `yaml:"render"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// EngineConfig bounds the sliding window and sets the emission cadence.
type EngineConfig struct {
	MaxQueueSize    int `yaml:"maxQueueSize"`
	MaxDisplayWords int `yaml:"maxDisplayWords"`
	WordsPerFrame   int `yaml:"wordsPerFrame"`
}

// TokenizerConfig controls normalisation and filtering of word candidates.
type TokenizerConfig struct {
	Lowercase       bool   `yaml:"lowercase"`
	FilterStopwords bool   `yaml:"filterStopwords"`
	StopwordsFile   string `yaml:"stopwordsFile"`
	EnableStemming  bool   `yaml:"enableStemming"`
	Stemmer         string `yaml:"stemmer"`
	StemCacheSize   int    `yaml:"stemCacheSize"`
	MinWordLength   int    `yaml:"minWordLength"`
}

// CorpusConfig locates the dated article files.
type CorpusConfig struct {
	ArticlesDir string `yaml:"articlesDir"`
	Pattern     string `yaml:"pattern"`
	ReadWorkers int    `yaml:"readWorkers"`
}

// RenderConfig selects the snapshot sinks for a run.
type RenderConfig struct {
	Sinks      []string `yaml:"sinks"`
	OutputPath string   `yaml:"outputPath"`
	DebugEvery int      `yaml:"debugEvery"`
	BatchSize  int      `yaml:"batchSize"`

	// ConnectAttempts bounds connection attempts per network sink.
	ConnectAttempts int `yaml:"connectAttempts"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig points at the local snapshot database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds the broker list and snapshot topic.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	SnapshotTopic string   `yaml:"snapshotTopic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values. Load does not validate; call Validate once all overrides are in.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config with the stock engine and tokenizer settings.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxQueueSize:    500,
			MaxDisplayWords: 50,
			WordsPerFrame:   1,
		},
		Tokenizer: TokenizerConfig{
			Lowercase:       true,
			FilterStopwords: true,
			Stemmer:         "porter",
			StemCacheSize:   4096,
			MinWordLength:   2,
		},
		Corpus: CorpusConfig{
			ArticlesDir: "articles",
			Pattern:     "*.txt",
			ReadWorkers: 8,
		},
		Render: RenderConfig{
			Sinks:      []string{"progress"},
			OutputPath: "snapshots.jsonl",
			DebugEvery:      100,
			BatchSize:       100,
			ConnectAttempts: 3,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "timecloud",
			User:            "timecloud",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "timecloud.db",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "timecloud:",
			CacheTTL:  10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			SnapshotTopic: "timecloud-snapshots",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

var knownSinks = map[string]struct{}{
	"debug": {}, "progress": {}, "jsonl": {}, "sqlite": {},
	"postgres": {}, "redis": {}, "kafka": {},
}

// Validate checks every bound the engine and tokenizer rely on. The returned
// error wraps errors.ErrInvalidConfig and names the first offending field.
func (c *Config) Validate() error {
	switch {
	case c.Engine.MaxQueueSize <= 0:
		return apperrors.Configf("engine.maxQueueSize", "must be positive, got %d", c.Engine.MaxQueueSize)
	case c.Engine.MaxDisplayWords <= 0:
		return apperrors.Configf("engine.maxDisplayWords", "must be positive, got %d", c.Engine.MaxDisplayWords)
	case c.Engine.WordsPerFrame <= 0:
		return apperrors.Configf("engine.wordsPerFrame", "must be positive, got %d", c.Engine.WordsPerFrame)
	case c.Tokenizer.MinWordLength < 0:
		return apperrors.Configf("tokenizer.minWordLength", "must not be negative, got %d", c.Tokenizer.MinWordLength)
	case c.Tokenizer.StemCacheSize < 0:
		return apperrors.Configf("tokenizer.stemCacheSize", "must not be negative, got %d", c.Tokenizer.StemCacheSize)
	case c.Corpus.Pattern == "":
		return apperrors.Configf("corpus.pattern", "must not be empty")
	case c.Render.BatchSize <= 0:
		return apperrors.Configf("render.batchSize", "must be positive, got %d", c.Render.BatchSize)
	case c.Render.DebugEvery <= 0:
		return apperrors.Configf("render.debugEvery", "must be positive, got %d", c.Render.DebugEvery)
	case c.Render.ConnectAttempts <= 0:
		return apperrors.Configf("render.connectAttempts", "must be positive, got %d", c.Render.ConnectAttempts)
	}
	if len(c.Render.Sinks) == 0 {
		return apperrors.Configf("render.sinks", "at least one sink is required")
	}
	for _, sink := range c.Render.Sinks {
		if _, ok := knownSinks[sink]; !ok {
			return apperrors.Configf("render.sinks", "unknown sink %q", sink)
		}
	}
	return nil
}

// applyEnvOverrides reads TC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TC_ENGINE_MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxQueueSize = n
		}
	}
	if v := os.Getenv("TC_ENGINE_MAX_DISPLAY_WORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxDisplayWords = n
		}
	}
	if v := os.Getenv("TC_ENGINE_WORDS_PER_FRAME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.WordsPerFrame = n
		}
	}
	if v := os.Getenv("TC_TOKENIZER_STOPWORDS_FILE"); v != "" {
		cfg.Tokenizer.StopwordsFile = v
	}
	if v := os.Getenv("TC_TOKENIZER_STEMMER"); v != "" {
		cfg.Tokenizer.Stemmer = v
	}
	if v := os.Getenv("TC_CORPUS_ARTICLES_DIR"); v != "" {
		cfg.Corpus.ArticlesDir = v
	}
	if v := os.Getenv("TC_RENDER_SINKS"); v != "" {
		cfg.Render.Sinks = strings.Split(v, ",")
	}
	if v := os.Getenv("TC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TC_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("TC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TC_KAFKA_SNAPSHOT_TOPIC"); v != "" {
		cfg.Kafka.SnapshotTopic = v
	}
	if v := os.Getenv("TC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
			cfg.Metrics.Enabled = true
		}
	}
}
