package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Vision    VisionConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Rules     RulesConfig
	Pipeline  PipelineConfig
	Archive   ArchiveConfig
	Events    EventsConfig
	Ingest    IngestConfig
	Export    ExportConfig
}

// DatabaseConfig holds ledger storage configuration
type DatabaseConfig struct {
	Driver           string // "sqlite" or "postgres"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	MaxUploadBytes int64
}

// VisionConfig holds OCR collaborator configuration
type VisionConfig struct {
	Provider string // "gemini" or "openai"
	Model    string
	Timeout  time.Duration
}

// LLMConfig holds generative matcher configuration
type LLMConfig struct {
	Provider     string // "openai" or "gemini"
	Model        string
	APIKey       string
	BaseURL      string
	GeminiAPIKey string
	Temperature  float32
	Timeout      time.Duration
	MaxAttempts  int
}

// EmbeddingConfig selects the embedding function used by the rule index
type EmbeddingConfig struct {
	Provider string // "lexical" or "gemini"
	Model    string
}

// RulesConfig points at the rule knowledge base
type RulesConfig struct {
	File     string // optional YAML/JSON rule file; built-in rules when empty
	Snapshot string // optional persisted index snapshot
	TopK     int
}

// PipelineConfig tunes the receipt orchestrator
type PipelineConfig struct {
	Workers      int
	MatchTimeout time.Duration
}

// ArchiveConfig holds receipt image archive configuration
type ArchiveConfig struct {
	Bucket string
	Prefix string
	Dir    string
}

// EventsConfig holds receipt event publishing configuration
type EventsConfig struct {
	NATSURL      string
	NATSSubject  string
	AMQPURL      string
	AMQPExchange string
	AMQPRouting  string
}

// IngestConfig holds inbox watcher configuration
type IngestConfig struct {
	Roots       []string
	Patterns    []string
	Debounce    time.Duration
	Workers     int
	QueueSize   int
	FileTimeout time.Duration
}

// ExportConfig holds analytics export configuration
type ExportConfig struct {
	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "file:relief.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8081"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
		},
		Vision: VisionConfig{
			Provider: getEnv("VISION_PROVIDER", "gemini"),
			Model:    getEnv("VISION_MODEL", "gemini-2.5-flash"),
			Timeout:  getEnvAsDuration("VISION_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "openai"),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Temperature:  getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxAttempts:  getEnvAsInt("LLM_MAX_ATTEMPTS", 2),
		},
		Embedding: EmbeddingConfig{
			Provider: getEnv("EMBEDDING_PROVIDER", "lexical"),
			Model:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		},
		Rules: RulesConfig{
			File:     getEnv("RULES_FILE", ""),
			Snapshot: getEnv("RULES_SNAPSHOT", ""),
			TopK:     getEnvAsInt("RULES_TOP_K", 3),
		},
		Pipeline: PipelineConfig{
			Workers:      getEnvAsInt("PIPELINE_WORKERS", 4),
			MatchTimeout: getEnvAsDuration("MATCH_TIMEOUT", 30*time.Second),
		},
		Archive: ArchiveConfig{
			Bucket: getEnv("ARCHIVE_BUCKET", ""),
			Prefix: getEnv("ARCHIVE_PREFIX", "receipts"),
			Dir:    getEnv("ARCHIVE_DIR", ""),
		},
		Events: EventsConfig{
			NATSURL:      getEnv("NATS_URL", ""),
			NATSSubject:  getEnv("NATS_SUBJECT", "receipts.processed"),
			AMQPURL:      getEnv("AMQP_URL", ""),
			AMQPExchange: getEnv("AMQP_EXCHANGE", "receipts"),
			AMQPRouting:  getEnv("AMQP_ROUTING_KEY", "receipt.processed"),
		},
		Ingest: IngestConfig{
			Roots:       getEnvAsList("INBOX_ROOTS"),
			Patterns:    getEnvAsList("INBOX_PATTERNS"),
			Debounce:    getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
			Workers:     getEnvAsInt("INBOX_WORKERS", 2),
			QueueSize:   getEnvAsInt("INBOX_QUEUE_SIZE", 128),
			FileTimeout: getEnvAsDuration("INBOX_FILE_TIMEOUT", 3*time.Minute),
		},
		Export: ExportConfig{
			BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
			BigQueryDataset: getEnv("BIGQUERY_DATASET", "relief"),
			BigQueryTable:   getEnv("BIGQUERY_TABLE", "expenses"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateLedger checks only what the read-side commands need.
func (c *Config) ValidateLedger() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewConfigError("DB_DRIVER must be sqlite or postgres")
	}
	if c.Database.DSN == "" {
		return NewConfigError("DB_URL is required")
	}
	switch c.Embedding.Provider {
	case "lexical":
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return NewConfigError("GEMINI_API_KEY is required for EMBEDDING_PROVIDER=gemini")
		}
	default:
		return NewConfigError("EMBEDDING_PROVIDER must be lexical or gemini")
	}
	if c.Rules.TopK <= 0 {
		return NewConfigError("RULES_TOP_K must be positive")
	}
	return nil
}

// Validate checks the loaded configuration. Every failure is a configuration error.
func (c *Config) Validate() error {
	if err := c.ValidateLedger(); err != nil {
		return err
	}
	for _, p := range []struct{ name, provider string }{
		{"LLM_PROVIDER", c.LLM.Provider},
		{"VISION_PROVIDER", c.Vision.Provider},
	} {
		switch p.provider {
		case "openai":
			if c.LLM.APIKey == "" {
				return ConfigErrorf("OPENAI_API_KEY is required for %s=openai", p.name)
			}
		case "gemini":
			if c.LLM.GeminiAPIKey == "" {
				return ConfigErrorf("GEMINI_API_KEY is required for %s=gemini", p.name)
			}
		default:
			return ConfigErrorf("%s must be openai or gemini", p.name)
		}
	}
	if c.Pipeline.Workers <= 0 {
		return NewConfigError("PIPELINE_WORKERS must be positive")
	}
	if c.Server.HTTPAddr == "" {
		return NewConfigError("HTTP_ADDR is required")
	}
	return nil
}
