package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Speech-to-text (OpenAI-compatible audio/transcriptions endpoint)
	STTURL     string        `env:"STT_URL" envDefault:"https://api.groq.com/openai/v1/audio/transcriptions"`
	STTAPIKey  string        `env:"STT_API_KEY,required"`
	STTModel   string        `env:"STT_MODEL" envDefault:"distil-whisper-large-v3-en"`
	STTTimeout time.Duration `env:"STT_TIMEOUT" envDefault:"5m"`

	// Chunking
	MaxChunkMB         int    `env:"MAX_CHUNK_MB" envDefault:"25"`
	ChunkFailurePolicy string `env:"CHUNK_FAILURE_POLICY" envDefault:"strict"`

	// Summarization (OpenAI-compatible chat completions endpoint)
	SummaryBaseURL string        `env:"SUMMARY_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	SummaryAPIKey  string        `env:"SUMMARY_API_KEY"`
	SummaryModel   string        `env:"SUMMARY_MODEL" envDefault:"meta-llama/llama-3.2-1b-instruct:free"`
	SummaryTimeout time.Duration `env:"SUMMARY_TIMEOUT" envDefault:"2m"`

	// Media
	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	// Storage
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	InboxDir string `env:"INBOX_DIR"` // empty = inbox watcher disabled

	// Worker pool
	Workers   int `env:"WORKERS" envDefault:"2"`
	QueueSize int `env:"QUEUE_SIZE" envDefault:"32"`

	// HTTP server
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Optional MQTT completion notifications
	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"vt-engine"`
	MQTTTopic     string `env:"MQTT_TOPIC" envDefault:"vt-engine/completions"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	S3 S3Config `envPrefix:"S3_"`
}

// S3Config configures the optional transcript archive.
type S3Config struct {
	Endpoint  string `env:"ENDPOINT"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Bucket    string `env:"BUCKET"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX"`
}

// Enabled reports whether the S3 archive is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// MaxChunkBytes returns the chunk size limit in bytes.
func (c *Config) MaxChunkBytes() int {
	return c.MaxChunkMB * 1024 * 1024
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	DataDir  string
	InboxDir string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DataDir != "" {
		cfg.DataDir = overrides.DataDir
	}
	if overrides.InboxDir != "" {
		cfg.InboxDir = overrides.InboxDir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxChunkMB <= 0 {
		return fmt.Errorf("MAX_CHUNK_MB must be positive, got %d", c.MaxChunkMB)
	}
	switch c.ChunkFailurePolicy {
	case "strict", "tolerant":
	default:
		return fmt.Errorf("CHUNK_FAILURE_POLICY must be %q or %q, got %q", "strict", "tolerant", c.ChunkFailurePolicy)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1, got %d", c.Workers)
	}
	return nil
}
