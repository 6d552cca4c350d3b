package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Anchor store connection; publishing is off when the URL is empty.
	AnchorstoreURL    string `yaml:"anchorstore_url"`
	AnchorstoreAPIKey string `yaml:"anchorstore_api_key"`

	// Worker pool
	WorkerCount          int `yaml:"worker_count"`
	MaxQueueSize         int `yaml:"max_queue_size"`
	MaxConcurrentResolve int `yaml:"max_concurrent_resolve"`

	// Request limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	MaxOffsets     int   `yaml:"max_offsets"`

	// Chunking for documents uploaded without offsets
	AnchorChunkSize int `yaml:"anchor_chunk_size"`

	// Job state and stats
	JobTTL      time.Duration `yaml:"job_ttl"`
	StatsWindow time.Duration `yaml:"stats_window"`

	// Sources
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
	SanitizeMarkdown     bool `yaml:"sanitize_markdown"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxConcurrentResolve: 8,
		MaxUploadBytes:       52428800, // 50MB
		MaxOffsets:           1000,
		AnchorChunkSize:      200,
		JobTTL:               1 * time.Hour,
		StatsWindow:          1 * time.Hour,
		PDFFallbackPdftotext: true,
		SanitizeMarkdown:     true,
	}
}

// Load builds the configuration in layers: defaults, the YAML file named by
// HTMLPATH_CONFIG, then environment variables. Variables missing from the
// process environment are also looked up in the dotenv file named by
// HTMLPATH_ENV_FILE.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("HTMLPATH_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	e := env(os.Getenv)
	if path := os.Getenv("HTMLPATH_ENV_FILE"); path != "" {
		vars, err := godotenv.Read(path)
		if err != nil {
			return cfg, fmt.Errorf("read env file %s: %w", path, err)
		}
		e = func(key string) string {
			if v := os.Getenv(key); v != "" {
				return v
			}
			return vars[key]
		}
	}

	cfg.Port = e.or("PORT", cfg.Port)
	cfg.APIKey = e.or("HTMLPATH_API_KEY", cfg.APIKey)
	cfg.AnchorstoreURL = e.or("ANCHORSTORE_URL", cfg.AnchorstoreURL)
	cfg.AnchorstoreAPIKey = e.or("ANCHORSTORE_API_KEY", cfg.AnchorstoreAPIKey)

	cfg.WorkerCount = e.intOr("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = e.intOr("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentResolve = e.intOr("MAX_CONCURRENT_RESOLVE", cfg.MaxConcurrentResolve)

	cfg.MaxUploadBytes = e.int64Or("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxOffsets = e.intOr("MAX_OFFSETS", cfg.MaxOffsets)
	cfg.AnchorChunkSize = e.intOr("ANCHOR_CHUNK_SIZE", cfg.AnchorChunkSize)

	cfg.JobTTL = e.durationOr("JOB_TTL", cfg.JobTTL)
	cfg.StatsWindow = e.durationOr("STATS_WINDOW", cfg.StatsWindow)

	cfg.PDFFallbackPdftotext = e.boolOr("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)
	cfg.SanitizeMarkdown = e.boolOr("SANITIZE_MARKDOWN", cfg.SanitizeMarkdown)

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := defaults()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentResolve <= 0 {
		c.MaxConcurrentResolve = d.MaxConcurrentResolve
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxOffsets <= 0 {
		c.MaxOffsets = d.MaxOffsets
	}
	if c.AnchorChunkSize <= 0 {
		c.AnchorChunkSize = d.AnchorChunkSize
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("HTMLPATH_API_KEY is required")
	}
	if c.AnchorstoreURL != "" && c.AnchorstoreAPIKey == "" {
		return fmt.Errorf("ANCHORSTORE_API_KEY is required when ANCHORSTORE_URL is set")
	}
	return nil
}

// env looks up a variable; an empty result means unset. Malformed values
// fall back like unset ones.
type env func(key string) string

func (e env) or(key, fallback string) string {
	if v := e(key); v != "" {
		return v
	}
	return fallback
}

func (e env) intOr(key string, fallback int) int {
	if n, err := strconv.Atoi(e(key)); err == nil {
		return n
	}
	return fallback
}

func (e env) int64Or(key string, fallback int64) int64 {
	if n, err := strconv.ParseInt(e(key), 10, 64); err == nil {
		return n
	}
	return fallback
}

func (e env) boolOr(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return fallback
}

func (e env) durationOr(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e(key)); err == nil {
		return d
	}
	return fallback
}
