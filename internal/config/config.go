package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kode4food/stepflow/pkg/api"
)

type (
	// Config holds configuration settings for the workflow host
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Steps & Retry
		StepTimeout time.Duration
		MaxRetries  int
		Retry       api.RetryConfig

		// Engine
		Parallelism     int
		WorkflowTimeout time.Duration
		ShutdownTimeout time.Duration
		OverridesFile   string

		// Collaborators
		Archive    ArchiveConfig
		Completion CompletionConfig
		Pricing    PricingConfig
	}

	// ArchiveConfig selects where finished workflow results are kept. A
	// Redis address takes precedence over a bucket URL, and with neither
	// set results are not archived. Prefix applies to Redis keys and to
	// bucket object paths
	ArchiveConfig struct {
		RedisAddr     string
		RedisPassword string
		Prefix        string
		BucketURL     string
		RedisDB       int
		TTL           time.Duration
	}

	// CompletionConfig describes the text completion service used by the
	// caller graphs
	CompletionConfig struct {
		Endpoint  string
		APIKey    string
		Model     string
		RateLimit float64
	}

	// PricingConfig describes the grocery price estimation service
	PricingConfig struct {
		Endpoint  string
		CacheSize int
	}
)

const (
	DefaultStepTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxRetries      = 3
	DefaultParallelism     = 1

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultBackoffUnit = time.Second
	DefaultMaxBackoff  = 30 * time.Second
	DefaultBackoffType = api.BackoffTypeExponential

	DefaultArchivePrefix = "stepflow"
	DefaultArchiveTTL    = 24 * time.Hour

	DefaultCompletionEndpoint = "http://localhost:11434/v1/chat/completions"
	DefaultCompletionModel    = "default"
	DefaultCompletionRate     = 5.0
	DefaultPricingCacheSize   = 4096

	MaxMaxRetries      = 1000
	MaxParallelism     = 1024
	MaxRedisDB         = 15
	MaxPricingCache    = 1_000_000
	MaxStepTimeout     = 24 * time.Hour
	MaxBackoff         = time.Hour
	MaxWorkflowTimeout = 7 * 24 * time.Hour
	MaxShutdownTimeout = 10 * time.Minute
	MaxArchiveTTL      = 365 * 24 * time.Hour
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidStepTimeout     = errors.New("step timeout must be positive")
	ErrInvalidMaxRetries      = errors.New("max retries must be positive")
	ErrInvalidBackoffUnit     = errors.New("backoff unit must be positive")
	ErrInvalidMaxBackoff      = errors.New("max backoff must be positive")
	ErrMaxBackoffTooSmall     = errors.New("max backoff must be >= backoff unit")
	ErrInvalidParallelism     = errors.New("parallelism must be positive")
	ErrInvalidWorkflowTimeout = errors.New(
		"workflow timeout cannot be negative",
	)
	ErrInvalidRateLimit = errors.New(
		"completion rate limit must be positive",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// engine, its retry behavior, and the collaborator services
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:     DefaultAPIHost,
		APIPort:     DefaultAPIPort,
		LogLevel:    "info",
		StepTimeout: DefaultStepTimeout,
		MaxRetries:  DefaultMaxRetries,
		Retry: api.RetryConfig{
			BackoffType: DefaultBackoffType,
			BackoffUnit: DefaultBackoffUnit,
			MaxBackoff:  DefaultMaxBackoff,
		},
		Parallelism:     DefaultParallelism,
		ShutdownTimeout: DefaultShutdownTimeout,
		Archive: ArchiveConfig{
			Prefix: DefaultArchivePrefix,
			TTL:    DefaultArchiveTTL,
		},
		Completion: CompletionConfig{
			Endpoint:  DefaultCompletionEndpoint,
			Model:     DefaultCompletionModel,
			RateLimit: DefaultCompletionRate,
		},
		Pricing: PricingConfig{
			CacheSize: DefaultPricingCacheSize,
		},
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	loadEnvString("API_HOST", &c.APIHost)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("RETRY_BACKOFF_TYPE", &c.Retry.BackoffType)
	loadEnvString("STEP_OVERRIDES_FILE", &c.OverridesFile)
	loadEnvString("ARCHIVE_REDIS_ADDR", &c.Archive.RedisAddr)
	loadEnvString("ARCHIVE_REDIS_PASSWORD", &c.Archive.RedisPassword)
	loadEnvString("ARCHIVE_REDIS_PREFIX", &c.Archive.Prefix)
	loadEnvString("ARCHIVE_BUCKET_URL", &c.Archive.BucketURL)
	loadEnvString("COMPLETION_ENDPOINT", &c.Completion.Endpoint)
	loadEnvString("COMPLETION_API_KEY", &c.Completion.APIKey)
	loadEnvString("COMPLETION_MODEL", &c.Completion.Model)
	loadEnvString("PRICING_ENDPOINT", &c.Pricing.Endpoint)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"STEP_MAX_RETRIES", &c.MaxRetries, 0, MaxMaxRetries,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"PARALLELISM", &c.Parallelism, 0, MaxParallelism,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"ARCHIVE_REDIS_DB", &c.Archive.RedisDB, -1, MaxRedisDB,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"PRICING_CACHE_SIZE", &c.Pricing.CacheSize, 0, MaxPricingCache,
	); err != nil {
		return err
	}

	if err := loadEnvDuration(
		"STEP_TIMEOUT", &c.StepTimeout, 0, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"RETRY_BACKOFF_UNIT", &c.Retry.BackoffUnit, 0, MaxBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"RETRY_MAX_BACKOFF", &c.Retry.MaxBackoff, 0, MaxBackoff,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"WORKFLOW_TIMEOUT", &c.WorkflowTimeout, -1, MaxWorkflowTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout, 0, MaxShutdownTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"ARCHIVE_TTL", &c.Archive.TTL, -1, MaxArchiveTTL,
	); err != nil {
		return err
	}

	if s := os.Getenv("COMPLETION_RATE_LIMIT"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid COMPLETION_RATE_LIMIT: %q", s)
		}
		c.Completion.RateLimit = v
	}
	return nil
}

// WithStepDefaults returns a copy of the config with zero-valued step and
// retry fields filled in from defaults
func (c *Config) WithStepDefaults() *Config {
	res := *c
	if res.StepTimeout <= 0 {
		res.StepTimeout = DefaultStepTimeout
	}
	if res.MaxRetries <= 0 {
		res.MaxRetries = DefaultMaxRetries
	}
	if res.Retry.BackoffUnit <= 0 {
		res.Retry.BackoffUnit = DefaultBackoffUnit
	}
	if res.Retry.MaxBackoff <= 0 {
		res.Retry.MaxBackoff = DefaultMaxBackoff
	}
	if res.Retry.BackoffType == "" {
		res.Retry.BackoffType = DefaultBackoffType
	}
	if res.Parallelism <= 0 {
		res.Parallelism = DefaultParallelism
	}
	return &res
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if err := c.ValidateEngine(); err != nil {
		return err
	}
	if c.Completion.RateLimit <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// ValidateEngine checks only the settings the workflow engine consumes
func (c *Config) ValidateEngine() error {
	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}
	if c.Retry.BackoffUnit <= 0 {
		return ErrInvalidBackoffUnit
	}
	if c.Retry.MaxBackoff <= 0 {
		return ErrInvalidMaxBackoff
	}
	if c.Retry.MaxBackoff < c.Retry.BackoffUnit {
		return ErrMaxBackoffTooSmall
	}
	if !api.IsValidBackoffType(c.Retry.BackoffType) {
		return fmt.Errorf("%w: %s",
			api.ErrInvalidBackoffType, c.Retry.BackoffType)
	}
	if c.Parallelism <= 0 {
		return ErrInvalidParallelism
	}
	if c.WorkflowTimeout < 0 {
		return ErrInvalidWorkflowTimeout
	}
	return nil
}

func loadEnvString(key string, dst *string) {
	if s := os.Getenv(key); s != "" {
		*dst = s
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration accepts Go duration strings ("1500ms", "2m") or a bare
// integer number of milliseconds
func loadEnvDuration(key string, dst *time.Duration, min, max time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		ms, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid %s: %q", key, s)
		}
		v = time.Duration(ms) * time.Millisecond
	}
	if v <= min || v > max {
		return fmt.Errorf("invalid %s: %s out of range (%s, %s]",
			key, v, min, max)
	}
	*dst = v
	return nil
}
