// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the HTTP server, logging,
// the database, the assignment engine's tuning, notification transport,
// background jobs, rate limiting and observability.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ServerConfig defines HTTP server settings.
type ServerConfig struct {
	Port              string        // PORT, just the number
	ReadTimeout       time.Duration // READ_TIMEOUT
	ReadHeaderTimeout time.Duration // READ_HEADER_TIMEOUT
	WriteTimeout      time.Duration // WRITE_TIMEOUT
	IdleTimeout       time.Duration // IDLE_TIMEOUT
	MaxHeaderBytes    int           // MAX_HEADER_BYTES
	GinMode           string        // debug|release|test
}

// DBConfig selects the storage driver.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	DSN    string // DB_DSN; for sqlite falls back to DB_PATH
}

// EngineConfig tunes candidate scoring and write-conflict handling.
type EngineConfig struct {
	WeightRating  float64       // SCORE_WEIGHT_RATING
	WeightLoad    float64       // SCORE_WEIGHT_LOAD
	MaxAttempts   int           // ASSIGN_MAX_ATTEMPTS
	RetryBackoff  time.Duration // ASSIGN_RETRY_BACKOFF
	NotifyTimeout time.Duration // NOTIFY_TIMEOUT
}

// NotifyConfig configures the AMQP notification transport. An empty URL
// keeps notifications in the log only.
type NotifyConfig struct {
	AMQPURL    string // AMQP_URL
	Exchange   string // AMQP_EXCHANGE
	RoutingKey string // AMQP_ROUTING_KEY
}

// JobsConfig configures the background schedulers. An empty schedule
// disables the job.
type JobsConfig struct {
	SweepSchedule    string        // SWEEP_SCHEDULE (cron spec)
	SweepConcurrency int           // SWEEP_CONCURRENCY
	SweepBatch       int           // SWEEP_BATCH
	SLASchedule      string        // SLA_SCHEDULE (cron spec)
	SLAPendingAfter  time.Duration // SLA_PENDING_AFTER
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	Server ServerConfig

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB     DBConfig
	Engine EngineConfig
	Notify NotifyConfig
	Jobs   JobsConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result. All validation problems are
// reported together.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:              getenv("PORT", "8080"),
			ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
			ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
			WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
			IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
			MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
			GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		},

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:    getenv("DB_DSN", getenv("DB_PATH", "cases.db")),
		},
		Engine: EngineConfig{
			WeightRating:  getfloat("SCORE_WEIGHT_RATING", 0.5),
			WeightLoad:    getfloat("SCORE_WEIGHT_LOAD", 0.5),
			MaxAttempts:   getint("ASSIGN_MAX_ATTEMPTS", 3),
			RetryBackoff:  getdur("ASSIGN_RETRY_BACKOFF", 20*time.Millisecond),
			NotifyTimeout: getdur("NOTIFY_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			AMQPURL:    getenv("AMQP_URL", ""),
			Exchange:   getenv("AMQP_EXCHANGE", "case-router.events"),
			RoutingKey: getenv("AMQP_ROUTING_KEY", "assignment.assigned"),
		},
		Jobs: JobsConfig{
			SweepSchedule:    strings.TrimSpace(getenv("SWEEP_SCHEDULE", "@every 5m")),
			SweepConcurrency: getint("SWEEP_CONCURRENCY", 4),
			SweepBatch:       getint("SWEEP_BATCH", 100),
			SLASchedule:      strings.TrimSpace(getenv("SLA_SCHEDULE", "@every 15m")),
			SLAPendingAfter:  getdur("SLA_PENDING_AFTER", 24*time.Hour),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-case-router"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.Server.GinMode {
	case "debug", "release", "test":
	default:
		cfg.Server.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	var errs []error
	fail := func(msg string) { errs = append(errs, errors.New(msg)) }

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		fail("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}

	s := cfg.Server
	if strings.TrimSpace(s.Port) == "" {
		fail("PORT must not be empty")
	}
	if s.ReadTimeout <= 0 || s.ReadHeaderTimeout <= 0 || s.WriteTimeout <= 0 || s.IdleTimeout <= 0 {
		fail("timeouts must be positive durations")
	}
	if s.MaxHeaderBytes <= 0 {
		fail("MAX_HEADER_BYTES must be > 0")
	}

	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		fail("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		fail("DB_DSN must not be empty")
	}

	e := cfg.Engine
	if !nonNegative(e.WeightRating) || !nonNegative(e.WeightLoad) {
		fail("SCORE_WEIGHT_RATING and SCORE_WEIGHT_LOAD must be >= 0")
	} else if e.WeightRating+e.WeightLoad == 0 {
		fail("SCORE_WEIGHT_RATING and SCORE_WEIGHT_LOAD must not both be 0")
	}
	if e.MaxAttempts < 1 {
		fail("ASSIGN_MAX_ATTEMPTS must be >= 1")
	}
	if e.RetryBackoff < 0 {
		fail("ASSIGN_RETRY_BACKOFF must be >= 0")
	}
	if e.NotifyTimeout <= 0 {
		fail("NOTIFY_TIMEOUT must be > 0")
	}

	if cfg.Notify.AMQPURL != "" && strings.TrimSpace(cfg.Notify.Exchange) == "" {
		fail("AMQP_EXCHANGE must not be empty when AMQP_URL is set")
	}

	j := cfg.Jobs
	if err := validSchedule(j.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_SCHEDULE: %w", err))
	}
	if err := validSchedule(j.SLASchedule); err != nil {
		errs = append(errs, fmt.Errorf("SLA_SCHEDULE: %w", err))
	}
	if j.SweepConcurrency < 1 {
		fail("SWEEP_CONCURRENCY must be >= 1")
	}
	if j.SweepBatch < 1 {
		fail("SWEEP_BATCH must be >= 1")
	}
	if j.SLAPendingAfter <= 0 {
		fail("SLA_PENDING_AFTER must be > 0")
	}

	if cfg.RateRPS < 0 {
		fail("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		fail("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		fail("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		fail("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		fail("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return errors.Join(errs...)
}

// validSchedule accepts an empty spec (job disabled) or anything the
// standard cron parser understands, including descriptors like "@every 5m".
func validSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	_, err := cron.ParseStandard(spec)
	return err
}

func nonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
