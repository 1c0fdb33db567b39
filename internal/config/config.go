// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, store TTLs, upstream endpoints (messaging
// gateway, trigger scheduler, extraction), webhook signing, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-reminder-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// TTLConfig groups the expiry windows of every store category.
type TTLConfig struct {
	Schedule    time.Duration // SCHEDULE_TTL: active trigger-id sets
	Guardian    time.Duration // GUARDIAN_TTL: guardian links
	Verify      time.Duration // VERIFY_TTL: one-time verification codes
	Verified    time.Duration // VERIFIED_TTL: verified-chat markers
	Idempotency time.Duration // IDEMPOTENCY_TTL: per-day dispatch markers
}

// TelegramConfig defines the messaging gateway connection.
type TelegramConfig struct {
	BotToken      string        // TELEGRAM_BOT_TOKEN
	DefaultChatID string        // TELEGRAM_CHAT_ID: deployment-default patient
	BaseURL       string        // TELEGRAM_API_BASE_URL
	Timeout       time.Duration // TELEGRAM_TIMEOUT
}

// SchedulerConfig defines the external cron-trigger service connection and
// the webhook signing keys it uses when calling back.
type SchedulerConfig struct {
	Token             string        // SCHEDULER_TOKEN
	BaseURL           string        // SCHEDULER_BASE_URL
	Timeout           time.Duration // SCHEDULER_TIMEOUT
	NotifyBaseURL     string        // NOTIFY_BASE_URL: public base for the webhook destination
	CurrentSigningKey string        // SCHEDULER_CURRENT_SIGNING_KEY
	NextSigningKey    string        // SCHEDULER_NEXT_SIGNING_KEY
	SkipSignature     bool          // SKIP_SIGNATURE_CHECK: local testing only, never the default
}

// ExtractionConfig defines the prescription extraction collaborator.
// An empty APIKey switches the service to a fixed mock result.
type ExtractionConfig struct {
	APIKey  string        // GEMINI_API_KEY
	BaseURL string        // GEMINI_BASE_URL
	Model   string        // GEMINI_MODEL
	Timeout time.Duration // EXTRACTION_TIMEOUT
}

// DrugInfoConfig defines the optional government drug lookup.
type DrugInfoConfig struct {
	APIKey  string        // MFDS_API_KEY (empty disables the lookup)
	BaseURL string        // MFDS_BASE_URL
	Timeout time.Duration // MFDS_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Store
	DBPath string // SQLite path
	TTL    TTLConfig

	// Upstreams
	Telegram   TelegramConfig
	Scheduler  SchedulerConfig
	Extraction ExtractionConfig
	DrugInfo   DrugInfoConfig

	// Upload limits
	MaxUploadBytes int64 // max prescription image size

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
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

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBPath: getenv("DB_PATH", "app.db"),
		TTL: TTLConfig{
			Schedule:    getdur("SCHEDULE_TTL", 60*24*time.Hour),
			Guardian:    getdur("GUARDIAN_TTL", 30*24*time.Hour),
			Verify:      getdur("VERIFY_TTL", 5*time.Minute),
			Verified:    getdur("VERIFIED_TTL", 30*24*time.Hour),
			Idempotency: getdur("IDEMPOTENCY_TTL", 25*time.Hour),
		},

		// Upstreams
		Telegram: TelegramConfig{
			BotToken:      getenv("TELEGRAM_BOT_TOKEN", ""),
			DefaultChatID: getenv("TELEGRAM_CHAT_ID", ""),
			BaseURL:       getenv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			Timeout:       getdur("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		Scheduler: SchedulerConfig{
			Token:             getenv("SCHEDULER_TOKEN", ""),
			BaseURL:           getenv("SCHEDULER_BASE_URL", "https://qstash.upstash.io"),
			Timeout:           getdur("SCHEDULER_TIMEOUT", 10*time.Second),
			NotifyBaseURL:     getenv("NOTIFY_BASE_URL", "http://localhost:8080"),
			CurrentSigningKey: getenv("SCHEDULER_CURRENT_SIGNING_KEY", ""),
			NextSigningKey:    getenv("SCHEDULER_NEXT_SIGNING_KEY", ""),
			SkipSignature:     getbool("SKIP_SIGNATURE_CHECK", false),
		},
		Extraction: ExtractionConfig{
			APIKey:  getenv("GEMINI_API_KEY", ""),
			BaseURL: getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Model:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getdur("EXTRACTION_TIMEOUT", 10*time.Second),
		},
		DrugInfo: DrugInfoConfig{
			APIKey:  getenv("MFDS_API_KEY", ""),
			BaseURL: getenv("MFDS_BASE_URL", "https://apis.data.go.kr/1471000/DrbEasyDrugInfoService"),
			Timeout: getdur("MFDS_TIMEOUT", 5*time.Second),
		},

		// Upload limits
		MaxUploadBytes: getint64("MAX_UPLOAD_BYTES", 10<<20),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-reminder-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Telegram.BaseURL = strings.TrimRight(cfg.Telegram.BaseURL, "/")
	cfg.Scheduler.BaseURL = strings.TrimRight(cfg.Scheduler.BaseURL, "/")
	cfg.Scheduler.NotifyBaseURL = strings.TrimRight(cfg.Scheduler.NotifyBaseURL, "/")
	cfg.Extraction.BaseURL = strings.TrimRight(cfg.Extraction.BaseURL, "/")
	cfg.DrugInfo.BaseURL = strings.TrimRight(cfg.DrugInfo.BaseURL, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.TTL.Schedule <= 0 || cfg.TTL.Guardian <= 0 || cfg.TTL.Verify <= 0 ||
		cfg.TTL.Verified <= 0 || cfg.TTL.Idempotency <= 0 {
		return cfg, errors.New("store TTLs must be positive durations")
	}
	if cfg.Telegram.Timeout <= 0 || cfg.Scheduler.Timeout <= 0 ||
		cfg.Extraction.Timeout <= 0 || cfg.DrugInfo.Timeout <= 0 {
		return cfg, errors.New("upstream timeouts must be positive durations")
	}
	if !cfg.Scheduler.SkipSignature && cfg.Scheduler.CurrentSigningKey == "" {
		return cfg, errors.New("SCHEDULER_CURRENT_SIGNING_KEY is required unless SKIP_SIGNATURE_CHECK=true")
	}
	if cfg.MaxUploadBytes <= 0 {
		return cfg, errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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
		if d, err := time.ParseDuration(v); err == nil {
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
		t := strings.TrimSpace(p)
		if t != "" {
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
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
