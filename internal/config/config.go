package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for every environment-driven option this service recognizes.
const (
	DefaultPort                = "8080"
	DefaultMaxFileSize         = 50 << 20 // 50 MiB
	DefaultLLMTimeoutMS        = 1_200_000
	DefaultLLMMaxRetries       = 2
	DefaultReconcileSchedule   = "*/1 * * * *"
	DefaultExtractorTimeout    = 5 * time.Minute
	DefaultShutdownTimeout     = 10 * time.Second
	DefaultReconcileStaleAfter = 30 * time.Minute
	DefaultTimeZone            = "UTC"
	DefaultCurrency            = "KZT"
	DefaultLLMModel            = "gemini-2.0-flash"
)

// Config holds every recognized environment-driven option.
type Config struct {
	DatabaseURL       string
	LLMAPIKey         string
	LLMModel          string
	LLMTimeoutMS      int
	LLMMaxRetries     int
	ExtractorPaths    []string
	ExtractorURLs     []string
	MaxFileSize       int64
	CORSAllowList     []string
	FrontendURL       string
	Port              string
	ReconcileSchedule string
	TimeZone          string
	AWSS3Bucket       string
	AWSRegion         string
	LocalArtifactDir  string
	Currency          string
}

// LLMTimeout returns the configured LLM budget as a time.Duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// NewDefaultConfig returns a Config populated with the documented defaults.
func NewDefaultConfig() *Config {
	return &Config{
		LLMTimeoutMS:      DefaultLLMTimeoutMS,
		LLMMaxRetries:     DefaultLLMMaxRetries,
		MaxFileSize:       DefaultMaxFileSize,
		Port:              DefaultPort,
		ReconcileSchedule: DefaultReconcileSchedule,
		TimeZone:          DefaultTimeZone,
		Currency:          DefaultCurrency,
		LLMModel:          DefaultLLMModel,
	}
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads the recognized environment variables over the defaults.
func Load() *Config {
	cfg := NewDefaultConfig()

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	cfg.FrontendURL = os.Getenv("FRONTEND_URL")
	cfg.AWSS3Bucket = os.Getenv("AWS_S3_BUCKET")
	cfg.AWSRegion = os.Getenv("AWS_REGION")
	cfg.LocalArtifactDir = os.Getenv("LOCAL_ARTIFACT_DIR")
	if cfg.LocalArtifactDir == "" {
		cfg.LocalArtifactDir = "./artifacts"
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLMTimeoutMS = n
		}
	}
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LLMMaxRetries = n
		}
	}
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxFileSize = n
		}
	}
	if v := os.Getenv("RECONCILE_SCHEDULE"); v != "" {
		cfg.ReconcileSchedule = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.TimeZone = v
	}
	if v := os.Getenv("REPORT_CURRENCY"); v != "" {
		cfg.Currency = v
	}

	cfg.ExtractorPaths = splitList(os.Getenv("PDF_EXTRACTOR_PATH"))
	cfg.ExtractorURLs = splitList(os.Getenv("PDF_EXTRACTOR_URL"))
	cfg.CORSAllowList = splitList(os.Getenv("CORS_ALLOW_LIST"))

	return cfg
}
