package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sheetinsight-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port              string
	CORSAllowOrigin   []string
	ObjectStoreType   string
	LocalStoreDir     string
	AWSRegion         string
	S3Bucket          string
	S3Prefix          string
	SSEKMSKeyID       string
	QueueURL          string
	LLMProvider       string
	LLMModel          string
	LLMAPIKey         string
	DatabaseURL       string
	Env               string
	JWTSecret         string
	JWTTTL            time.Duration
	MaxUploadBytes    int64
	WorkerConcurrency int
	StatsOutlierSigma float64
	StatsTrendRatio   float64
}

const devJWTSecret = "dev-only-secret"

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Already-set variables win over file values.
	if files := existing(".env", "cmd/.env"); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			telemetry.Error("config.dotenv_failed", map[string]any{"err": err.Error()})
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	secret := os.Getenv("JWT_SECRET")

	if env == "production" && dbURL == "" {
		telemetry.Error("config.missing", map[string]any{"key": "DATABASE_URL"})
	}
	if secret == "" {
		if env == "production" {
			telemetry.Error("config.missing", map[string]any{"key": "JWT_SECRET"})
		}
		secret = devJWTSecret
	}

	provider := normalizeProvider(getEnv("LLM_PROVIDER", "none"))
	return Config{
		Port:              getEnv("PORT", "8080"),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),
		QueueURL:          getEnv("SQS_QUEUE_URL", ""),
		LLMProvider:       provider,
		LLMModel:          getEnv("LLM_MODEL", defaultModel(provider)),
		LLMAPIKey:         llmKey(provider),
		DatabaseURL:       dbURL,
		Env:               env,
		JWTSecret:         secret,
		JWTTTL:            getDuration("JWT_TTL", 30*24*time.Hour),
		MaxUploadBytes:    int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 4),
		StatsOutlierSigma: getFloat("STATS_OUTLIER_SIGMA", 2),
		StatsTrendRatio:   getFloat("STATS_TREND_RATIO", 0.1),
	}
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "none"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return ""
	}
}

func llmKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}
