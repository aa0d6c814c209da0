package infra

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendMinio      = "minio"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	TokenTTL      time.Duration
	DefaultLocale string
	GeoIPDBPath   string
	CORSOrigins   []string

	StorageBackend       string
	StoragePath          string
	StorageBaseURL       string
	StoragePresignTTL    time.Duration
	MinioEndpoint        string
	MinioAccessKey       string
	MinioSecretKey       string
	MinioBucket          string
	MinioUseSSL          bool
	ImageSourceAllowlist []string

	RedisURL   string
	SessionTTL time.Duration

	DiagnosisAPIKey   string
	ImageGenAPIKey    string
	GeminiBaseURL     string
	DiagnosisModel    string
	ImageModel        string
	GenAIMaxAttempts  int
	GenAIInitialDelay time.Duration
	GenAIMaxDelay     time.Duration

	LINEProfileURL string

	UploadMaxBytes          int64
	UploadImageMaxDimension int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          port,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      time.Hour * time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "ja"),
		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendFilesystem)),
		StoragePath:       getEnv("STORAGE_PATH", "./data/storage"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		StoragePresignTTL: time.Minute * time.Duration(getEnvInt("STORAGE_PRESIGN_TTL_MINUTES", 60)),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getEnv("MINIO_BUCKET", "hairstudio"),
		MinioUseSSL:       getEnvBool("MINIO_USE_SSL", false),

		RedisURL:   os.Getenv("REDIS_URL"),
		SessionTTL: time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)),

		DiagnosisAPIKey:   os.Getenv("LLM_APIKEY"),
		ImageGenAPIKey:    os.Getenv("IMAGEGEN_APIKEY"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		DiagnosisModel:    getEnv("DIAGNOSIS_MODEL", "gemini-2.5-flash-preview-09-2025"),
		ImageModel:        getEnv("IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		GenAIMaxAttempts:  getEnvInt("GENAI_MAX_ATTEMPTS", 3),
		GenAIInitialDelay: time.Millisecond * time.Duration(getEnvInt("GENAI_RETRY_INITIAL_MS", 1000)),
		GenAIMaxDelay:     time.Millisecond * time.Duration(getEnvInt("GENAI_RETRY_MAX_MS", 0)),

		LINEProfileURL: getEnv("LINE_PROFILE_URL", "https://api.line.me/v2/profile"),

		UploadMaxBytes:          int64(getEnvInt("UPLOAD_MAX_BYTES", 200<<20)),
		UploadImageMaxDimension: getEnvInt("UPLOAD_IMAGE_MAX_DIMENSION", 1600),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 120)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageBackend {
	case StorageBackendFilesystem:
	case StorageBackendMinio:
		if cfg.MinioEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_BACKEND=minio")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.GenAIMaxAttempts <= 0 {
		return nil, fmt.Errorf("GENAI_MAX_ATTEMPTS must be positive")
	}

	sources := []string{cfg.StorageBaseURL}
	if cfg.StorageBackend == StorageBackendMinio {
		sources = append(sources, "//"+cfg.MinioEndpoint)
	}
	cfg.ImageSourceAllowlist = buildAllowlist(sources, os.Getenv("IMAGE_SOURCE_HOST_ALLOWLIST"))

	return cfg, nil
}

func buildAllowlist(urls []string, explicit string) []string {
	seen := map[string]struct{}{}
	for _, raw := range urls {
		if host := hostOf(raw); host != "" {
			seen[host] = struct{}{}
		}
	}
	for _, entry := range splitList(explicit) {
		seen[strings.ToLower(entry)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
