// Package config loads runtime settings from the environment.
//
// Outside production a local .env file is read first (godotenv never
// overrides variables that are already set), so a developer can keep
// secrets out of their shell history.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Env      string
	Port     int
	DBPath   string
	LogLevel slog.Level

	// Auth
	JWTSecret          string
	TokenTTL           time.Duration
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	// ClientURL is where the GitHub callback sends the browser afterwards.
	ClientURL string

	// CORS
	AllowedOrigins []string

	// Real-time fan-out across instances. Empty means in-process only.
	RedisURL string

	// Media storage (S3 or any S3-compatible endpoint such as R2/MinIO).
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string

	// Rate limiting of mutating routes, per caller.
	RateLimitRPS   float64
	RateLimitBurst int

	// NotificationTail is how many log entries a profile read returns.
	NotificationTail int
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// MediaEnabled reports whether upload signing is configured.
func (c *Config) MediaEnabled() bool {
	return c.S3Bucket != ""
}

// Load reads the environment (and .env outside production) and validates it.
func Load() (*Config, error) {
	env := getEnv("ENV", "development")
	if env != "production" {
		_ = godotenv.Load() // optional .env for local
	}
	return fromEnv(env)
}

// fromEnv does the parsing. Split out so tests can drive it with t.Setenv
// without a .env file on disk getting in the way.
func fromEnv(env string) (*Config, error) {
	var errs []error

	port, err := getInt("PORT", 8080)
	errs = append(errs, err)
	ttl, err := getDuration("TOKEN_TTL", 168*time.Hour)
	errs = append(errs, err)
	rps, err := getFloat("RATE_LIMIT_RPS", 5)
	errs = append(errs, err)
	burst, err := getInt("RATE_LIMIT_BURST", 10)
	errs = append(errs, err)
	tail, err := getInt("NOTIFICATION_TAIL", 10)
	errs = append(errs, err)
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	errs = append(errs, err)

	cfg := &Config{
		Env:      env,
		Port:     port,
		DBPath:   getEnv("DB_PATH", "data/chirp.db"),
		LogLevel: level,

		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           ttl,
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/auth/github/callback", port)),
		ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		RedisURL: os.Getenv("REDIS_URL"),

		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicURL:       os.Getenv("S3_PUBLIC_URL"),

		RateLimitRPS:     rps,
		RateLimitBurst:   burst,
		NotificationTail: tail,
	}

	if len(cfg.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	if cfg.NotificationTail <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_TAIL must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q", key, v)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return l, nil
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
