package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

const (
	defaultOrigin = "http://127.0.0.1:5173"
	defaultScopes = "user-read-currently-playing user-read-playback-state user-top-read"
)

// Refresh coordination modes.
const (
	RefreshCoordinationNone  = "none"
	RefreshCoordinationLocal = "local"
	RefreshCoordinationRedis = "redis"
)

// Config aggregates runtime configuration for the portfolio API.
type Config struct {
	Environment string
	HTTPPort    int
	LogLevel    string
	StaticDir   string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyScopes       []string
	SpotifyHTTPTimeout  time.Duration

	FrontendURL   string
	AllowedOrigin string
	CookieSecret  string

	RefreshCoordination string
	RedisURL            string

	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
}

// Load reads configuration from environment variables, after merging any .env file found in
// the working directory. Values already present in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load()
}

func load() (Config, error) {
	clientSecret, err := getEnvOrFile("SPOTIFY_CLIENT_SECRET", "/run/secrets/spotify_client_secret")
	if err != nil {
		return Config{}, err
	}

	cookieSecret, err := getEnvOrFile("COOKIE_SECRET", "")
	if err != nil {
		return Config{}, err
	}

	origin := strings.TrimSuffix(getEnv("ORIGIN", defaultOrigin), "/")

	cfg := Config{
		Environment:         strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", "development"))),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		StaticDir:           getEnv("WEB_DIST_PATH", ""),
		SpotifyClientID:     strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_ID")),
		SpotifyClientSecret: strings.TrimSpace(clientSecret),
		SpotifyRedirectURI:  strings.TrimSpace(os.Getenv("SPOTIFY_REDIRECT_URI")),
		SpotifyScopes:       strings.Fields(getEnv("SPOTIFY_SCOPES", defaultScopes)),
		FrontendURL:         strings.TrimSuffix(getEnv("FRONTEND_URL", origin), "/"),
		AllowedOrigin:       origin,
		CookieSecret:        strings.TrimSpace(cookieSecret),
		RefreshCoordination: strings.ToLower(getEnv("REFRESH_COORDINATION", RefreshCoordinationNone)),
		RedisURL:            getEnv("REDIS_URL", ""),
	}

	if err := cfg.requireSpotify(); err != nil {
		return Config{}, err
	}

	portValue := getEnv("PORT", "3001")
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	timeoutValue := getEnv("SPOTIFY_HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutValue)
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("invalid SPOTIFY_HTTP_TIMEOUT %q", timeoutValue)
	}
	cfg.SpotifyHTTPTimeout = timeout

	rpsValue := getEnv("RATE_LIMIT_RPS", "5")
	rps, err := strconv.ParseFloat(rpsValue, 64)
	if err != nil || rps < 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS %q", rpsValue)
	}
	cfg.RateLimitRPS = rps

	burstValue := getEnv("RATE_LIMIT_BURST", "10")
	burst, err := strconv.Atoi(burstValue)
	if err != nil || burst < 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_BURST %q", burstValue)
	}
	cfg.RateLimitBurst = burst

	metricsValue := getEnv("METRICS_ENABLED", "true")
	metricsEnabled, err := strconv.ParseBool(metricsValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid METRICS_ENABLED %q: %w", metricsValue, err)
	}
	cfg.MetricsEnabled = metricsEnabled

	switch cfg.RefreshCoordination {
	case RefreshCoordinationNone, RefreshCoordinationLocal:
	case RefreshCoordinationRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("%w: REDIS_URL is required when REFRESH_COORDINATION is redis", ErrMissingConfig)
		}
	default:
		return Config{}, fmt.Errorf("invalid REFRESH_COORDINATION %q", cfg.RefreshCoordination)
	}

	return cfg, nil
}

func (c Config) requireSpotify() error {
	missing := make([]string, 0, 3)
	if c.SpotifyClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if c.SpotifyClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if c.SpotifyRedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsProduction reports whether cookies must be Secure and proxy headers trusted.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
