package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Lyrics  LyricsConfig
	Cache   CacheConfig
	Server  ServerConfig
	Gemini  GeminiConfig
	Spotify SpotifyConfig
	Sentry  SentryConfig
}

// LyricsConfig holds the upstream endpoints and credentials used by the resolver.
type LyricsConfig struct {
	PrimaryURL    string
	OvhURL        string
	GeniusURL     string
	GeniusToken   string
	SourceTimeout time.Duration
}

type CacheConfig struct {
	DBPath string // empty keeps the cache in memory
	TTL    time.Duration
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type GeminiConfig struct {
	Enabled bool
	APIKey  string
	Model   string
}

type SpotifyConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
}

type SentryConfig struct {
	DSN     string
	Release string
}

func (g *GeminiConfig) IsEnabled() bool {
	return g.Enabled && g.APIKey != ""
}

func (s *SpotifyConfig) IsEnabled() bool {
	return s.Enabled && s.ClientID != "" && s.ClientSecret != ""
}

func (l *LyricsConfig) HasGenius() bool {
	return l.GeniusURL != "" && l.GeniusToken != ""
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Lyrics: LyricsConfig{
			PrimaryURL:    trimURL(os.Getenv("PRIMARY_LYRICS_URL")),
			OvhURL:        trimURL(getOrDefault("LYRICS_OVH_URL", "https://api.lyrics.ovh")),
			GeniusURL:     trimURL(getOrDefault("GENIUS_API_URL", "https://api.genius.com")),
			GeniusToken:   os.Getenv("GENIUS_ACCESS_TOKEN"),
			SourceTimeout: time.Duration(getSourceTimeout()) * time.Second,
		},
		Cache: CacheConfig{
			DBPath: os.Getenv("DB_PATH"),
			TTL:    time.Duration(getCacheTTLDays()) * 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:     getOrDefault("PORT", "8080"),
			LogLevel: getOrDefault("LOG_LEVEL", "info"),
		},
		Gemini: GeminiConfig{
			Enabled: os.Getenv("GEMINI_ENABLED") == "true",
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   getOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Spotify: SpotifyConfig{
			Enabled:      os.Getenv("SPOTIFY_ENABLED") == "true",
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		},
		Sentry: SentryConfig{
			DSN:     os.Getenv("SENTRY_DSN"),
			Release: os.Getenv("RELEASE"),
		},
	}
}

func getOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func trimURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

func getSourceTimeout() int {
	timeoutStr := os.Getenv("LYRICS_SOURCE_TIMEOUT_SECONDS")
	if timeoutStr == "" {
		return 8
	}
	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil || timeout <= 0 {
		return 8
	}
	if timeout > 30 {
		return 30 // a single slow source shouldn't hold the whole chain
	}
	return timeout
}

func getCacheTTLDays() int {
	daysStr := os.Getenv("LYRICS_CACHE_TTL_DAYS")
	if daysStr == "" {
		return 365
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		return 365
	}
	if days > 3650 {
		return 3650
	}
	return days
}
