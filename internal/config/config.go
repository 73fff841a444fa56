// Package config loads all runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime settings for the interview service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"interviewd"`

	// AllowedOrigins is the CORS allow-list. Empty means same-origin only.
	AllowedOrigins []string `env:"APP_ALLOWED_ORIGINS" envSeparator:","`

	// Session store.
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	SessionKeyPrefix string        `env:"SESSION_KEY_PREFIX" envDefault:"session:"`
	CookieName       string        `env:"SESSION_COOKIE_NAME" envDefault:"interview_session"`

	// Model provider. The API key and assistant ids come from the secret
	// provider, not from here.
	ModelBaseURL   string `env:"MODEL_BASE_URL"`
	ChatModel      string `env:"CHAT_MODEL" envDefault:"o4-mini"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-large"`

	// StructuredReplies makes the agent request bookkeeping values as reply
	// fields through a forced tool instead of text markers. Off by default:
	// the hosted interview prompts still instruct the marker convention.
	StructuredReplies bool `env:"STRUCTURED_REPLIES" envDefault:"false"`

	// Context retrieval. Empty DatabaseURL disables retrieval.
	DatabaseURL  string `env:"DATABASE_URL"`
	EmbeddingDim int    `env:"EMBEDDING_DIM" envDefault:"3072"`
	RetrievalTop int    `env:"RETRIEVAL_TOP_K" envDefault:"5"`

	// Speech synthesis.
	SpeechWSBaseURL   string `env:"SPEECH_WS_BASE_URL" envDefault:"wss://speech.platform.bing.com"`
	VisemeMinGapMS    int    `env:"VISEME_MIN_GAP_MS" envDefault:"75"`
	DefaultAvatar     string `env:"DEFAULT_AVATAR" envDefault:"avatar_4"`
	DefaultVoice      string `env:"DEFAULT_VOICE" envDefault:"en-GB-OliverNeural"`
	DefaultVoiceRate  int    `env:"DEFAULT_VOICE_RATE" envDefault:"0"`

	// Candidate directory.
	DirectoryBaseURL string `env:"DIRECTORY_BASE_URL" envDefault:"https://www.wixapis.com/wix-data/v2"`
	MediaBaseURL     string `env:"MEDIA_BASE_URL" envDefault:"https://www.wixapis.com"`
	InterviewTitle   string `env:"INTERVIEW_TITLE" envDefault:"Barclays"`

	// Where the client is redirected after a successful auto-login.
	InterfaceURL string `env:"INTERFACE_URL" envDefault:"/candidate/interface"`
}

// Load reads environment variables, applies defaults and validates.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.SessionTTL < time.Minute {
		return Config{}, fmt.Errorf("SESSION_TTL must be at least 1m")
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.RetrievalTop <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if cfg.VisemeMinGapMS < 0 {
		return Config{}, fmt.Errorf("VISEME_MIN_GAP_MS must be >= 0")
	}

	return cfg, nil
}
