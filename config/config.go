package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-monolith/mono"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Host               string        `env:"HOST"`
	Port               int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	PublicDir          string        `env:"PUBLIC_DIR,default=./public"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=*" validate:"required"`
	LogLevel           string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`

	MaxMessageLength   int `env:"MAX_MESSAGE_LENGTH,default=5000" validate:"min=1"`
	SendQueueSize      int `env:"SEND_QUEUE_SIZE,default=64" validate:"min=1"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST,default=20" validate:"min=1"`
	RateLimitPerSecond int `env:"RATE_LIMIT_PER_SECOND,default=10" validate:"min=1"`

	GeminiAPIKey   string        `env:"GEMINI_API"`
	GeminiModel    string        `env:"GEMINI_MODEL,default=gemini-2.5-flash" validate:"required"`
	GeminiBaseURL  string        `env:"GEMINI_BASE_URL,default=https://generativelanguage.googleapis.com" validate:"url"`
	AssistTriggers string        `env:"ASSIST_TRIGGERS,default=a great big tree"`
	AssistLanguage string        `env:"ASSIST_LANGUAGE,default=English" validate:"required"`
	AssistTimeout  time.Duration `env:"ASSIST_TIMEOUT,default=30s" validate:"gt=0"`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MonoLogLevel maps LOG_LEVEL onto the framework's log level.
func (c Config) MonoLogLevel() mono.LogLevel {
	switch c.LogLevel {
	case "debug":
		return mono.LogLevelDebug
	case "warn":
		return mono.LogLevelWarn
	case "error":
		return mono.LogLevelError
	default:
		return mono.LogLevelInfo
	}
}

// Triggers returns the assist trigger phrases, comma separated in ASSIST_TRIGGERS.
func (c Config) Triggers() []string {
	parts := lo.Map(strings.Split(c.AssistTriggers, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(parts)
}

// AssistEnabled reports whether the text-generation side feature can run.
func (c Config) AssistEnabled() bool {
	return c.GeminiAPIKey != "" && len(c.Triggers()) > 0
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an optional .env file, then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
