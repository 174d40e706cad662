package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	AppPort         string        `mapstructure:"APP_PORT" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DBDriver     string        `mapstructure:"DB_DRIVER" validate:"required,oneof=postgres sqlite"`
	DBDSN        string        `mapstructure:"DB_DSN" validate:"required"`
	DBMaxRetries int           `mapstructure:"DB_MAX_RETRIES" validate:"gte=0,lte=100"`
	DBRetryDelay time.Duration `mapstructure:"DB_RETRY_DELAY"`

	JWTSecret     string `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	JWTExpiresMin int    `mapstructure:"JWT_EXPIRES_MIN" validate:"gte=1"`

	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required_if=RedisEnabled true"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`

	SkillMatchPolicy string `mapstructure:"SKILL_MATCH_POLICY" validate:"required,oneof=subset overlap"`
	BidRatePerMin    int    `mapstructure:"BID_RATE_PER_MIN" validate:"gte=1"`
	StatsCron        string `mapstructure:"STATS_CRON" validate:"required"`

	CORSOrigins     string `mapstructure:"CORS_ORIGINS"`
	GoogleClientID  string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleSecret    string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirect  string `mapstructure:"GOOGLE_REDIRECT_URL"`
	FrontendBaseURL string `mapstructure:"FRONTEND_BASE_URL" validate:"required"`
}

var keys = []string{
	"APP_ENV", "APP_PORT", "SHUTDOWN_TIMEOUT",
	"LOG_LEVEL", "LOG_FORMAT",
	"DB_DRIVER", "DB_DSN", "DB_MAX_RETRIES", "DB_RETRY_DELAY",
	"JWT_SECRET", "JWT_EXPIRES_MIN",
	"REDIS_ENABLED", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"SKILL_MATCH_POLICY", "BID_RATE_PER_MIN", "STATS_CRON",
	"CORS_ORIGINS", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL", "FRONTEND_BASE_URL",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_RETRIES", 5)
	v.SetDefault("DB_RETRY_DELAY", "5s")
	v.SetDefault("JWT_EXPIRES_MIN", 10080)
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SKILL_MATCH_POLICY", "overlap")
	v.SetDefault("BID_RATE_PER_MIN", 10)
	v.SetDefault("STATS_CRON", "@every 1m")
	v.SetDefault("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	c.SkillMatchPolicy = strings.ToLower(strings.TrimSpace(c.SkillMatchPolicy))

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Origins splits CORS_ORIGINS into trimmed entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
