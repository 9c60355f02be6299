package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AI        AIConfig        `mapstructure:"ai"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Plans     PlansConfig     `mapstructure:"plans"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	SaaS      SaaSConfig      `mapstructure:"saas"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReleaseMode     bool          `mapstructure:"release_mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins is checked on websocket upgrades. Empty allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RequestsPerMinute caps each authenticated user. Zero disables it.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	PublicBaseURL   string `mapstructure:"public_base_url"` // Used for public assets such as gym logos
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AIConfig configures the plan generator endpoint (OpenAI compatible).
type AIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BaseDelay         time.Duration `mapstructure:"base_delay"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type CheckoutConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Currency      string `mapstructure:"currency"`
	ReturnBaseURL string `mapstructure:"return_base_url"` // SPA origin the provider redirects back to
}

type PlansConfig struct {
	BatchSize int `mapstructure:"batch_size"`
	// KeyByPlanMonth switches template lookup from calendar month to
	// months elapsed since the plan start.
	KeyByPlanMonth bool `mapstructure:"key_by_plan_month"`
}

type CacheConfig struct {
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ExpirySchedule string `mapstructure:"expiry_schedule"` // cron spec
}

// SaaSConfig holds platform tier prices in cents per 30-day cycle.
type SaaSConfig struct {
	StarterPriceCents int64 `mapstructure:"starter_price_cents"`
	GrowthPriceCents  int64 `mapstructure:"growth_price_cents"`
	ProPriceCents     int64 `mapstructure:"pro_price_cents"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in path, when present, seeds variables that are not
// already set in the environment.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	if envMap, envErr := godotenv.Read(path + "/.env"); envErr == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // Env vars and defaults are enough
	} else if err != nil {
		return
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, k := range v.AllKeys() {
		_ = v.BindEnv(k)
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if err = config.Validate(); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.release_mode", false)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.requests_per_minute", 120)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "gymdesk")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.public_base_url", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "90s")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.base_delay", "1s")
	v.SetDefault("ai.requests_per_minute", 20)
	v.SetDefault("checkout.secret_key", "")
	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("checkout.return_base_url", "http://localhost:5173")
	v.SetDefault("plans.batch_size", 50)
	v.SetDefault("plans.key_by_plan_month", false)
	v.SetDefault("cache.stats_ttl", "5m")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.expiry_schedule", "@hourly")
	v.SetDefault("saas.starter_price_cents", 2900)
	v.SetDefault("saas.growth_price_cents", 7900)
	v.SetDefault("saas.pro_price_cents", 14900)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.Plans.BatchSize <= 0 {
		return errors.New("config: plans.batch_size must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return errors.New("config: ai.max_retries must not be negative")
	}
	return nil
}
