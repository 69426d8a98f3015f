package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Lockout   LockoutSettings   `mapstructure:"lockout"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Password  PasswordSettings  `mapstructure:"password"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection used for login throttling.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the account event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LockoutSettings controls the brute-force lockout state machine. Both values
// are passed explicitly to the authentication service constructor.
type LockoutSettings struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Duration    time.Duration `mapstructure:"duration"`
}

// RateLimitSettings configures the per-IP login throttle window.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// PasswordSettings configures the strength validator applied at create/update.
type PasswordSettings struct {
	MinLength int `mapstructure:"min_length"`
	MinScore  int `mapstructure:"min_score"`
}

type TelemetrySettings struct {
	MetricsNamespace string `mapstructure:"metrics_namespace"`
}

// defaults doubles as the list of known keys: every entry gets a default
// value and an ACCOUNTS_-prefixed environment binding.
var defaults = map[string]any{
	"app.name": "accounts-service",
	"app.env":  "development",
	"app.host": "0.0.0.0",
	"app.port": 8080,

	"postgres.host":                "localhost",
	"postgres.port":                5432,
	"postgres.user":                "accounts",
	"postgres.password":            "accounts_password",
	"postgres.database":            "accounts",
	"postgres.ssl_mode":            "disable",
	"postgres.max_conns":           10,
	"postgres.min_conns":           2,
	"postgres.max_conn_lifetime":   "60m",
	"postgres.max_conn_idle_time":  "15m",
	"postgres.health_check_period": "30s",

	"redis.host":        "localhost",
	"redis.port":        6379,
	"redis.db":          0,
	"redis.password":    "",
	"redis.tls_enabled": false,

	"kafka.brokers":      []string{},
	"kafka.topic_prefix": "accounts",

	"jwt.secret":           "",
	"jwt.issuer":           "accounts-service",
	"jwt.access_token_ttl": "60m",

	"lockout.max_attempts": 5,
	"lockout.duration":     "15m",

	"rate_limit.window_duration":    "1m",
	"rate_limit.login_max_attempts": 10,

	"argon2.memory":      65536,
	"argon2.iterations":  3,
	"argon2.parallelism": 4,
	"argon2.salt_length": 16,
	"argon2.key_length":  32,

	"password.min_length": 8,
	"password.min_score":  2,

	"telemetry.metrics_namespace": "accounts",
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("ACCOUNTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ACCOUNTS_"+envKey, envKey); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.App.Port <= 0 {
		return fmt.Errorf("app.port must be positive, got %d", c.App.Port)
	}
	if c.Lockout.MaxAttempts <= 0 {
		return fmt.Errorf("lockout.max_attempts must be positive, got %d", c.Lockout.MaxAttempts)
	}
	if c.Lockout.Duration <= 0 {
		return fmt.Errorf("lockout.duration must be positive, got %s", c.Lockout.Duration)
	}
	return nil
}
