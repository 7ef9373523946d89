package config

import "time"

type Config struct {
	Service   *ServiceConfig
	HTTP      *HTTPConfig
	Redis     *RedisConfig
	Postgres  *PostgresConfig
	Presence  *PresenceConfig
	RateLimit *RateLimitConfig
	Auth      *AuthConfig
	Logger    *LoggerConfig
	Tracer    *TracerConfig
}

type ServiceConfig struct {
	Name string
	Env  string
	Add  string
}

type HTTPConfig struct {
	ClientURL       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	APIRatePerMin   int
	AuthRatePerMin  int
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	Migrate         bool
}

// PresenceConfig drives the redis presence mirror and its refresh worker.
type PresenceConfig struct {
	TTL      time.Duration
	Interval time.Duration
}

type RateLimitConfig struct {
	MessageLimit  int
	MessageWindow time.Duration
	TypingLimit   int
	TypingWindow  time.Duration
}

type AuthConfig struct {
	JWTSecret  string
	JWTExpires time.Duration
	Issuer     string
	BcryptCost int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Enabled bool
	Address string
}
