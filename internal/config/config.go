package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL         string `env:"RABBITMQ_URL,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	TelephonyGatewayURL string `env:"TELEPHONY_GATEWAY_URL,required=true"`
	DialRatePerSec      int    `env:"DIAL_RATE_PER_SEC,default=10"`
	WorkerConcurrency   int    `env:"WORKER_CONCURRENCY,default=8"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`

	LockTTLSeconds          int `env:"LOCK_TTL_SECONDS,default=300"`
	LockReapIntervalSeconds int `env:"LOCK_REAP_INTERVAL_SECONDS,default=30"`

	FeedIntervalSeconds int `env:"FEED_INTERVAL_SECONDS,default=5"`
	FeedLimit           int `env:"FEED_LIMIT,default=100"`

	RetryBackoffBaseMinutes int `env:"RETRY_BACKOFF_BASE_MINUTES,default=15"`
	RetryBackoffMaxMinutes  int `env:"RETRY_BACKOFF_MAX_MINUTES,default=240"`
	DefaultMaxAttempts      int `env:"DEFAULT_MAX_ATTEMPTS,default=3"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c *Config) LockReapInterval() time.Duration {
	return time.Duration(c.LockReapIntervalSeconds) * time.Second
}

func (c *Config) FeedInterval() time.Duration {
	return time.Duration(c.FeedIntervalSeconds) * time.Second
}

func (c *Config) RetryBackoffBase() time.Duration {
	return time.Duration(c.RetryBackoffBaseMinutes) * time.Minute
}

func (c *Config) RetryBackoffMax() time.Duration {
	return time.Duration(c.RetryBackoffMaxMinutes) * time.Minute
}
