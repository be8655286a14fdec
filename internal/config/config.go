package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	CORSOrigin        string        `mapstructure:"cors_origin" yaml:"cors_origin"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	RoomCapacity      int           `mapstructure:"room_capacity" yaml:"room_capacity"`
	SessionQueueSize  int           `mapstructure:"session_queue_size" yaml:"session_queue_size"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	StoreRetryBackoff time.Duration `mapstructure:"store_retry_backoff" yaml:"store_retry_backoff"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DatabasePath:      "signal.db",
		CORSOrigin:        "*",
		LogLevel:          "info",
		JWTSecret:         "dev-secret-change-me",
		JWTIssuer:         "signal-server",
		RoomCapacity:      16,
		SessionQueueSize:  64,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		StoreRetryBackoff: 10 * time.Second,
	}
}
