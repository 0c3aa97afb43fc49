package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth"    validate:"required"`
	Task    TaskConfig    `mapstructure:"task"    validate:"required"`
	Restart RestartConfig `mapstructure:"restart" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains the admin API authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// AdminPasswordHash is a bcrypt hash, see cmd/hash-generator.
	AdminPasswordHash    string `mapstructure:"admin_password_hash"    validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// TaskConfig controls the task queue and its worker pool.
type TaskConfig struct {
	// WorkerCount is the fixed number of concurrent workers.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// MaxPending bounds the wait list. Zero means unbounded.
	MaxPending int `mapstructure:"max_pending" validate:"gte=0"`

	// PollInterval is how long an idle worker waits before re-checking
	// the wait list and the shutdown signal.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required,gt=0"`

	// ShutdownTimeout bounds how long Shutdown waits for workers to exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Retention evicts terminal tasks older than this. Zero keeps them
	// until the process exits.
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
}

// RestartConfig controls the full-restart sequence.
type RestartConfig struct {
	ScriptPath      string        `mapstructure:"script_path"       validate:"required"`
	ScriptTimeout   time.Duration `mapstructure:"script_timeout"    validate:"required,gt=0"`
	KillGracePeriod time.Duration `mapstructure:"kill_grace_period" validate:"gte=0"`
	ProcessNames    []string      `mapstructure:"process_names"     validate:"required,min=1,dive,required"`
	CmdlineMarkers  []string      `mapstructure:"cmdline_markers"   validate:"required,min=1,dive,required"`
	CacheDirs       []string      `mapstructure:"cache_dirs"`
}
