package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// LINKBOT_TASK_WORKER_COUNT.
const EnvPrefix = "LINKBOT"

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from config files. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound.
	for _, key := range []string{"auth.jwt_secret", "auth.admin_password_hash"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("task.worker_count", 3)
	v.SetDefault("task.max_pending", 0)
	v.SetDefault("task.poll_interval", time.Second)
	v.SetDefault("task.shutdown_timeout", 5*time.Second)
	v.SetDefault("task.retention", 0)

	v.SetDefault("restart.script_path", "./manage_bot.sh")
	v.SetDefault("restart.script_timeout", 10*time.Second)
	v.SetDefault("restart.kill_grace_period", 3*time.Second)
	v.SetDefault("restart.process_names", []string{"chrome", "chromedriver", "chromium"})
	v.SetDefault("restart.cmdline_markers", []string{"headless", "no-sandbox", "disable-dev-shm-usage"})
	v.SetDefault("restart.cache_dirs", []string{"~/.wdm", "/tmp/.com.google.Chrome*", "/tmp/chrome*"})
}
