package server

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/elskow/assessgate/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// LoadConfig reads ./config/server/config.toml, applies APP_* environment
// overrides and any environment-specific grpc section.
func LoadConfig() (*config.AppConfig, error) {
	// .env is optional; containers inject variables directly
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath("./config/server")
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Load environment-specific configurations
	if envSettings := v.GetStringMap(fmt.Sprintf("grpc.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("grpc.%s", env), &cfg.GRPC); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", "9090")
	v.SetDefault("grpc.enable_reflection", false)
	v.SetDefault("grpc.max_receive_message_size", 4<<20)
	v.SetDefault("grpc.max_send_message_size", 4<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "assessgate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expiration", 30*time.Minute)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.rsa_key_bits", 2048)
	v.SetDefault("auth.registration_enabled", false)
	v.SetDefault("auth.login_rate_limit", 20)
	v.SetDefault("auth.login_rate_limit_window", time.Minute)

	v.SetDefault("captcha.ttl", 120*time.Second)
	v.SetDefault("captcha.length", 5)
	v.SetDefault("captcha.width", 140)
	v.SetDefault("captcha.height", 50)
	v.SetDefault("captcha.rate_limit", 30)
	v.SetDefault("captcha.rate_limit_window", time.Minute)

	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.cooldown", 15*time.Minute)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "onlineclass")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("storage.presign_expiry", time.Hour)
	v.SetDefault("storage.max_upload_size", int64(50<<20))

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.captcha_sweep_interval", time.Minute)
	v.SetDefault("jobs.lock_purge_interval", time.Hour)
}

func validateConfig(cfg *config.AppConfig) error {
	if cfg.Lockout.Threshold < 1 {
		return fmt.Errorf("lockout.threshold must be at least 1, got %d", cfg.Lockout.Threshold)
	}
	if cfg.Lockout.Cooldown <= 0 {
		return fmt.Errorf("lockout.cooldown must be positive")
	}
	if cfg.Captcha.TTL <= 0 {
		return fmt.Errorf("captcha.ttl must be positive")
	}
	if cfg.Auth.TokenExpiration <= 0 {
		return fmt.Errorf("auth.token_expiration must be positive")
	}
	if cfg.Storage.Enabled && cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	return nil
}
