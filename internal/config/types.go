package config

import (
	"fmt"
	"strings"
	"time"
)

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type GRPCConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Port                  string `mapstructure:"port"`
	EnableReflection      bool   `mapstructure:"enable_reflection"`
	MaxReceiveMessageSize int    `mapstructure:"max_receive_message_size"`
	MaxSendMessageSize    int    `mapstructure:"max_send_message_size"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"ssl_mode"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type AuthConfig struct {
	JWTSecret            string        `mapstructure:"jwt_secret"`
	TokenExpiration      time.Duration `mapstructure:"token_expiration"`
	BcryptCost           int           `mapstructure:"bcrypt_cost"`
	RSAKeyBits           int           `mapstructure:"rsa_key_bits"`
	RegistrationEnabled  bool          `mapstructure:"registration_enabled"`
	LoginRateLimit       int           `mapstructure:"login_rate_limit"`
	LoginRateLimitWindow time.Duration `mapstructure:"login_rate_limit_window"`
}

type CaptchaConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	Length          int           `mapstructure:"length"`
	Width           int           `mapstructure:"width"`
	Height          int           `mapstructure:"height"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type LockoutConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

type StorageConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"`
}

type JobsConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	CaptchaSweepInterval time.Duration `mapstructure:"captcha_sweep_interval"`
	LockPurgeInterval    time.Duration `mapstructure:"lock_purge_interval"`
}

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
	Lockout  LockoutConfig  `mapstructure:"lockout"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

// DSN renders the libpq keyword/value connection string shared by gorm and goose.
// Values are single-quoted so empty or spaced passwords survive parsing.
func (c DatabaseConfig) DSN() string {
	q := func(v string) string {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		q(c.Host),
		q(c.User),
		q(c.Password),
		q(c.Name),
		c.Port,
		q(c.SSLMode),
	)
}
