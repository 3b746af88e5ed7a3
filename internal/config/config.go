package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Raffle   *RaffleConfig   `mapstructure:"raffle"`
	Pix      *PixConfig      `mapstructure:"pix"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	WebhookSecret      string        `mapstructure:"webhook_secret"`
	// AdminEmails are promoted to administrators when they register or log in.
	AdminEmails []string `mapstructure:"admin_emails"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode, c.TimeZone)
}

// RedisConfig is optional. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RaffleConfig struct {
	ReservationTTL    time.Duration `mapstructure:"reservation_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	MaxQuotasPerOrder int           `mapstructure:"max_quotas_per_order"`
}

type PixConfig struct {
	Key          string `mapstructure:"key"`
	MerchantName string `mapstructure:"merchant_name"`
	MerchantCity string `mapstructure:"merchant_city"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.base_url", "localhost:8080")
	v.SetDefault("api.token_ttl", 24*time.Hour)
	v.SetDefault("api.allowed_cors_domains", []string{"http://localhost:3000"})
	v.SetDefault("api.admin_emails", []string{})
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("raffle.reservation_ttl", 15*time.Minute)
	v.SetDefault("raffle.sweep_interval", time.Minute)
	v.SetDefault("raffle.max_quotas_per_order", 10000)
	v.SetDefault("pix.merchant_city", "SAO PAULO")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return v
}

// Load reads the yaml file at path. Environment variables such as API_PORT or
// POSTGRES_HOST override the file.
func Load(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *AppConfig) validate() error {
	if c.API == nil || c.API.JWTSigningKey == "" {
		return fmt.Errorf("api.jwt_signing_key is required")
	}
	if c.Raffle == nil || c.Raffle.ReservationTTL <= 0 {
		return fmt.Errorf("raffle.reservation_ttl must be positive")
	}
	if c.Raffle.SweepInterval <= 0 {
		return fmt.Errorf("raffle.sweep_interval must be positive")
	}

	return nil
}

// Watch calls onChange whenever the file at path is written. The running config is not
// replaced; callers decide what a change means.
func Watch(path string, onChange func(event fsnotify.Event)) {
	v := newViper(path)
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		onChange(e)
	})
	v.WatchConfig()
}
