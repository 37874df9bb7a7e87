package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Link     LinkConfig     `mapstructure:"link"`
	OTP      OTPConfig      `mapstructure:"otp"`
	Storage  StorageConfig  `mapstructure:"storage"`
	WizeChat WizeChatConfig `mapstructure:"wizechat"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Port        int    `mapstructure:"port"`
	Env         string `mapstructure:"env"`
	BaseURL     string `mapstructure:"base_url"`
	FrontendURL string `mapstructure:"frontend_url"` // patient view links point here
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LinkConfig is the secure-link policy. Expiry is policy, not an engine
// constant: the state machine only ever compares against the deadline
// stored on the document.
type LinkConfig struct {
	ExpiryDays int `mapstructure:"expiry_days"`
}

type OTPConfig struct {
	TTLMinutes  int `mapstructure:"ttl_minutes"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

type StorageConfig struct {
	BasePath        string `mapstructure:"base_path"`
	OriginalsFolder string `mapstructure:"originals_folder"`
	SignedFolder    string `mapstructure:"signed_folder"`
}

// WizeChatConfig holds the WhatsApp delivery collaborator credentials.
// Requests are signed with HMAC-SHA256 using the client pair.
type WizeChatConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	InboxID        string `mapstructure:"inbox_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func NewConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Enable environment variable override
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Link.ExpiryDays <= 0 {
		cfg.Link.ExpiryDays = 7
	}
	if cfg.OTP.TTLMinutes <= 0 {
		cfg.OTP.TTLMinutes = 10
	}
	if cfg.OTP.MaxAttempts <= 0 {
		cfg.OTP.MaxAttempts = 5
	}
	if cfg.Storage.OriginalsFolder == "" {
		cfg.Storage.OriginalsFolder = "originals"
	}
	if cfg.Storage.SignedFolder == "" {
		cfg.Storage.SignedFolder = "signed"
	}
	if cfg.WizeChat.TimeoutSeconds <= 0 {
		cfg.WizeChat.TimeoutSeconds = 30
	}
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
