package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// load a .env file from the working directory, if present
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

const envPrefix = "PROBABLES"

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Email    EmailConfig    `mapstructure:"email"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Web      WebConfig      `mapstructure:"web"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	URL        string        `mapstructure:"url"`
	RefererURL string        `mapstructure:"referer_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type EmailConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Address   string   `mapstructure:"address"`
	To        []string `mapstructure:"to"`
	OAuthFile string   `mapstructure:"oauth_file"`
	SMTPHost  string   `mapstructure:"smtp_host"`
	SMTPPort  string   `mapstructure:"smtp_port"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	LedgerPath   string `mapstructure:"ledger_path"`
}

type ScheduleConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type WebConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "")
	v.SetDefault("api.referer_url", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("email.enabled", true)
	v.SetDefault("email.address", "")
	v.SetDefault("email.to", []string{})
	v.SetDefault("email.oauth_file", "credentials.json")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", "587")
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("storage.database_path", "game_data.db")
	v.SetDefault("storage.ledger_path", "runs.db")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("web.port", "8080")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from an optional YAML file and PROBABLES_* environment
// variables, e.g. api.url comes from PROBABLES_API_URL.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PROBABLES_REFERER_URL is accepted as a short alias
	if err := v.BindEnv("api.referer_url", "PROBABLES_API_REFERER_URL", "PROBABLES_REFERER_URL"); err != nil {
		return nil, fmt.Errorf("binding referer env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".probables")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if len(cfg.Email.To) == 0 && cfg.Email.Address != "" {
		cfg.Email.To = []string{cfg.Email.Address}
	}

	return &cfg, nil
}

func LoadFromEnv() (*Config, error) {
	return Load(viper.New(), "")
}

// Validate checks everything a full run needs.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if c.Email.Enabled {
		if c.Email.Address == "" {
			return fmt.Errorf("email.address is required when email is enabled")
		}

		if c.Email.SMTPHost == "" || c.Email.SMTPPort == "" {
			return fmt.Errorf("email.smtp_host and email.smtp_port are required when email is enabled")
		}

		if c.Email.OAuthFile == "" && c.Email.Password == "" {
			return fmt.Errorf("email.oauth_file or email.password is required when email is enabled")
		}
	}

	return c.ValidateStorage()
}

// ValidateStorage checks the subset needed by read-only commands.
func (c *Config) ValidateStorage() error {
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is required")
	}

	if c.Storage.LedgerPath == "" {
		return fmt.Errorf("storage.ledger_path is required")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves schedule.timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone: %w", err)
	}
	return loc, nil
}
