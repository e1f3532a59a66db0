package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/klabast/wb-services/admission-board/internal/storage"
)

// Constants
const (
	DefaultEventsFile = "events.csv"

	// Error messages
	ErrEditModeDisabled     = "Edit mode disabled"
	ErrInvalidDateFormat    = "Invalid date format"
	ErrInvalidYear          = "Invalid year"
	ErrInvalidMonth         = "Invalid month"
	ErrInvalidFormat        = "Invalid format"
	ErrInvalidID            = "Invalid event id"
	ErrInvalidDirection     = "Invalid direction"
	ErrInvalidGrouping      = "Invalid grouping"
	ErrInternalServer       = "Internal server error"
	ErrFailedToSave         = "Failed to save events"
	ErrFailedToLoad         = "Failed to load events"
	ErrFailedToGenerateJSON = "Failed to generate JSON"
	ErrFailedToGenerateXLSX = "Failed to generate spreadsheet"
	ErrEventNotFound        = "Event not found"

	// Mode strings
	ModeServe = "serve"
	ModeEdit  = "edit"

	// ICS constants
	ICSProductID = "-//Admission Board//Admission Events//EN"
	ICSDomain    = "admission-board"

	// Env prefix for configuration overrides (BOARD_SERVER_PORT, ...)
	EnvPrefix = "BOARD"
)

// Config holds the board configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Board   BoardConfig   `mapstructure:"board"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
}

// StorageConfig selects the persisted medium
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	Backup bool   `mapstructure:"backup"`
}

// AuthConfig configures the admin login gate
type AuthConfig struct {
	File          string        `mapstructure:"file"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

// BoardConfig holds display settings
type BoardConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// LogConfig configures zap
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from defaults, an optional config file and
// BOARD_* environment variables, in increasing priority. A .env file in the
// working directory is loaded into the environment first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_url", "http://localhost:8080")

	v.SetDefault("storage.driver", storage.DriverCSV)
	v.SetDefault("storage.path", DefaultEventsFile)
	v.SetDefault("storage.backup", true)

	v.SetDefault("auth.file", "")
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl", "12h")

	v.SetDefault("board.timezone", "Asia/Kolkata")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the board cannot start without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	switch c.Storage.Driver {
	case storage.DriverCSV, storage.DriverSQLite:
	default:
		return fmt.Errorf("invalid config: unknown storage.driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("invalid config: storage.path is required")
	}
	if _, err := time.LoadLocation(c.Board.Timezone); err != nil {
		return fmt.Errorf("invalid config: board.timezone: %w", err)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("invalid config: auth.session_ttl must be positive")
	}
	return nil
}

// Location returns the board time zone used to decide what "today" is
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Board.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
