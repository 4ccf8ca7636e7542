package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	ClientConfig
	StoreConfig
	FakeAPIConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Client
	Store
	FakeAPI
}

// settings resolves every key from flags, environment and an optional config file.
var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// New loads a .env file when present and returns the environment backed configuration.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}

// LoadFile merges a YAML/JSON/TOML config file into the settings. Environment
// variables still take precedence over file values.
func LoadFile(path string) error {
	if path == "" {
		return nil
	}
	settings.SetConfigFile(path)
	if err := settings.ReadInConfig(); err != nil {
		return fmt.Errorf("config.LoadFile %s: %w", path, err)
	}
	return nil
}

// BindFlag lets a command line flag override the named setting.
func BindFlag(envVar string, flag *pflag.Flag) error {
	return settings.BindPFlag(envVar, flag)
}

// Reset drops file and flag bindings. Used by tests.
func Reset() {
	settings = newSettings()
}

func GetEnv(envVar, defaultValue string) string {
	value := settings.GetString(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
