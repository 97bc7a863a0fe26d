package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Ingest IngestConfig `mapstructure:"ingest"`
	Log    LogConfig    `mapstructure:"log"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type IngestConfig struct {
	InputDir      string `mapstructure:"input_dir"`
	AttachmentDir string `mapstructure:"attachment_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads config.yaml when present; every key can be overridden
// through the environment (CHARTVAULT_STORE_PATH and friends). The file
// itself is optional.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("store.path", "chartvault.db")
	viper.SetDefault("ingest.input_dir", "raw")
	viper.SetDefault("ingest.attachment_dir", "attachments")
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("chartvault")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
