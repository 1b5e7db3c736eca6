package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Box      BoxConfig      `yaml:"box"`
	OwnCloud OwnCloudConfig `yaml:"owncloud"`
}

// BoxConfig defines credentials and settings for the Box backend
type BoxConfig struct {
	Token         string `yaml:"token"`
	BaseURL       string `yaml:"base_url"`
	UploadBaseURL string `yaml:"upload_base_url"`
	Folder        string `yaml:"folder"` // root folder identifier
}

// OwnCloudConfig defines credentials and settings for the OwnCloud backend
type OwnCloudConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DefaultBoxBaseURL and DefaultBoxUploadBaseURL are the production Box
// endpoints, applied when the config leaves them empty.
const (
	DefaultBoxBaseURL       = "https://api.box.com/2.0"
	DefaultBoxUploadBaseURL = "https://upload.box.com/api/2.0"
)

// Load loads configuration from file and environment variables
func Load(path string) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Box: BoxConfig{
			BaseURL:       DefaultBoxBaseURL,
			UploadBaseURL: DefaultBoxUploadBaseURL,
		},
	}

	// Load from file if it exists
	if _, err := os.Stat(path); err == nil {
		logrus.Debugf("Loading configuration from: %s", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		logrus.Debugf("Config file does not exist at: %s", path)
	}

	// Override with environment variables
	cfg.Box.Token = getEnv("BOX_TOKEN", cfg.Box.Token)
	cfg.Box.Folder = getEnv("BOX_FOLDER", cfg.Box.Folder)
	cfg.OwnCloud.BaseURL = getEnv("OWNCLOUD_BASE_URL", cfg.OwnCloud.BaseURL)
	cfg.OwnCloud.Username = getEnv("OWNCLOUD_USERNAME", cfg.OwnCloud.Username)
	cfg.OwnCloud.Password = getEnv("OWNCLOUD_PASSWORD", cfg.OwnCloud.Password)

	if cfg.Box.BaseURL == "" {
		cfg.Box.BaseURL = DefaultBoxBaseURL
	}
	if cfg.Box.UploadBaseURL == "" {
		cfg.Box.UploadBaseURL = DefaultBoxUploadBaseURL
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
