package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wesm/github-issue-chat/internal/models"
)

const (
	// EnvPrefix prefixes every environment variable override
	EnvPrefix = "ISSUECHAT"

	// EnvGithubToken is the environment variable name for the GitHub API token
	EnvGithubToken = "ISSUECHAT_GITHUB_TOKEN"

	// EnvGithubTokenFallback is consulted when EnvGithubToken is unset
	EnvGithubTokenFallback = "GITHUB_TOKEN"

	// DefaultConfigName is the config file looked up in the working directory
	DefaultConfigName = "issuechat"
)

// Config represents the application configuration
type Config struct {
	// GitHub API token for authentication (optional, unauthenticated calls are rate-limited)
	GitHubToken string `mapstructure:"github_token" yaml:"github_token"`

	// Repository used when a message names none, in the format "owner/name"
	DefaultRepository string `mapstructure:"default_repository" yaml:"default_repository"`

	// Path to the SQLite notification journal; ":memory:" keeps it in process memory
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`

	// API base URL for GitHub Enterprise; empty means api.github.com
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url,omitempty"`

	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		DefaultRepository: "octocat/hello-world",
		DatabasePath:      ":memory:",
		ListenAddr:        ":8080",
		PollInterval:      5 * time.Minute,
		RequestTimeout:    15 * time.Second,
		UserAgent:         "issuechat/1.0",
		AllowedOrigins:    []string{"*"},
	}
}

// LoadConfig loads the configuration from a YAML file and the environment.
// With an empty path, issuechat.yaml in the working directory is used if present.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	def := Default()

	v.SetDefault("github_token", def.GitHubToken)
	v.SetDefault("default_repository", def.DefaultRepository)
	v.SetDefault("database_path", def.DatabasePath)
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("api_base_url", def.APIBaseURL)
	v.SetDefault("allowed_origins", def.AllowedOrigins)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github_token", EnvGithubToken, EnvGithubTokenFallback); err != nil {
		return nil, fmt.Errorf("failed to bind token environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Make database path absolute if it's relative
	if path != "" && config.DatabasePath != ":memory:" && !filepath.IsAbs(config.DatabasePath) {
		config.DatabasePath = filepath.Join(filepath.Dir(path), config.DatabasePath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if _, err := models.ParseRepository(c.DefaultRepository); err != nil {
		return fmt.Errorf("invalid default_repository: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// Repository returns the parsed default repository
func (c *Config) Repository() models.Repository {
	repo, _ := models.ParseRepository(c.DefaultRepository)
	return repo
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	// Check if the file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(Default(), path)
}
