// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Telegram TelegramConfig
	Monitor  MonitorConfig

	// Watches is loaded from the YAML watch file named in Monitor.WatchFile.
	Watches []WatchConfig `validate:"min=1,dive"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	// Name is the bot name shown in every outbound message.
	Name        string `validate:"required"`
	Environment string `validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// TelegramConfig holds the Bot API transport configuration.
type TelegramConfig struct {
	Token  string `validate:"required"`
	ChatID string `validate:"required"`
	// BaseURL overrides the Bot API host; empty means the public API.
	BaseURL string
}

// MonitorConfig holds the polling loop configuration.
type MonitorConfig struct {
	// IntervalSeconds is the pause between ticks, in whole seconds.
	IntervalSeconds int `validate:"gt=0"`
	// WakeOnEvent enables the fsnotify trigger that cuts the wait short
	// when something changes between ticks.
	WakeOnEvent bool
	// WatchFile is the path to the YAML file listing watched directories.
	WatchFile string `validate:"required"`
}

// WatchConfig describes one watched directory tree.
type WatchConfig struct {
	Path       string   `yaml:"path" validate:"required"`
	Extensions []string `yaml:"extensions"`
	// RecursionLimit bounds subdirectory depth; omit for unbounded.
	// Negative values are a configuration error.
	RecursionLimit *int `yaml:"recursion_limit" validate:"omitempty,gte=0"`
}

// Interval returns the tick interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	name := flag.String("name", "", "Bot name shown in messages")
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	token := flag.String("token", "", "Telegram bot token")
	chatID := flag.String("chat-id", "", "Telegram chat id to notify")
	baseURL := flag.String("api-base-url", "", "Bot API base URL override")
	interval := flag.String("interval", "", "Seconds between directory checks (default: 60)")
	wakeOnEvent := flag.String("wake-on-event", "", "Tick early on filesystem events (default: false)")
	watchFile := flag.String("watch-file", "", "Path to the YAML watch list (default: watches.yml)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Name:        getConfigValue(*name, "BOT_NAME", "dropwatch"),
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Telegram: TelegramConfig{
			Token:   getConfigValue(*token, "TELEGRAM_TOKEN", ""),
			ChatID:  getConfigValue(*chatID, "TELEGRAM_CHAT_ID", ""),
			BaseURL: getConfigValue(*baseURL, "TELEGRAM_API_BASE_URL", ""),
		},
		Monitor: MonitorConfig{
			IntervalSeconds: getIntConfigValue(*interval, "CHECK_INTERVAL_SECONDS", 60),
			WakeOnEvent:     getBoolConfigValue(*wakeOnEvent, "WAKE_ON_EVENT", false),
			WatchFile:       getConfigValue(*watchFile, "WATCH_FILE", "watches.yml"),
		},
	}

	watchFilePath, err := expandPath(cfg.Monitor.WatchFile)
	if err != nil {
		return nil, fmt.Errorf("resolve watch file path: %w", err)
	}
	cfg.Monitor.WatchFile = watchFilePath

	watches, err := LoadWatchFile(cfg.Monitor.WatchFile)
	if err != nil {
		return nil, err
	}
	cfg.Watches = watches

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q validation", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Real env vars take precedence over .env file entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
