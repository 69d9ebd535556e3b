package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// fileConfig mirrors the top-level layout of logging.yaml. Pointers let us
// tell an absent boolean from an explicit false.
type fileConfig struct {
	Logging struct {
		Level          string `yaml:"level"`
		ConsoleEnabled *bool  `yaml:"console_enabled"`
		ConsoleFormat  string `yaml:"console_format"`
		FileEnabled    *bool  `yaml:"file_enabled"`
		FilePath       string `yaml:"file_path"`
		FileFormat     string `yaml:"file_format"`
		FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
		FileMaxBackups int    `yaml:"file_max_backups"`
		FileMaxAgeDays int    `yaml:"file_max_age_days"`
	} `yaml:"logging"`
}

// DefaultConfig returns console-only INFO logging.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/gridquest.log",
		FileFormat:     "json",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 14,
	}
}

// LoadConfig loads logging configuration from a YAML file and applies
// GQ_LOG_* environment overrides. A missing or unparsable file yields the
// defaults; logging must come up before anything else can report problems.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err == nil {
				merge(&config, fc)
			}
		}
	}

	applyEnv(&config)
	return config, nil
}

func merge(config *Config, fc fileConfig) {
	l := fc.Logging
	if l.Level != "" {
		config.Level = l.Level
	}
	if l.ConsoleEnabled != nil {
		config.ConsoleEnabled = *l.ConsoleEnabled
	}
	if l.ConsoleFormat != "" {
		config.ConsoleFormat = l.ConsoleFormat
	}
	if l.FileEnabled != nil {
		config.FileEnabled = *l.FileEnabled
	}
	if l.FilePath != "" {
		config.FilePath = l.FilePath
	}
	if l.FileFormat != "" {
		config.FileFormat = l.FileFormat
	}
	if l.FileMaxSizeMB > 0 {
		config.FileMaxSizeMB = l.FileMaxSizeMB
	}
	if l.FileMaxBackups > 0 {
		config.FileMaxBackups = l.FileMaxBackups
	}
	if l.FileMaxAgeDays > 0 {
		config.FileMaxAgeDays = l.FileMaxAgeDays
	}
}

func applyEnv(config *Config) {
	if level := os.Getenv("GQ_LOG_LEVEL"); level != "" {
		config.Level = level
	}
	if format := os.Getenv("GQ_LOG_CONSOLE_FORMAT"); format != "" {
		config.ConsoleFormat = format
	}
	if fileEnabled := os.Getenv("GQ_LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			config.FileEnabled = enabled
		}
	}
	if path := os.Getenv("GQ_LOG_FILE_PATH"); path != "" {
		config.FilePath = path
	}
}
