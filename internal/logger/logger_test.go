package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}

	if config.Level != "INFO" {
		t.Errorf("Level = %q, want %q", config.Level, "INFO")
	}
	if !config.ConsoleEnabled {
		t.Error("ConsoleEnabled = false, want true")
	}
	if config.FileEnabled {
		t.Error("FileEnabled = true, want false")
	}
	if config.FilePath != "logs/gridquest.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "logs/gridquest.log")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	content := `logging:
  level: DEBUG
  console_enabled: false
  file_enabled: true
  file_path: game.log
  file_max_size_mb: 20
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "DEBUG" {
		t.Errorf("Level = %q, want %q", config.Level, "DEBUG")
	}
	if config.ConsoleEnabled {
		t.Error("ConsoleEnabled = true, want false (explicitly disabled)")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true")
	}
	if config.FilePath != "game.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "game.log")
	}
	if config.FileMaxSizeMB != 20 {
		t.Errorf("FileMaxSizeMB = %d, want 20", config.FileMaxSizeMB)
	}
	// Untouched keys keep their defaults
	if config.FileMaxBackups != 5 {
		t.Errorf("FileMaxBackups = %d, want 5", config.FileMaxBackups)
	}
}

func TestLoadConfigOmittedBoolKeepsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: WARN\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, _ := LoadConfig(path)
	if !config.ConsoleEnabled {
		t.Error("ConsoleEnabled should stay true when the key is absent")
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("GQ_LOG_LEVEL", "ERROR")
	t.Setenv("GQ_LOG_CONSOLE_FORMAT", "json")
	t.Setenv("GQ_LOG_FILE_ENABLED", "true")
	t.Setenv("GQ_LOG_FILE_PATH", "/var/log/gq.log")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "ERROR" {
		t.Errorf("Level = %q, want %q", config.Level, "ERROR")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true")
	}
	if config.FilePath != "/var/log/gq.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "/var/log/gq.log")
	}
}

func TestInitializeRejectsFileWithoutPath(t *testing.T) {
	config := DefaultConfig()
	config.FileEnabled = true
	config.FilePath = ""

	if err := Initialize(config); err == nil {
		t.Error("expected error when file logging has no path")
	}
}

func TestInitializeWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	config := DefaultConfig()
	config.ConsoleEnabled = false
	config.FileEnabled = true
	config.FilePath = path

	if err := Initialize(config); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Info("session created", "session", 1234)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"session":1234`) {
		t.Errorf("log file missing structured field: %s", data)
	}
}

func TestAlwaysBypassesLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, "text", slog.LevelError))

	Debug("debug message")
	Info("info message")
	Warning("warning message")
	Error("error message")
	Always("always message")

	output := buf.String()
	for _, hidden := range []string{"debug message", "info message", "warning message"} {
		if strings.Contains(output, hidden) {
			t.Errorf("%q appeared when level is ERROR", hidden)
		}
	}
	if !strings.Contains(output, "error message") {
		t.Error("ERROR message missing from output")
	}
	if !strings.Contains(output, "level=ALWAYS") {
		t.Errorf("ALWAYS level not rendered: %s", output)
	}
}

func TestSessionLoggerCarriesCode(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, "text", slog.LevelInfo))

	Session(4821).Info("turn started", "player", "abc")

	if !strings.Contains(buf.String(), "session=4821") {
		t.Errorf("session attribute missing: %s", buf.String())
	}
}

func TestMultiHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	logger = slog.New(newMultiHandler(
		slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo}),
	))

	Info("fan out", "field", "value")

	for i, out := range []string{buf1.String(), buf2.String()} {
		if !strings.Contains(out, "fan out") || !strings.Contains(out, "field=value") {
			t.Errorf("handler %d missing record: %s", i, out)
		}
	}
}

func TestNilLogger(t *testing.T) {
	logger = nil

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("logging with nil logger panicked: %v", r)
		}
	}()

	Debug("debug")
	Info("info")
	Warning("warning")
	Error("error")
	Always("always")
	Session(1000).Info("discarded")
}
