package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WebSocket.MaxMessageSize != 4096 {
		t.Errorf("expected max message size 4096, got %d", cfg.WebSocket.MaxMessageSize)
	}
	if cfg.Game.TurnSeconds != 30 {
		t.Errorf("expected 30 second turns, got %d", cfg.Game.TurnSeconds)
	}
	if cfg.Game.EvasionProbability != 0.4 {
		t.Errorf("expected evasion probability 0.4, got %v", cfg.Game.EvasionProbability)
	}
	if err := cfg.Game.Validate(); err != nil {
		t.Errorf("default game config should validate: %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/server.yaml")
	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
websocket:
  allowed_origins:
    - "https://play.example.com"
game:
  turn_seconds: 45
  slip_probability: 0.25
database:
  driver: postgres
  postgres:
    host: db.internal
    database: gridquest
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.WebSocket.AllowedOrigins) != 1 {
		t.Errorf("expected 1 allowed origin, got %d", len(cfg.WebSocket.AllowedOrigins))
	}
	if cfg.Game.TurnSeconds != 45 {
		t.Errorf("expected 45 second turns, got %d", cfg.Game.TurnSeconds)
	}
	if cfg.Game.SlipProbability != 0.25 {
		t.Errorf("expected slip probability 0.25, got %v", cfg.Game.SlipProbability)
	}
	// Keys absent from the file keep defaults
	if cfg.Game.CombatTurnSeconds != 5 {
		t.Errorf("expected default combat turn 5, got %d", cfg.Game.CombatTurnSeconds)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("expected default postgres port, got %d", cfg.Database.Postgres.Port)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "game: [not, a, map")

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Error("expected parse error")
	}
	if cfg == nil || cfg.Game.TurnSeconds != 30 {
		t.Error("expected defaults to be returned alongside the error")
	}
}

func TestLoadConfig_RejectsUnplayableRules(t *testing.T) {
	path := writeConfig(t, "game:\n  slip_probability: 1.5\n")

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected validation error for slip probability above 1")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GQ_DB_DRIVER", "postgres")
	t.Setenv("GQ_PG_PASSWORD", "s3cret")

	cfg, err := LoadConfig("/nonexistent/server.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if !strings.Contains(cfg.Database.Postgres.DSN(), "password=s3cret") {
		t.Errorf("DSN missing password override: %s", cfg.Database.Postgres.DSN())
	}
}

func TestGameConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GameConfig)
	}{
		{"zero turn", func(g *GameConfig) { g.TurnSeconds = 0 }},
		{"negative grace", func(g *GameConfig) { g.NoMovementGraceSeconds = -1 }},
		{"evasion above one", func(g *GameConfig) { g.EvasionProbability = 2 }},
		{"empty inventory", func(g *GameConfig) { g.InventoryCapacity = 0 }},
		{"max below min", func(g *GameConfig) { g.MaxPlayers = 1 }},
		{"empty code range", func(g *GameConfig) { g.CodeMax = g.CodeMin }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGameConfig()
			tt.mutate(&g)
			if err := g.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"same origin", nil, "http://localhost:8080", "localhost:8080", true},
		{"cross origin rejected", nil, "http://evil.com", "localhost:8080", false},
		{"no origin header", nil, "", "localhost:8080", true},
		{"trailing slash", nil, "https://play.example.com/", "play.example.com", true},
		{"wildcard", []string{"*"}, "http://anything.com", "localhost:8080", true},
		{"listed", []string{"https://a.com", "https://b.com"}, "https://b.com", "localhost", true},
		{"not listed", []string{"https://a.com"}, "https://c.com", "localhost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := WebSocketConfig{AllowedOrigins: tt.allowed}
			if got := cfg.IsOriginAllowed(tt.origin, tt.host); got != tt.want {
				t.Errorf("IsOriginAllowed(%q, %q) = %v, want %v", tt.origin, tt.host, got, tt.want)
			}
		})
	}
}

func TestIsTrustedProxy(t *testing.T) {
	cfg := WebSocketConfig{TrustedProxies: []string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"}}
	tests := []struct {
		peer string
		want bool
	}{
		{"10.1.2.3", true},
		{"192.168.1.5", true},
		{"::ffff:192.168.1.5", true},
		{"192.168.1.6", false},
		{"203.0.113.1", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := cfg.IsTrustedProxy(tt.peer); got != tt.want {
			t.Errorf("IsTrustedProxy(%q) = %v, want %v", tt.peer, got, tt.want)
		}
	}
	if (&WebSocketConfig{}).IsTrustedProxy("10.1.2.3") {
		t.Error("empty list should trust nobody")
	}
}
