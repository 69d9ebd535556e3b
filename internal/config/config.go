// Package config loads server-wide and game tuning settings.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	WebSocket   WebSocketConfig    `yaml:"websocket"`
	Connections ConnectionsConfig  `yaml:"connections"`
	JoinLimit   JoinLimitConfig    `yaml:"join_limit"`
	Commands    CommandLimitConfig `yaml:"command_limit"`
	Game        GameConfig         `yaml:"game"`
	Database    DatabaseConfig     `yaml:"database"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect.
	// Empty list enforces same-origin policy, "*" allows everything.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum inbound message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// SendQueueSize bounds the per-connection outbound queue. A client that
	// falls this far behind is disconnected.
	SendQueueSize int `yaml:"send_queue_size"`

	// TrustedProxies lists peer addresses (IPs or CIDRs) whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections from one IP. 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections. 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// JoinLimitConfig throttles join attempts with unknown or locked codes, which
// is the only thing standing between a 4-digit code and a brute force scan.
type JoinLimitConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	LockoutSeconds    int `yaml:"lockout_seconds"`
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// CommandLimitConfig caps the command rate of a single connection.
type CommandLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxCommands   int  `yaml:"max_commands"`
	WindowSeconds int  `yaml:"window_seconds"`
}

// GameConfig holds the tunable rules of a session.
type GameConfig struct {
	TurnSeconds                int     `yaml:"turn_seconds"`
	NoMovementGraceSeconds     int     `yaml:"no_movement_grace_seconds"`
	CombatTurnSeconds          int     `yaml:"combat_turn_seconds"`
	CombatTurnNoEvasionSeconds int     `yaml:"combat_turn_no_evasion_seconds"`
	SlipProbability            float64 `yaml:"slip_probability"`
	EvasionProbability         float64 `yaml:"evasion_probability"`
	AttackDamage               int     `yaml:"attack_damage"`
	InventoryCapacity          int     `yaml:"inventory_capacity"`
	WinsToVictory              int     `yaml:"wins_to_victory"`
	MinPlayers                 int     `yaml:"min_players"`
	MaxPlayers                 int     `yaml:"max_players"`
	CodeMin                    int     `yaml:"code_min"`
	CodeMax                    int     `yaml:"code_max"`
	ItemsFile                  string  `yaml:"items_file"`
}

// DatabaseConfig selects and configures the game-definition store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultGameConfig returns the standard rule set.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		TurnSeconds:                30,
		NoMovementGraceSeconds:     3,
		CombatTurnSeconds:          5,
		CombatTurnNoEvasionSeconds: 3,
		SlipProbability:            0.1,
		EvasionProbability:         0.4,
		AttackDamage:               1,
		InventoryCapacity:          2,
		WinsToVictory:              3,
		MinPlayers:                 2,
		MaxPlayers:                 6,
		CodeMin:                    1000,
		CodeMax:                    9999,
		ItemsFile:                  "data/items.yaml",
	}
}

// DefaultConfig returns a ServerConfig with secure defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{},
			MaxMessageSize: 4096,
			SendQueueSize:  256,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 8,
			MaxTotal: 500,
		},
		JoinLimit: JoinLimitConfig{
			MaxAttempts:       10,
			LockoutSeconds:    30,
			MaxLockoutSeconds: 600,
		},
		Commands: CommandLimitConfig{
			Enabled:       true,
			MaxCommands:   40,
			WindowSeconds: 5,
		},
		Game: DefaultGameConfig(),
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/gridquest.db",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
	}
}

// LoadConfig loads server configuration from a YAML file.
// A missing file yields the defaults; a malformed or invalid one is an error.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return config, err
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}

	config.applyEnv()

	if err := config.Game.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return config, nil
}

// applyEnv lets deployments pick the database without editing the file.
func (c *ServerConfig) applyEnv() {
	if driver := os.Getenv("GQ_DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if path := os.Getenv("GQ_SQLITE_PATH"); path != "" {
		c.Database.SQLitePath = path
	}
	if host := os.Getenv("GQ_PG_HOST"); host != "" {
		c.Database.Postgres.Host = host
	}
	if password := os.Getenv("GQ_PG_PASSWORD"); password != "" {
		c.Database.Postgres.Password = password
	}
}

// Validate checks that the rule set is playable.
func (g GameConfig) Validate() error {
	switch {
	case g.TurnSeconds <= 0:
		return fmt.Errorf("game.turn_seconds must be positive")
	case g.CombatTurnSeconds <= 0 || g.CombatTurnNoEvasionSeconds <= 0:
		return fmt.Errorf("game combat durations must be positive")
	case g.NoMovementGraceSeconds < 0:
		return fmt.Errorf("game.no_movement_grace_seconds must not be negative")
	case g.SlipProbability < 0 || g.SlipProbability > 1:
		return fmt.Errorf("game.slip_probability must be within [0,1]")
	case g.EvasionProbability < 0 || g.EvasionProbability > 1:
		return fmt.Errorf("game.evasion_probability must be within [0,1]")
	case g.InventoryCapacity < 1:
		return fmt.Errorf("game.inventory_capacity must be at least 1")
	case g.MinPlayers < 2 || g.MaxPlayers < g.MinPlayers:
		return fmt.Errorf("game player bounds are inconsistent (min %d, max %d)", g.MinPlayers, g.MaxPlayers)
	case g.CodeMin <= 0 || g.CodeMax <= g.CodeMin:
		return fmt.Errorf("game code range is empty")
	}
	return nil
}

// TurnDuration is the full main-turn clock.
func (g GameConfig) TurnDuration() time.Duration {
	return time.Duration(g.TurnSeconds) * time.Second
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// IsTrustedProxy reports whether peer may supply the client address in
// forwarding headers.
func (c *WebSocketConfig) IsTrustedProxy(peer string) bool {
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, entry := range c.TrustedProxies {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			if prefix.Contains(addr) {
				return true
			}
			continue
		}
		if trusted, err := netip.ParseAddr(entry); err == nil && trusted.Unmap() == addr {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser client
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
