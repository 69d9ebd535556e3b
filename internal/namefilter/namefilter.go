// Package namefilter validates player display names: banned words and
// names, printable characters only, and a display width limit measured in
// terminal columns so wide glyphs count double.
package namefilter

import (
	"errors"
	"os"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// DefaultMaxWidth is the display width limit used when the config sets none.
const DefaultMaxWidth = 20

// Config holds the name filter configuration
type Config struct {
	Enabled     bool     `yaml:"enabled"`
	BannedWords []string `yaml:"banned_words"`
	BannedNames []string `yaml:"banned_names"`
	MaxWidth    int      `yaml:"max_width"`
}

// Result contains the outcome of checking a name
type Result struct {
	Allowed bool
	Reason  string
}

// NameFilter handles name validation against banned words and names
type NameFilter struct {
	enabled     bool
	maxWidth    int
	bannedWords []string // lowercase, partial match
	bannedNames []string // lowercase, exact match
}

// New creates a new NameFilter from a Config. A nil config still enforces
// the character and width rules.
func New(cfg *Config) *NameFilter {
	if cfg == nil {
		return &NameFilter{maxWidth: DefaultMaxWidth}
	}

	nf := &NameFilter{
		enabled:     cfg.Enabled,
		maxWidth:    cfg.MaxWidth,
		bannedWords: make([]string, 0, len(cfg.BannedWords)),
		bannedNames: make([]string, 0, len(cfg.BannedNames)),
	}
	if nf.maxWidth <= 0 {
		nf.maxWidth = DefaultMaxWidth
	}
	for _, word := range cfg.BannedWords {
		if word != "" {
			nf.bannedWords = append(nf.bannedWords, strings.ToLower(word))
		}
	}
	for _, name := range cfg.BannedNames {
		if name != "" {
			nf.bannedNames = append(nf.bannedNames, strings.ToLower(name))
		}
	}
	return nf
}

// LoadConfig loads name filter configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Check validates a name against the filter rules. Width and character
// rules always apply; word lists only when the filter is enabled.
func (nf *NameFilter) Check(name string) Result {
	if strings.TrimSpace(name) == "" {
		return Result{Reason: "A name is required."}
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return Result{Reason: "Names may only contain printable characters."}
		}
	}
	if runewidth.StringWidth(name) > nf.maxWidth {
		return Result{Reason: "That name is too long."}
	}

	if !nf.enabled {
		return Result{Allowed: true}
	}

	nameLower := strings.ToLower(name)
	for _, banned := range nf.bannedNames {
		if nameLower == banned {
			return Result{Reason: "That name is not allowed."}
		}
	}
	for _, word := range nf.bannedWords {
		if strings.Contains(nameLower, word) {
			return Result{Reason: "That name contains a word that is not allowed."}
		}
	}
	return Result{Allowed: true}
}

// Validate is Check as an error, nil when the name is allowed.
func (nf *NameFilter) Validate(name string) error {
	if res := nf.Check(name); !res.Allowed {
		return errors.New(res.Reason)
	}
	return nil
}

// IsEnabled returns whether the word lists are applied
func (nf *NameFilter) IsEnabled() bool {
	return nf.enabled
}

// MaxWidth returns the display width limit
func (nf *NameFilter) MaxWidth() int {
	return nf.maxWidth
}
