// Package config handles repository configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFile   = "lunations.yml"
	LunationsDir = ".lunations"
	CacheDir     = "cache"
	DBFile       = "records.db"

	DefaultOutputDir  = "lunations"
	DefaultFilePrefix = "RSAA_Papers"
	DefaultLedgerFile = "records.jsonl"

	// DefaultRows is the page size requested from the search API.
	DefaultRows = 200

	// maxRows is the largest page size the search API accepts.
	maxRows = 2000

	// DefaultSchedule fires at 10:00 on the first day of each month.
	DefaultSchedule = "0 0 10 1 * *"
)

// ErrNoRepository indicates no publications repository was found.
var ErrNoRepository = errors.New("not in a publications repository (no lunations.yml or .git found)")

// GitConfig controls how digest runs are committed.
type GitConfig struct {
	AuthorName  string `yaml:"author_name" json:"author_name"`
	AuthorEmail string `yaml:"author_email" json:"author_email"`
	Message     string `yaml:"message" json:"message"`
	Remote      string `yaml:"remote,omitempty" json:"remote,omitempty"`
	Push        bool   `yaml:"push" json:"push"`
}

// Config represents repository configuration stored in lunations.yml.
type Config struct {
	// Query is the affiliation clause articles must match.
	Query string `yaml:"query" json:"query"`

	// Rows is the page size used when fetching search results.
	Rows int `yaml:"rows" json:"rows"`

	// MatchTerms are the fragments an author's affiliation must all
	// contain to count as one of ours.
	MatchTerms []string `yaml:"match_terms" json:"match_terms"`

	OutputDir  string `yaml:"output_dir" json:"output_dir"`
	FilePrefix string `yaml:"file_prefix" json:"file_prefix"`
	LedgerFile string `yaml:"ledger_file" json:"ledger_file"`

	// Schedule is the cron expression serve runs on (seconds first).
	Schedule string `yaml:"schedule" json:"schedule"`

	Git GitConfig `yaml:"git" json:"git"`
}

// Default returns the configuration used when lunations.yml is absent.
func Default() *Config {
	return &Config{
		Query:      `aff:"Australian National University"`,
		Rows:       DefaultRows,
		MatchTerms: []string{"astronomy", "2611"},
		OutputDir:  DefaultOutputDir,
		FilePrefix: DefaultFilePrefix,
		LedgerFile: DefaultLedgerFile,
		Schedule:   DefaultSchedule,
		Git: GitConfig{
			AuthorName:  "GitHub Action",
			AuthorEmail: "action@github.com",
			Message:     "Update lunations",
			Push:        true,
		},
	}
}

// ConfigPath returns the path to lunations.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// LunationsPath returns the path to the .lunations directory from a root path.
func LunationsPath(root string) string {
	return filepath.Join(root, LunationsDir)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, LunationsDir, CacheDir)
}

// DBPath returns the path to records.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, LunationsDir, CacheDir, DBFile)
}

// LedgerPath returns the path to the configured ledger file.
func (c *Config) LedgerPath(root string) string {
	return filepath.Join(root, LunationsDir, c.LedgerFile)
}

// OutputPath returns the path to the configured digest directory.
func (c *Config) OutputPath(root string) string {
	return filepath.Join(root, c.OutputDir)
}

// IsRepository reports whether path looks like a publications repository,
// marked by a lunations.yml or a .git directory.
func IsRepository(path string) bool {
	if _, err := os.Stat(ConfigPath(path)); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return true
	}
	return false
}

// FindRepository walks up from the given path to the nearest publications
// repository root. Returns ErrNoRepository when the walk reaches the
// filesystem root without a match.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoRepository
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root.
// A missing file yields the defaults; a present file overrides them
// key by key.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.Query) == "" {
		errors = append(errors, "query cannot be empty")
	}
	if c.Rows < 1 || c.Rows > maxRows {
		errors = append(errors, fmt.Sprintf("rows must be between 1 and %d", maxRows))
	}
	if len(c.MatchTerms) == 0 {
		errors = append(errors, "match_terms cannot be empty")
	}
	for i, term := range c.MatchTerms {
		if strings.TrimSpace(term) == "" {
			errors = append(errors, fmt.Sprintf("match_terms[%d] is blank", i))
		}
	}
	if c.OutputDir == "" {
		errors = append(errors, "output_dir cannot be empty")
	}
	if c.FilePrefix == "" {
		errors = append(errors, "file_prefix cannot be empty")
	}
	if c.LedgerFile == "" {
		errors = append(errors, "ledger_file cannot be empty")
	}
	if c.Schedule == "" {
		errors = append(errors, "schedule cannot be empty")
	}
	if c.Git.Message == "" {
		errors = append(errors, "git.message cannot be empty")
	}
	if c.Git.AuthorName == "" || c.Git.AuthorEmail == "" {
		errors = append(errors, "git.author_name and git.author_email cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
