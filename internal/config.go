package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	"github.com/starford/pdfarchiver/internal/archive"
	"github.com/starford/pdfarchiver/internal/fuzzy"
	"github.com/starford/pdfarchiver/internal/pdftext"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Archive ArchiveConfig     `yaml:"archive"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Parser  ParserConfig      `yaml:"parser"`
	Search  SearchConfig      `yaml:"search"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Parser.Validate(); err != nil {
		return err
	}
	return c.Search.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ArchiveConfig holds the archive directory layout.
type ArchiveConfig struct {
	Path        string `yaml:"path"`
	UntaggedDir string `yaml:"untagged_dir"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	if c.UntaggedDir == "" {
		c.UntaggedDir = archive.DefaultUntaggedDir
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.UntaggedDir, validation.By(relativeDir)),
	)
}

func relativeDir(value any) error {
	dir, _ := value.(string)
	if strings.HasPrefix(dir, "/") || strings.Contains(dir, "..") {
		return errors.New("must be a directory inside the archive")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ParserConfig configures date and tag recognition.
//
// Locales are tried in order for written-out month names; an empty list
// falls back to the LC_ALL/LC_TIME/LANG environment.
type ParserConfig struct {
	Locales      []string      `yaml:"locales"`
	ContentPages int           `yaml:"content_pages"`
	Tagging      TaggingConfig `yaml:"tagging"`
}

// Validate validates the parser configuration.
func (c *ParserConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Locales, validation.Each(validation.Required, validation.By(localeTag))),
		validation.Field(&c.ContentPages, validation.Min(0), validation.Max(1000)),
	)
}

// localeTag accepts POSIX style ("de_DE.UTF-8") and BCP 47 ("de-DE") names.
func localeTag(value any) error {
	s, _ := value.(string)
	s, _, _ = strings.Cut(s, ".")
	if _, err := language.Parse(strings.ReplaceAll(s, "_", "-")); err != nil {
		return fmt.Errorf("unknown locale %q", value)
	}
	return nil
}

// TaggingConfig controls keyword tagging of document text.
type TaggingConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"`
}

// SearchConfig tunes the fuzzy matcher.
type SearchConfig struct {
	MinPartitionSize int `yaml:"min_partition_size"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinPartitionSize, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Archive: ArchiveConfig{
			Path:        "./archive",
			UntaggedDir: archive.DefaultUntaggedDir,
		},
		SQLite: SQLiteConfig{
			Path: "./pdfarchiver.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Parser: ParserConfig{
			ContentPages: pdftext.DefaultMaxPages,
			Tagging: TaggingConfig{
				Enabled: true,
			},
		},
		Search: SearchConfig{
			MinPartitionSize: fuzzy.MinPartitionSize,
		},
	}
}
