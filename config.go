package dispatch

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// Environment variables overriding Config values.
const (
	EnvBasePath        = "DISPATCH_BASE_PATH"
	EnvLanguageHeader  = "DISPATCH_LANGUAGE_HEADER"
	EnvDefaultLanguage = "DISPATCH_DEFAULT_LANGUAGE"
	EnvDebug           = "DISPATCH_DEBUG"
)

// Config is the file form of the dispatcher settings.
type Config struct {
	Title           string           `toml:"title"`
	Version         string           `toml:"version"`
	BasePath        string           `toml:"base_path"`
	LanguageHeader  string           `toml:"language_header"`
	DefaultLanguage int              `toml:"default_language"`
	Entrypoint      bool             `toml:"entrypoint"`
	Debug           bool             `toml:"debug"`
	Languages       []LanguageConfig `toml:"languages"`
}

// LanguageConfig declares one site language.
type LanguageConfig struct {
	ID     int    `toml:"id"`
	Locale string `toml:"locale"`
	Title  string `toml:"title"`
}

// LoadConfig reads a TOML file and finalizes it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.LanguageHeader == "" {
		c.LanguageHeader = DefaultLanguageHeader
	}
	if len(c.Languages) == 0 {
		c.Languages = []LanguageConfig{{ID: c.DefaultLanguage, Locale: "en", Title: "English"}}
	}
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvLanguageHeader); v != "" {
		c.LanguageHeader = v
	}
	if v := os.Getenv(EnvDefaultLanguage); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDefaultLanguage, err)
		}
		c.DefaultLanguage = id
	}
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		c.Debug = b
	}
	return nil
}

func (c *Config) validate() error {
	seen := make(map[int]bool, len(c.Languages))
	hasDefault := false
	for _, l := range c.Languages {
		if seen[l.ID] {
			return fmt.Errorf("duplicate language id %d", l.ID)
		}
		seen[l.ID] = true
		if _, err := language.Parse(l.Locale); err != nil {
			return fmt.Errorf("language %d: invalid locale %q: %w", l.ID, l.Locale, err)
		}
		hasDefault = hasDefault || l.ID == c.DefaultLanguage
	}
	if !hasDefault {
		return errors.New("default_language is not among the configured languages")
	}
	return nil
}

// Site builds the static site described by the languages table.
func (c *Config) Site() (*StaticSite, error) {
	langs := make([]SiteLanguage, 0, len(c.Languages))
	for _, l := range c.Languages {
		tag, err := language.Parse(l.Locale)
		if err != nil {
			return nil, fmt.Errorf("language %d: %w", l.ID, err)
		}
		langs = append(langs, SiteLanguage{ID: l.ID, Tag: tag, Title: l.Title})
	}
	return NewSite(langs...), nil
}

// Options converts the configuration into dispatcher options.
func (c *Config) Options() ([]Option, error) {
	site, err := c.Site()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithTitle(c.Title),
		WithVersion(c.Version),
		WithBasePath(c.BasePath),
		WithLanguageHeader(c.LanguageHeader),
		WithDefaultLanguage(c.DefaultLanguage),
		WithSite(site),
		WithSerializer(JSONLD{Debug: c.Debug}),
	}
	if c.Entrypoint {
		opts = append(opts, WithEntrypoint())
	}
	return opts, nil
}
