// Package config loads pdfimages settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/novvoo/go-pdfimages/pkg/images"
	"github.com/novvoo/go-pdfimages/pkg/logging"
)

// Config holds all settings
type Config struct {
	Workers     int               `yaml:"workers"`
	Strategies  []string          `yaml:"strategies"`
	Fallback    FallbackConfig    `yaml:"fallback"`
	Placeholder PlaceholderConfig `yaml:"placeholder"`
	Output      OutputConfig      `yaml:"output"`
	Log         logging.Config    `yaml:"log"`
}

// FallbackConfig configures the renderer-based strategy
type FallbackConfig struct {
	AsyncTimeout time.Duration `yaml:"async_timeout"`
	FirstPage    int           `yaml:"first_page"`
	LastPage     int           `yaml:"last_page"`
}

// PlaceholderConfig sizes placeholder images
type PlaceholderConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	FontSize float64 `yaml:"font_size"`
}

// OutputConfig controls where extracted images are written
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:    0,
		Strategies: []string{images.StrategyObjects, images.StrategyFallback},
		Fallback: FallbackConfig{
			AsyncTimeout: images.DefaultAsyncTimeout,
			FirstPage:    1,
		},
		Placeholder: PlaceholderConfig{
			Width:    200,
			Height:   200,
			FontSize: 14,
		},
		Output: OutputConfig{
			Dir:    "./images",
			Prefix: "img",
		},
		Log: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// envVarPattern matches ${VAR_NAME}
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path over the defaults. A missing file yields the defaults.
// ${VAR} references are replaced by environment values before parsing.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(name)
	})
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative"))
	}
	for _, s := range c.Strategies {
		if s != images.StrategyObjects && s != images.StrategyFallback {
			errs = append(errs, fmt.Errorf("unknown strategy %q", s))
		}
	}
	if c.Fallback.AsyncTimeout < 0 {
		errs = append(errs, fmt.Errorf("fallback.async_timeout must not be negative"))
	}
	if c.Fallback.FirstPage < 0 || c.Fallback.LastPage < 0 {
		errs = append(errs, fmt.Errorf("fallback page range must not be negative"))
	}
	if c.Fallback.LastPage > 0 && c.Fallback.LastPage < c.Fallback.FirstPage {
		errs = append(errs, fmt.Errorf("fallback.last_page %d before first_page %d", c.Fallback.LastPage, c.Fallback.FirstPage))
	}
	if c.Placeholder.Width < 0 || c.Placeholder.Height < 0 || c.Placeholder.FontSize < 0 {
		errs = append(errs, fmt.Errorf("placeholder dimensions must not be negative"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ExtractOptions converts the configuration into pipeline options
func (c *Config) ExtractOptions() images.Options {
	return images.Options{
		Workers:    c.Workers,
		Strategies: c.Strategies,
		Fallback: images.FallbackOptions{
			AsyncTimeout: c.Fallback.AsyncTimeout,
			FirstPage:    c.Fallback.FirstPage,
			LastPage:     c.Fallback.LastPage,
		},
		Placeholder: images.PlaceholderOptions{
			Width:    c.Placeholder.Width,
			Height:   c.Placeholder.Height,
			FontSize: c.Placeholder.FontSize,
		},
	}
}
