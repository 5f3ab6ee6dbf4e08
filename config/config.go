package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/minios-linux/jsonfill/langmeta"
	"github.com/minios-linux/jsonfill/translate"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "JSONFILL_"

// Config holds resolved settings. Command-line flags are applied on top by
// the caller, followed by Validate.
type Config struct {
	SourceLang string
	TargetLang string

	Endpoint      string
	Client        string
	MaxConcurrent int
	Timeout       time.Duration
	Proxy         string
	MaxRetries    int

	OutputDir string
	InPlace   bool
	Backup    bool
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		SourceLang:    "en",
		Endpoint:      translate.DefaultEndpoint,
		Client:        translate.DefaultClientID,
		MaxConcurrent: translate.DefaultMaxConcurrent,
		Timeout:       translate.DefaultTimeout,
	}
}

// Load builds a Config from defaults, the config file and the environment,
// in increasing order of precedence.
//
// configPath may be empty, in which case FileName in the working directory
// is used if present. envPath names an optional dotenv file; real
// environment variables take precedence over its entries.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	path := configPath
	if path == "" {
		path = FileName
	}
	file, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if file == nil && configPath != "" {
		return nil, fmt.Errorf("config: %s not found", configPath)
	}
	if file != nil {
		file.apply(cfg)
	}

	// .env is optional when variables come from the environment (CI, shells).
	dotenv := map[string]string{}
	if envPath != "" {
		if m, err := godotenv.Read(envPath); err == nil {
			dotenv = m
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", envPath, err)
		}
	}
	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+name]
		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SOURCE_LANG": &c.SourceLang,
		"TARGET_LANG": &c.TargetLang,
		"ENDPOINT":    &c.Endpoint,
		"PROXY":       &c.Proxy,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"MAX_CONCURRENT": &c.MaxConcurrent,
		"MAX_RETRIES":    &c.MaxRetries,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s must be an integer, got %q", EnvPrefix, name, v)
		}
		*dst = n
	}

	if v, ok := lookup("TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sTIMEOUT must be a duration such as 30s, got %q", EnvPrefix, v)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the settings and normalizes language codes. TargetLang
// may be empty; the caller then infers it per target file.
func (c *Config) Validate() error {
	src, err := langmeta.NormalizeSource(c.SourceLang)
	if err != nil {
		return fmt.Errorf("config: source language: %w", err)
	}
	c.SourceLang = src

	if c.TargetLang != "" {
		tgt, err := langmeta.Normalize(c.TargetLang)
		if err != nil {
			return fmt.Errorf("config: target language: %w", err)
		}
		c.TargetLang = tgt
	}

	if c.MaxConcurrent < 1 {
		return fmt.Errorf("config: max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if strings.TrimSpace(c.Client) == "" {
		return fmt.Errorf("config: client must not be empty")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("config: invalid endpoint (%q): %w", c.Endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid endpoint (%q): missing scheme or host", c.Endpoint)
	}

	if c.Proxy != "" {
		p, err := url.Parse(c.Proxy)
		if err != nil || p.Host == "" {
			return fmt.Errorf("config: invalid proxy URL (%q)", c.Proxy)
		}
	}

	if c.InPlace && c.OutputDir != "" {
		return fmt.Errorf("config: in_place and output_dir cannot be combined")
	}
	return nil
}
