// Package config loads jsonfill settings from .jsonfill.yaml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the .jsonfill.yaml structure. Unset fields keep their defaults.
type File struct {
	// SourceLang is the language of the source file (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the default target language when it cannot be inferred
	// from the target file name.
	TargetLang string `yaml:"target_lang,omitempty"`

	// Endpoint overrides the translation endpoint URL.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Client is the gtx client identifier.
	Client string `yaml:"client,omitempty"`

	MaxConcurrent *int           `yaml:"max_concurrent,omitempty"`
	Timeout       *time.Duration `yaml:"timeout,omitempty"`
	Proxy         string         `yaml:"proxy,omitempty"`
	MaxRetries    *int           `yaml:"max_retries,omitempty"`

	// OutputDir, InPlace and Backup select where results go.
	OutputDir string `yaml:"output_dir,omitempty"`
	InPlace   *bool  `yaml:"in_place,omitempty"`
	Backup    *bool  `yaml:"backup,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".jsonfill.yaml"

// LoadFile reads and decodes a config file. Unknown keys are rejected.
// Returns nil if the file does not exist.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	var cf File
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		// An empty file has no document.
		if errors.Is(err, io.EOF) {
			return &cf, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cf, nil
}

// apply copies the fields set in f onto c.
func (f *File) apply(c *Config) {
	if f.SourceLang != "" {
		c.SourceLang = f.SourceLang
	}
	if f.TargetLang != "" {
		c.TargetLang = f.TargetLang
	}
	if f.Endpoint != "" {
		c.Endpoint = f.Endpoint
	}
	if f.Client != "" {
		c.Client = f.Client
	}
	if f.MaxConcurrent != nil {
		c.MaxConcurrent = *f.MaxConcurrent
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.Proxy != "" {
		c.Proxy = f.Proxy
	}
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	if f.InPlace != nil {
		c.InPlace = *f.InPlace
	}
	if f.Backup != nil {
		c.Backup = *f.Backup
	}
}
