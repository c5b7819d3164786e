// Package config loads rawconv conversion profiles.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cocosip/go-raw-codec/codec"
	"github.com/cocosip/go-raw-codec/dicom"
	"github.com/cocosip/go-raw-codec/export"
	"github.com/cocosip/go-raw-codec/rawio"
	"github.com/cocosip/go-raw-codec/resize"
)

// Config represents a conversion profile
type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Resize ResizeConfig `yaml:"resize"`
	Batch  BatchConfig  `yaml:"batch"`
	Log    LogConfig    `yaml:"log"`
	DICOM  DICOMConfig  `yaml:"dicom"`
}

// InputConfig contains input loading settings
type InputConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"` // cap on file and decompressed size
}

// OutputConfig contains output file settings
type OutputConfig struct {
	Format string `yaml:"format"` // png, png8, tiff; empty picks by extension
	Dir    string `yaml:"dir"`    // output directory for batch runs
}

// ResizeConfig contains downscale settings
type ResizeConfig struct {
	Scale  float64 `yaml:"scale"`  // (0, 1], 0 or 1 disables
	Filter string  `yaml:"filter"` // triangle, catmullrom, mitchell, lanczos3
}

// BatchConfig contains batch decoding settings
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DICOMConfig contains DICOM pixel data export settings
type DICOMConfig struct {
	TransferSyntax string `yaml:"transfer_syntax"` // empty disables
}

// Default returns the built-in profile
func Default() *Config {
	return &Config{
		Input:  InputConfig{MaxSizeMB: rawio.DefaultLimit >> 20},
		Resize: ResizeConfig{Scale: 1, Filter: "triangle"},
		Batch:  BatchConfig{Workers: 1},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a YAML profile. Keys the file omits keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the profile and fills zero values with defaults
func (c *Config) Validate() error {
	if c.Input.MaxSizeMB < 0 {
		return fmt.Errorf("input.max_size_mb must be >= 0")
	}
	if c.Input.MaxSizeMB == 0 {
		c.Input.MaxSizeMB = rawio.DefaultLimit >> 20
	}

	if c.Output.Format != "" {
		if _, err := export.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("output.format: %w", err)
		}
	}

	if c.Resize.Scale == 0 {
		c.Resize.Scale = 1
	}
	if _, err := c.DecodeOptions(); err != nil {
		return fmt.Errorf("resize: %w", err)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must be >= 0")
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 1
	}

	if _, err := c.Level(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if c.DICOM.TransferSyntax != "" {
		if _, err := dicom.SyntaxByName(c.DICOM.TransferSyntax); err != nil {
			return fmt.Errorf("dicom.transfer_syntax: %w", err)
		}
	}

	return nil
}

// DecodeOptions returns the codec options the resize section describes
func (c *Config) DecodeOptions() (codec.DecodeOptions, error) {
	f, err := resize.ParseFilter(c.Resize.Filter)
	if err != nil {
		return codec.DecodeOptions{}, err
	}
	opts := codec.DecodeOptions{Scale: c.Resize.Scale, Filter: f}
	if err := opts.Validate(); err != nil {
		return codec.DecodeOptions{}, err
	}
	return opts, nil
}

// Level parses the log level
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(c.Log.Level))
	return l, err
}

// MaxInputBytes is the input size cap in bytes
func (c *Config) MaxInputBytes() int64 {
	return int64(c.Input.MaxSizeMB) << 20
}
