//-------------------------------------------------------------------------
//
// pgEdge Normalize
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-normalize.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-normalize/internal/normalize"
)

// Config holds all configuration for pgedge-normalize.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Input describes the flat export to read.
	Input InputConfig `mapstructure:"input"`

	// Output selects and configures the sink.
	Output OutputConfig `mapstructure:"output"`

	// Policy holds the resolution heuristics.
	Policy PolicyConfig `mapstructure:"policy"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`
}

// InputConfig describes the source CSV.
type InputConfig struct {
	// Path is the CSV file to read.
	Path string `mapstructure:"path"`

	// Encoding is the file character set: utf-8 or latin1.
	Encoding string `mapstructure:"encoding"`

	// Delimiter is the single-character field separator.
	Delimiter string `mapstructure:"delimiter"`

	// TimestampLayout is a Go time layout for the invoice date column.
	TimestampLayout string `mapstructure:"timestamp_layout"`

	// Timezone is the IANA zone the timestamps are recorded in.
	Timezone string `mapstructure:"timezone"`

	// SkipMalformed skips rows that fail to parse instead of aborting.
	SkipMalformed bool `mapstructure:"skip_malformed"`
}

// OutputConfig selects the sink that receives the resolved tables.
type OutputConfig struct {
	// Sink is the registered sink name (postgres, sqlite, csv).
	Sink string `mapstructure:"sink"`

	// Connection is the PostgreSQL connection string (postgres sink).
	Connection string `mapstructure:"connection"`

	// Path is the database file (sqlite sink) or directory (csv sink).
	Path string `mapstructure:"path"`

	// DropExisting drops the output tables before writing.
	DropExisting bool `mapstructure:"drop_existing"`
}

// PolicyConfig mirrors normalize.Policy in configuration form.
type PolicyConfig struct {
	// Sentinels replaces the built-in country table when non-empty.
	Sentinels []normalize.Sentinel `mapstructure:"sentinels"`

	// DefaultSentinel is assigned to unmapped countries.
	DefaultSentinel int64 `mapstructure:"default_sentinel"`

	// UnmappedCountry is warn or fail.
	UnmappedCountry string `mapstructure:"unmapped_country"`

	// MissingDescription is warn or fail.
	MissingDescription string `mapstructure:"missing_description"`

	// CountrySelection is latest or most-frequent.
	CountrySelection string `mapstructure:"country_selection"`

	// DescriptionSelection is most-frequent or latest.
	DescriptionSelection string `mapstructure:"description_selection"`

	// TieBreak is first-seen or last-seen.
	TieBreak string `mapstructure:"tie_break"`
}

// GenerateConfig holds configuration for synthetic export generation.
type GenerateConfig struct {
	// Output is the CSV file to write.
	Output string `mapstructure:"output"`

	// Rows is the number of transaction rows to generate.
	Rows int `mapstructure:"rows"`

	// Seed makes the output reproducible; 0 picks a random seed.
	Seed uint64 `mapstructure:"seed"`

	// Customers and Products size the generated populations.
	Customers int `mapstructure:"customers"`
	Products  int `mapstructure:"products"`

	// MissingCustomerRate is the share of rows exported without a customer.
	MissingCustomerRate float64 `mapstructure:"missing_customer_rate"`

	// DescriptionVariantRate is the share of rows with a variant description.
	DescriptionVariantRate float64 `mapstructure:"description_variant_rate"`

	// EmptyDescriptionRate is the share of rows with an empty description.
	EmptyDescriptionRate float64 `mapstructure:"empty_description_rate"`

	// CountryChangeRate is the share of customers that move country once.
	CountryChangeRate float64 `mapstructure:"country_change_rate"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Input: InputConfig{
			Encoding:        "utf-8",
			Delimiter:       ",",
			TimestampLayout: "1/2/2006 15:04",
			Timezone:        "UTC",
		},
		Output: OutputConfig{
			Sink: "postgres",
		},
		Policy: PolicyConfig{
			DefaultSentinel:      normalize.DefaultSentinelID,
			UnmappedCountry:      string(normalize.ViolationWarn),
			MissingDescription:   string(normalize.ViolationWarn),
			CountrySelection:     string(normalize.CountryLatest),
			DescriptionSelection: string(normalize.DescriptionMostFrequent),
			TieBreak:             string(normalize.TieBreakFirstSeen),
		},
		Generate: GenerateConfig{
			Rows:                   10000,
			Customers:              500,
			Products:               300,
			MissingCustomerRate:    0.2,
			DescriptionVariantRate: 0.05,
			EmptyDescriptionRate:   0.01,
			CountryChangeRate:      0.02,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-normalize.yaml
// 3. ~/.config/pgedge-normalize/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-normalize")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-normalize"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ValidateNormalize checks configuration required for the normalize command.
func (c *Config) ValidateNormalize() error {
	if err := c.ValidateInput(); err != nil {
		return err
	}
	return c.ValidateOutput()
}

// ValidateInput checks the input section and the policy.
func (c *Config) ValidateInput() error {
	if c.Input.Path == "" {
		return fmt.Errorf("input path is required")
	}
	switch strings.ToLower(c.Input.Encoding) {
	case "utf-8", "utf8", "latin1", "iso-8859-1":
	default:
		return fmt.Errorf("input encoding must be 'utf-8' or 'latin1'")
	}
	if len([]rune(c.Input.Delimiter)) != 1 {
		return fmt.Errorf("input delimiter must be a single character")
	}
	if c.Input.TimestampLayout == "" {
		return fmt.Errorf("input timestamp_layout is required")
	}
	if _, err := time.LoadLocation(c.Input.Timezone); err != nil {
		return fmt.Errorf("invalid input timezone %q: %w", c.Input.Timezone, err)
	}
	_, err := c.BuildPolicy()
	return err
}

// ValidateOutput checks the sink selection and its settings.
func (c *Config) ValidateOutput() error {
	switch c.Output.Sink {
	case "postgres":
		if c.Output.Connection == "" {
			return fmt.Errorf("connection string is required for the postgres sink")
		}
	case "sqlite", "csv":
		if c.Output.Path == "" {
			return fmt.Errorf("output path is required for the %s sink", c.Output.Sink)
		}
	case "":
		return fmt.Errorf("output sink is required")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	g := c.Generate
	if g.Output == "" {
		return fmt.Errorf("generate output path is required")
	}
	if g.Rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}
	if g.Customers < 1 || g.Products < 1 {
		return fmt.Errorf("customers and products must be at least 1")
	}
	rates := map[string]float64{
		"missing_customer_rate":    g.MissingCustomerRate,
		"description_variant_rate": g.DescriptionVariantRate,
		"empty_description_rate":   g.EmptyDescriptionRate,
		"country_change_rate":      g.CountryChangeRate,
	}
	for name, r := range rates {
		if r < 0 || r > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// BuildPolicy converts the policy section into a validated normalize.Policy.
func (c *Config) BuildPolicy() (normalize.Policy, error) {
	entries := c.Policy.Sentinels
	if len(entries) == 0 {
		entries = normalize.DefaultSentinels()
	}
	table, err := normalize.NewSentinelTable(entries, c.Policy.DefaultSentinel)
	if err != nil {
		return normalize.Policy{}, err
	}

	p := normalize.Policy{
		Sentinels:            table,
		UnmappedCountry:      normalize.Violation(c.Policy.UnmappedCountry),
		MissingDescription:   normalize.Violation(c.Policy.MissingDescription),
		CountrySelection:     normalize.CountrySelection(c.Policy.CountrySelection),
		DescriptionSelection: normalize.DescriptionSelection(c.Policy.DescriptionSelection),
		TieBreak:             normalize.TieBreak(c.Policy.TieBreak),
	}
	if err := p.Validate(); err != nil {
		return normalize.Policy{}, err
	}
	return p, nil
}
