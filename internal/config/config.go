// Package config provides Viper-based configuration loading for the dice roller.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/dicesim/internal/dice"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// RollConfig holds defaults for roll evaluation.
type RollConfig struct {
	// Times is how many times the expression is rolled.
	Times int `mapstructure:"times"`
	// Mode is the advantage mode: "none", "advantage", or "disadvantage".
	Mode string `mapstructure:"mode"`
	// Seed selects a deterministic source when non-zero; 0 uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
	// Quiet prints only totals.
	Quiet bool `mapstructure:"quiet"`
}

// AdvantageMode returns the parsed Mode.
//
// Precondition: Validate has accepted the config.
func (r RollConfig) AdvantageMode() dice.AdvantageMode {
	m, _ := dice.ParseAdvantageMode(r.Mode)
	return m
}

// Source returns the randomness source selected by Seed.
func (r RollConfig) Source() dice.Source {
	if r.Seed != 0 {
		return dice.NewSeededSource(r.Seed)
	}
	return dice.NewCryptoSource()
}

// PresetConfig locates named expression files.
type PresetConfig struct {
	// Dir is the directory of preset YAML files; empty disables presets.
	Dir string `mapstructure:"dir"`
}

// ScriptingConfig holds Lua hook settings.
type ScriptingConfig struct {
	// Script is the Lua hook file; empty disables scripting.
	Script string `mapstructure:"script"`
	// InstructionLimit caps Lua opcodes per VM; 0 uses the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Roll      RollConfig      `mapstructure:"roll"`
	Presets   PresetConfig    `mapstructure:"presets"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoll(c.Roll); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateRoll(r RollConfig) error {
	var errs []string
	if r.Times < 1 {
		errs = append(errs, fmt.Sprintf("roll.times must be >= 1, got %d", r.Times))
	}
	if _, err := dice.ParseAdvantageMode(r.Mode); err != nil {
		errs = append(errs, fmt.Sprintf("roll.mode must be one of [none, advantage, disadvantage], got %q", r.Mode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with DICE_ prefix
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	v.SetDefault("roll.times", 1)
	v.SetDefault("roll.mode", "none")
	v.SetDefault("roll.seed", 0)
	v.SetDefault("roll.quiet", false)

	v.SetDefault("presets.dir", "")

	v.SetDefault("scripting.script", "")
	v.SetDefault("scripting.instruction_limit", 100_000)
}
