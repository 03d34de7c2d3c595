// Package config loads the settings of the seqadapt command from defaults,
// an optional config file, SEQADAPT_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid reports a configuration value outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Dropout  DropoutConfig `mapstructure:"dropout"`
	Adapter  AdapterConfig `mapstructure:"adapter"`
	Batch    BatchConfig   `mapstructure:"batch"`
	LogLevel string        `mapstructure:"log_level"`
}

type DropoutConfig struct {
	Rate float64 `mapstructure:"rate"`
	Seed uint64  `mapstructure:"seed"`
}

type AdapterConfig struct {
	Pad int `mapstructure:"pad"`
}

// BatchConfig describes the synthetic batch the check command runs:
// one item per entry of Lengths, Width input features per row and
// OutWidth features after the linear layer.
type BatchConfig struct {
	Lengths  []int `mapstructure:"lengths"`
	Width    int   `mapstructure:"width"`
	OutWidth int   `mapstructure:"out_width"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// flagKeys maps every flag registered by RegisterFlags to its config key.
var flagKeys = []struct{ flag, key string }{
	{"dropout-rate", "dropout.rate"},
	{"dropout-seed", "dropout.seed"},
	{"adapter-pad", "adapter.pad"},
	{"batch-lengths", "batch.lengths"},
	{"batch-width", "batch.width"},
	{"batch-out-width", "batch.out_width"},
	{"log-level", "log_level"},
}

func DefaultConfig() Config {
	return Config{
		Dropout: DropoutConfig{
			Rate: 0.1,
			Seed: 0,
		},
		Adapter: AdapterConfig{
			Pad: 1,
		},
		Batch: BatchConfig{
			Lengths:  []int{3, 1, 2},
			Width:    4,
			OutWidth: 8,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.Float64("dropout-rate", defaults.Dropout.Rate, "Dropout probability in [0, 1)")
	fs.Uint64("dropout-seed", defaults.Dropout.Seed, "Seed for dropout masks (0 picks a random seed)")
	fs.Int("adapter-pad", defaults.Adapter.Pad, "Zero rows between list items in the 2D adapter")
	fs.IntSlice("batch-lengths", defaults.Batch.Lengths, "Item lengths of the check batch")
	fs.Int("batch-width", defaults.Batch.Width, "Input feature width of the check batch")
	fs.Int("batch-out-width", defaults.Batch.OutWidth, "Output feature width of the linear layer")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("SEQADAPT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("seqadapt")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every value is within its allowed range.
func (c Config) Validate() error {
	if c.Dropout.Rate < 0 || c.Dropout.Rate >= 1 {
		return fmt.Errorf("dropout.rate %v outside [0, 1): %w", c.Dropout.Rate, ErrInvalid)
	}
	if c.Adapter.Pad < 0 {
		return fmt.Errorf("adapter.pad %d is negative: %w", c.Adapter.Pad, ErrInvalid)
	}
	if c.Batch.Width < 1 || c.Batch.OutWidth < 1 {
		return fmt.Errorf("batch widths %d and %d must be at least 1: %w", c.Batch.Width, c.Batch.OutWidth, ErrInvalid)
	}
	if len(c.Batch.Lengths) == 0 {
		return fmt.Errorf("batch.lengths is empty: %w", ErrInvalid)
	}
	for i, n := range c.Batch.Lengths {
		if n < 0 {
			return fmt.Errorf("batch.lengths[%d] = %d is negative: %w", i, n, ErrInvalid)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("dropout.rate", c.Dropout.Rate)
	v.SetDefault("dropout.seed", c.Dropout.Seed)
	v.SetDefault("adapter.pad", c.Adapter.Pad)
	v.SetDefault("batch.lengths", c.Batch.Lengths)
	v.SetDefault("batch.width", c.Batch.Width)
	v.SetDefault("batch.out_width", c.Batch.OutWidth)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each registered flag to its nested key, so that flags,
// env vars and file values all resolve to the same setting.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return err
		}
	}
	return nil
}
