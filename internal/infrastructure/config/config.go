package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/etherpipe/internal/ether"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/etherpipe/internal/pipeline"
	"github.com/GriffinCanCode/etherpipe/internal/trunk"
)

// EnvPrefix prefixes every environment variable, e.g. ETHERPIPE_QUEUE_CAPACITY.
const EnvPrefix = "ETHERPIPE"

var (
	ErrUnknownFormat = errors.New("unknown config file format")
	ErrTrunkTable    = errors.New("trunk quotas and delays differ in length")
)

// Config holds all application configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" toml:"pipeline"`
	Exchange ExchangeConfig `yaml:"exchange" toml:"exchange"`
	Notify   NotifyConfig   `yaml:"notify" toml:"notify"`
	Logging  LogConfig      `yaml:"logging" toml:"logging"`
	Monitor  MonitorConfig  `yaml:"monitor" toml:"monitor"`
}

// PipelineConfig holds the topology. Delays are in microseconds.
type PipelineConfig struct {
	QueueCapacity int     `envconfig:"QUEUE_CAPACITY" default:"32" yaml:"queue_capacity" toml:"queue_capacity"`
	EtherCapacity int     `envconfig:"ETHER_CAPACITY" default:"24" yaml:"ether_capacity" toml:"ether_capacity"`
	EtherDelayUS  int64   `envconfig:"ETHER_DELAY_US" default:"0" yaml:"ether_delay_us" toml:"ether_delay_us"`
	TrunkQuotas   []int   `envconfig:"TRUNK_QUOTAS" default:"6,6,6,6" yaml:"trunk_quotas" toml:"trunk_quotas"`
	TrunkDelaysUS []int64 `envconfig:"TRUNK_DELAYS_US" default:"50000,100000,400000,800000" yaml:"trunk_delays_us" toml:"trunk_delays_us"`
	Correlated    bool    `envconfig:"CORRELATED" default:"false" yaml:"correlated" toml:"correlated"`
}

// ExchangeConfig holds the external echo service client configuration.
type ExchangeConfig struct {
	Endpoint       string  `envconfig:"ENDPOINT" default:"udp://localhost:8712" yaml:"endpoint" toml:"endpoint"`
	TimeoutMS      int     `envconfig:"EXCHANGE_TIMEOUT_MS" default:"2000" yaml:"timeout_ms" toml:"timeout_ms"`
	RateLimitRPS   float64 `envconfig:"EXCHANGE_RPS" default:"0" yaml:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst int     `envconfig:"EXCHANGE_BURST" default:"1" yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	Breaker        bool    `envconfig:"EXCHANGE_BREAKER" default:"true" yaml:"breaker" toml:"breaker"`
}

// NotifyConfig holds notification channel configuration.
type NotifyConfig struct {
	TraceFile string `envconfig:"TRACE_FILE" default:"RTtrace.log" yaml:"trace_file" toml:"trace_file"`
	Buffer    int    `envconfig:"NOTIFY_BUFFER" default:"64" yaml:"buffer" toml:"buffer"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Encoding    string `envconfig:"LOG_ENCODING" default:"" yaml:"encoding" toml:"encoding"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// Logger maps the section onto a logger configuration. An empty encoding
// follows Development.
func (l LogConfig) Logger() logging.Config {
	return logging.Config{
		Level:       l.Level,
		Encoding:    l.Encoding,
		Development: l.Development,
	}
}

// MonitorConfig holds the optional status server configuration.
type MonitorConfig struct {
	Addr string `envconfig:"METRICS_ADDR" default:"" yaml:"addr" toml:"addr"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	sections := []any{&cfg.Pipeline, &cfg.Exchange, &cfg.Notify, &cfg.Logging, &cfg.Monitor}
	for _, section := range sections {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile reads a YAML or TOML file on top of the defaults. The format is
// chosen by extension. Environment variables are not consulted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			QueueCapacity: 32,
			EtherCapacity: 24,
			TrunkQuotas:   []int{6, 6, 6, 6},
			TrunkDelaysUS: []int64{50000, 100000, 400000, 800000},
		},
		Exchange: ExchangeConfig{
			Endpoint:       "udp://localhost:8712",
			TimeoutMS:      2000,
			RateLimitBurst: 1,
			Breaker:        true,
		},
		Notify: NotifyConfig{
			TraceFile: "RTtrace.log",
			Buffer:    64,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Timeout returns the per-exchange timeout.
func (e ExchangeConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// PipelineConfig converts the flat trunk table into a validated topology.
// Trunk IDs are assigned in table order starting at 1.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	p := c.Pipeline
	if len(p.TrunkQuotas) != len(p.TrunkDelaysUS) {
		return pipeline.Config{}, fmt.Errorf("%w: %d quotas, %d delays", ErrTrunkTable, len(p.TrunkQuotas), len(p.TrunkDelaysUS))
	}

	out := pipeline.Config{
		QueueCapacity: p.QueueCapacity,
		Ether: ether.Config{
			ID:       1,
			Capacity: p.EtherCapacity,
			Delay:    time.Duration(p.EtherDelayUS) * time.Microsecond,
		},
		Trunks: make([]trunk.Config, len(p.TrunkQuotas)),
	}
	for i, quota := range p.TrunkQuotas {
		out.Trunks[i] = trunk.Config{
			ID:         i + 1,
			Quota:      quota,
			Delay:      time.Duration(p.TrunkDelaysUS[i]) * time.Microsecond,
			Correlated: p.Correlated,
		}
	}

	if err := out.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return out, nil
}
