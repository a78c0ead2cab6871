package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trading-mtfsync/internal/indicator"
	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/mtf"
)

// Config holds all application configuration. Values come from, in order
// of precedence: MTF_* environment variables (optionally from .env), the
// YAML file, then built-in defaults.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Source     SourceConfig     `yaml:"source"`
	Indicators indicator.Params `yaml:"indicators"`
	Sync       mtf.Options      `yaml:"sync"`
	Sinks      SinksConfig      `yaml:"sinks"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type PipelineConfig struct {
	Symbols     []string `yaml:"symbols"`
	PrimaryTF   string   `yaml:"primary_tf"`
	SecondaryTF string   `yaml:"secondary_tf"`

	// DerivePrimary builds the primary series by resampling the secondary
	// one instead of loading it.
	DerivePrimary bool `yaml:"derive_primary"`

	Concurrency int           `yaml:"concurrency"`
	Schedule    string        `yaml:"schedule"` // cron spec with seconds; empty runs once
	RunTimeout  time.Duration `yaml:"run_timeout"`
}

// Source kinds.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

type SourceConfig struct {
	Kind string `yaml:"kind"`

	// CSVDir and CSVPattern locate one file per symbol and timeframe;
	// {symbol} and {tf} are substituted.
	CSVDir     string `yaml:"csv_dir"`
	CSVPattern string `yaml:"csv_pattern"`

	SQLitePath string `yaml:"sqlite_path"`
	Exchange   string `yaml:"exchange"`
}

type SinksConfig struct {
	CSV       CSVSinkConfig       `yaml:"csv"`
	SQLite    SQLiteSinkConfig    `yaml:"sqlite"`
	Redis     RedisSinkConfig     `yaml:"redis"`
	Timescale TimescaleSinkConfig `yaml:"timescale"`
	Feed      FeedSinkConfig      `yaml:"feed"`
}

type CSVSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type SQLiteSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type RedisSinkConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	MaxLen   int64  `yaml:"max_len"`
	Channel  string `yaml:"channel"`
}

type TimescaleSinkConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DSN          string        `yaml:"dsn"`
	Schema       string        `yaml:"schema"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// FeedSinkConfig serves run notifications over WebSocket at /ws on the
// metrics address.
type FeedSinkConfig struct {
	Enabled bool `yaml:"enabled"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Pipeline: PipelineConfig{
			PrimaryTF:   "4h",
			SecondaryTF: "1h",
			Concurrency: 4,
			RunTimeout:  5 * time.Minute,
		},
		Source: SourceConfig{
			Kind:       SourceCSV,
			CSVDir:     "data",
			CSVPattern: "{symbol}_{tf}.csv",
			SQLitePath: "data/candles.db",
		},
		Indicators: indicator.DefaultParams(),
		Sync:       mtf.DefaultOptions(),
		Sinks: SinksConfig{
			CSV:       CSVSinkConfig{Enabled: true, Dir: "output"},
			SQLite:    SQLiteSinkConfig{Path: "data/mtf.db"},
			Redis:     RedisSinkConfig{Addr: "localhost:6379", MaxLen: 10000, Channel: "mtf:runs"},
			Timescale: TimescaleSinkConfig{WriteTimeout: 10 * time.Second},
		},
	}
}

// Load reads the YAML file at path (optional), loads .env if present,
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := ReadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// ReadFile decodes the YAML file at path over cfg and restores defaults
// for fields it zeroed. No environment overrides or validation.
func ReadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return nil
}

// applyDefaults restores defaults for fields a file explicitly zeroed.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Pipeline.PrimaryTF == "" {
		cfg.Pipeline.PrimaryTF = def.Pipeline.PrimaryTF
	}
	if cfg.Pipeline.SecondaryTF == "" {
		cfg.Pipeline.SecondaryTF = def.Pipeline.SecondaryTF
	}
	if cfg.Pipeline.Concurrency <= 0 {
		cfg.Pipeline.Concurrency = def.Pipeline.Concurrency
	}
	if cfg.Pipeline.RunTimeout <= 0 {
		cfg.Pipeline.RunTimeout = def.Pipeline.RunTimeout
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = def.Source.Kind
	}
	if cfg.Source.CSVPattern == "" {
		cfg.Source.CSVPattern = def.Source.CSVPattern
	}
	if len(cfg.Indicators.EMAPeriods) == 0 {
		cfg.Indicators.EMAPeriods = def.Indicators.EMAPeriods
	}
	if cfg.Sinks.Redis.MaxLen <= 0 {
		cfg.Sinks.Redis.MaxLen = def.Sinks.Redis.MaxLen
	}
	if cfg.Sinks.Timescale.WriteTimeout <= 0 {
		cfg.Sinks.Timescale.WriteTimeout = def.Sinks.Timescale.WriteTimeout
	}
}

func applyEnv(cfg *Config) {
	if v := getEnv("MTF_SYMBOLS", ""); v != "" {
		cfg.Pipeline.Symbols = splitList(v)
	}
	cfg.Pipeline.PrimaryTF = getEnv("MTF_PRIMARY_TF", cfg.Pipeline.PrimaryTF)
	cfg.Pipeline.SecondaryTF = getEnv("MTF_SECONDARY_TF", cfg.Pipeline.SecondaryTF)
	cfg.Pipeline.Schedule = getEnv("MTF_SCHEDULE", cfg.Pipeline.Schedule)
	cfg.Log.Level = getEnv("MTF_LOG_LEVEL", cfg.Log.Level)
	cfg.Metrics.Addr = getEnv("MTF_METRICS_ADDR", cfg.Metrics.Addr)

	if v := getEnv("MTF_SQLITE_PATH", ""); v != "" {
		cfg.Source.SQLitePath = v
		cfg.Sinks.SQLite.Path = v
	}
	if v := getEnv("MTF_OUTPUT_DIR", ""); v != "" {
		cfg.Sinks.CSV.Dir = v
	}
	cfg.Sinks.Redis.Addr = getEnv("MTF_REDIS_ADDR", cfg.Sinks.Redis.Addr)
	cfg.Sinks.Redis.Password = getEnv("MTF_REDIS_PASSWORD", cfg.Sinks.Redis.Password)
	cfg.Sinks.Timescale.DSN = getEnv("MTF_TIMESCALE_DSN", cfg.Sinks.Timescale.DSN)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Pipeline.Symbols) == 0 {
		errs = append(errs, errors.New("pipeline.symbols is required"))
	}
	ptf, perr := model.ParseTimeframe(c.Pipeline.PrimaryTF)
	if perr != nil {
		errs = append(errs, fmt.Errorf("pipeline.primary_tf: %w", perr))
	}
	stf, serr := model.ParseTimeframe(c.Pipeline.SecondaryTF)
	if serr != nil {
		errs = append(errs, fmt.Errorf("pipeline.secondary_tf: %w", serr))
	}
	if perr == nil && serr == nil {
		pd, _ := ptf.Duration()
		sd, _ := stf.Duration()
		if pd <= sd {
			errs = append(errs, fmt.Errorf("pipeline.primary_tf %s must be coarser than secondary_tf %s", ptf, stf))
		}
	}
	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.CSVDir == "" {
			errs = append(errs, errors.New("source.csv_dir is required for csv sources"))
		}
	case SourceSQLite:
		if c.Source.SQLitePath == "" {
			errs = append(errs, errors.New("source.sqlite_path is required for sqlite sources"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q must be csv or sqlite", c.Source.Kind))
	}
	if err := c.Indicators.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("indicators: %w", err))
	}
	if c.Sinks.CSV.Enabled && c.Sinks.CSV.Dir == "" {
		errs = append(errs, errors.New("sinks.csv.dir is required"))
	}
	if c.Sinks.SQLite.Enabled && c.Sinks.SQLite.Path == "" {
		errs = append(errs, errors.New("sinks.sqlite.path is required"))
	}
	if c.Sinks.Redis.Enabled && c.Sinks.Redis.Addr == "" {
		errs = append(errs, errors.New("sinks.redis.addr is required"))
	}
	if c.Sinks.Timescale.Enabled && c.Sinks.Timescale.DSN == "" {
		errs = append(errs, errors.New("sinks.timescale.dsn is required"))
	}
	if c.Sinks.Feed.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("sinks.feed requires metrics.addr"))
	}
	return errors.Join(errs...)
}

// PrimaryTF returns the parsed primary timeframe. Call after Validate.
func (c *Config) PrimaryTF() model.Timeframe {
	tf, _ := model.ParseTimeframe(c.Pipeline.PrimaryTF)
	return tf
}

// SecondaryTF returns the parsed secondary timeframe. Call after Validate.
func (c *Config) SecondaryTF() model.Timeframe {
	tf, _ := model.ParseTimeframe(c.Pipeline.SecondaryTF)
	return tf
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
