// Package config loads ingestion settings and provides the loosely typed
// Options bag that parsers read their knobs from.
package config

import (
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// DefaultMaxFileSize is the per-file byte ceiling when none is configured.
const DefaultMaxFileSize = "50MB"

// Config is the full ingestion configuration.
type Config struct {
	// MaxFileSize is the per-file ceiling ("50MB", "512KB", "0" = unlimited).
	// Larger files fail with OversizeInput.
	MaxFileSize string `mapstructure:"max_file_size" json:"max_file_size"`

	// Parser options shared by all source kinds:
	//   delimiter, trim_space, multiline_quotes, encoding,
	//   array_join_separator, html_table_selector, json_envelope,
	//   header_map (a list of {from, to} pairs)
	Parser Options `mapstructure:"parser" json:"parser"`

	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`
	Export  ExportConfig  `mapstructure:"export" json:"export"`
}

// MetricsConfig selects and configures the metrics backend.
type MetricsConfig struct {
	// Backend: "none" (default), "datadog" or "pushgateway".
	Backend        string        `mapstructure:"backend" json:"backend"`
	Job            string        `mapstructure:"job" json:"job"`
	PushgatewayURL string        `mapstructure:"pushgateway_url" json:"pushgateway_url"`
	Tags           []string      `mapstructure:"tags" json:"tags"`
	FlushEvery     time.Duration `mapstructure:"flush_every" json:"flush_every"`
}

// ExportConfig optionally persists the selected dataset into a database.
type ExportConfig struct {
	// Kind: "" (disabled), "sqlite", "postgres" or "mssql".
	Kind  string `mapstructure:"kind" json:"kind"`
	DSN   string `mapstructure:"dsn" json:"dsn"`
	Table string `mapstructure:"table" json:"table"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxFileSize: DefaultMaxFileSize,
		Parser:      Options{},
		Metrics: MetricsConfig{
			Backend:        "none",
			Job:            "ingest",
			PushgatewayURL: "http://localhost:9091",
			FlushEvery:     60 * time.Second,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("metrics.backend", d.Metrics.Backend)
	v.SetDefault("metrics.job", d.Metrics.Job)
	v.SetDefault("metrics.pushgateway_url", d.Metrics.PushgatewayURL)
	v.SetDefault("metrics.flush_every", d.Metrics.FlushEvery)
}

// NewViper returns a viper instance with defaults and INGEST_* environment
// overrides (INGEST_MAX_FILE_SIZE, INGEST_METRICS_BACKEND, ...). When path is
// non-empty the file is read; its format follows the extension.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	return v, nil
}

// LoadWithViper decodes a Config from v.
func LoadWithViper(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if c.Parser == nil {
		c.Parser = Options{}
	}
	return c, nil
}

// Load reads the configuration from path (optional) plus the environment.
func Load(path string) (Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return Config{}, err
	}
	return LoadWithViper(v)
}

// MaxFileBytes parses MaxFileSize. Zero means no ceiling.
func (c Config) MaxFileBytes() (int64, error) {
	s := strings.TrimSpace(c.MaxFileSize)
	if s == "" {
		s = DefaultMaxFileSize
	}
	var bs datasize.ByteSize
	if err := bs.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Wrapf(err, "max_file_size %q", c.MaxFileSize)
	}
	return int64(bs.Bytes()), nil
}
