// Package config loads master and worker configuration via viper, grounded
// on transcode-worker/internal/config/config.go's defaults-then-file-then-env
// layering and post-unmarshal validation shape.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
)

// MasterConfig holds all static configuration for the master process.
type MasterConfig struct {
	BindAddr         string        `mapstructure:"bind_addr"`
	DataDir          string        `mapstructure:"data_dir"`
	Language         string        `mapstructure:"language"`
	Source           string        `mapstructure:"source"`
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	LogLevel         string        `mapstructure:"log_level"`
	LogJSON          bool          `mapstructure:"log_json"`
}

// WorkerConfig holds all static configuration for the worker process.
type WorkerConfig struct {
	MasterURL             string        `mapstructure:"master_url"`
	WorkerID              string        `mapstructure:"worker_id"`
	DataDir               string        `mapstructure:"data_dir"`
	Source                string        `mapstructure:"source"`
	Language              string        `mapstructure:"language"`
	BatchSize             int           `mapstructure:"batch_size"`
	FlushInterval         time.Duration `mapstructure:"flush_interval"`
	HeartbeatInterval     time.Duration `mapstructure:"heartbeat_interval"`
	RequestDelay          time.Duration `mapstructure:"request_delay"`
	MaxConcurrentRequests int64         `mapstructure:"max_concurrent_requests"`
	FallbackDir           string        `mapstructure:"fallback_dir"`
	LogLevel              string        `mapstructure:"log_level"`
	LogJSON               bool          `mapstructure:"log_json"`
}

// LoadMaster reads master configuration from config.yaml and AQEA_*
// environment variables. Priority: env vars > config file > defaults.
func LoadMaster(path string) (*MasterConfig, error) {
	v := newViper(path)
	v.SetDefault("bind_addr", ":8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("heartbeat_timeout", "120s")
	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("log_level", "info")

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg MasterConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "decode master config", err)
	}

	if cfg.Language == "" {
		return nil, errs.New(errs.KindConfig, "'language' is required")
	}
	if cfg.Source == "" {
		return nil, errs.New(errs.KindConfig, "'source' is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "create data_dir "+cfg.DataDir, err)
	}

	return &cfg, nil
}

// LoadWorker reads worker configuration from config.yaml and AQEA_*
// environment variables, defaulting WorkerID to the OS hostname.
func LoadWorker(path string) (*WorkerConfig, error) {
	v := newViper(path)
	v.SetDefault("batch_size", 100)
	v.SetDefault("flush_interval", "5s")
	v.SetDefault("heartbeat_interval", "30s")
	v.SetDefault("request_delay", "200ms")
	v.SetDefault("max_concurrent_requests", 5)
	v.SetDefault("fallback_dir", "extracted_data")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_level", "info")

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "decode worker config", err)
	}

	if cfg.MasterURL == "" {
		return nil, errs.New(errs.KindConfig, "'master_url' is required")
	}
	if cfg.WorkerID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, errs.Wrap(errs.KindConfig, "worker_id not set and hostname unavailable", err)
		}
		cfg.WorkerID = hostname
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "create data_dir "+cfg.DataDir, err)
	}
	if err := os.MkdirAll(cfg.FallbackDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "create fallback_dir "+cfg.FallbackDir, err)
	}

	return &cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("AQEA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errs.Wrap(errs.KindConfig, "read config file", err)
		}
	}
	return nil
}
