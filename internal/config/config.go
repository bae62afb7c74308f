package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy" mapstructure:"taxonomy"`
	Packs      PacksConfig      `yaml:"packs" mapstructure:"packs"`
	Evidence   EvidenceConfig   `yaml:"evidence" mapstructure:"evidence"`
	Generator  GeneratorConfig  `yaml:"generator" mapstructure:"generator"`
	Lock       LockConfig       `yaml:"lock" mapstructure:"lock"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Tracing    TracingConfig    `yaml:"tracing" mapstructure:"tracing"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// TaxonomyConfig locates the taxonomy file.
type TaxonomyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PacksConfig locates the control pack tree.
type PacksConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// EvidenceConfig locates the evidence blob store.
type EvidenceConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// GeneratorConfig is stamped onto every generated checklist.
type GeneratorConfig struct {
	Version string `yaml:"version" mapstructure:"version"`
}

// LockConfig selects the per-project lock implementation.
type LockConfig struct {
	Driver    string `yaml:"driver" mapstructure:"driver"`
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	TTLSecs   int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// AuditConfig configures the optional Kafka audit fan-out.
type AuditConfig struct {
	KafkaBrokers            []string `yaml:"kafka_brokers" mapstructure:"kafka_brokers"`
	KafkaTopic              string   `yaml:"kafka_topic" mapstructure:"kafka_topic"`
	MaxAttempts             int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs        int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs            int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CircuitFailureThreshold int      `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int      `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// KafkaEnabled reports whether audit entries are also published to Kafka.
func (a AuditConfig) KafkaEnabled() bool {
	return len(a.KafkaBrokers) > 0
}

// MonitoringConfig configures the background status snapshot.
type MonitoringConfig struct {
	CheckIntervalSecs int `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// TracingConfig selects the span exporter. "none" keeps spans in-process
// and drops them; "stdout" writes them as JSON to stderr.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter" mapstructure:"exporter"`
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio"`
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "grc.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("taxonomy.path", "data/taxonomy.yaml")
	v.SetDefault("packs.dir", "data/packs")
	v.SetDefault("evidence.dir", "data/evidence")
	v.SetDefault("generator.version", "grc-cli/1")
	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.ttl_secs", 30)
	v.SetDefault("audit.kafka_brokers", []string{})
	v.SetDefault("audit.kafka_topic", "grc.audit")
	v.SetDefault("audit.max_attempts", 3)
	v.SetDefault("audit.initial_backoff_ms", 100)
	v.SetDefault("audit.max_backoff_ms", 2000)
	v.SetDefault("audit.circuit_failure_threshold", 5)
	v.SetDefault("audit.circuit_reset_secs", 30)
	v.SetDefault("monitoring.check_interval_secs", 60)
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", "grc-cli")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Comma-separated env values arrive as a single element.
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	cfg.Audit.KafkaBrokers = splitList(cfg.Audit.KafkaBrokers)

	return &cfg, nil
}

// Validate checks the settings a command needs and reports every problem
// at once. mode is one of "serve", "migrate" or "cli".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "migrate", "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode != "migrate" {
		if c.Taxonomy.Path == "" {
			errs = append(errs, "taxonomy.path is required")
		}
		if c.Packs.Dir == "" {
			errs = append(errs, "packs.dir is required")
		}
		if c.Evidence.Dir == "" {
			errs = append(errs, "evidence.dir is required")
		}
		if c.Generator.Version == "" {
			errs = append(errs, "generator.version is required")
		}
		switch c.Lock.Driver {
		case "memory":
		case "redis":
			if c.Lock.RedisAddr == "" {
				errs = append(errs, "lock.redis_addr is required when lock.driver is redis")
			}
		default:
			errs = append(errs, fmt.Sprintf("unknown lock.driver %q", c.Lock.Driver))
		}
		if c.Audit.KafkaEnabled() && c.Audit.KafkaTopic == "" {
			errs = append(errs, "audit.kafka_topic is required when audit.kafka_brokers is set")
		}
		switch c.Tracing.Exporter {
		case "none", "stdout":
		default:
			errs = append(errs, fmt.Sprintf("unknown tracing.exporter %q", c.Tracing.Exporter))
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			errs = append(errs, "tracing.sample_ratio must be between 0 and 1")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
			errs = append(errs, "server.rate_limit_rps and server.rate_limit_burst must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
