// Package config loads service configuration with Viper: built-in defaults,
// then an optional config.yaml, then LEDGERGUARD_* environment variables
// (LEDGERGUARD_DATABASE_DSN overrides database.dsn).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "LEDGERGUARD"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Limits   LimitsConfig   `mapstructure:"ratelimit"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the ledger store. An empty DSN keeps the ledger in
// memory, which is only suitable for development.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// RedisConfig enables the cross-replica append lock and the shipper cursor.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LockKey      string        `mapstructure:"lock_key"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	LockWait     time.Duration `mapstructure:"lock_wait"`
	CursorKey    string        `mapstructure:"cursor_key"`
}

// KafkaConfig enables shipping committed entries downstream.
type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	Topic             string        `mapstructure:"topic"`
	Partitions        int32         `mapstructure:"partitions"`
	ReplicationFactor int16         `mapstructure:"replication_factor"`
	ShipInterval      time.Duration `mapstructure:"ship_interval"`
}

type AuthConfig struct {
	JWTSigningKey string        `mapstructure:"jwt_signing_key"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type LedgerConfig struct {
	AppendAttempts int `mapstructure:"append_attempts"`
}

// RulesConfig points at an optional YAML catalog merged over the built-in
// rules.
type RulesConfig struct {
	CatalogFile string `mapstructure:"catalog_file"`
	Parallelism int    `mapstructure:"parallelism"`
}

type JobsConfig struct {
	EscalationInterval time.Duration `mapstructure:"escalation_interval"`
	AuditInterval      time.Duration `mapstructure:"audit_interval"`
}

// LimitsConfig caps requests per actor and endpoint class. Counters live in
// Redis when redis.url is set so every replica shares them.
type LimitsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Window         time.Duration `mapstructure:"window"`
	CheckRequests  int           `mapstructure:"check_requests"`
	ReadRequests   int           `mapstructure:"read_requests"`
	VerifyRequests int           `mapstructure:"verify_requests"`
	// FailureThreshold consecutive Redis errors switch checks to per-process
	// counters; RecoverySuccesses consecutive successes switch them back.
	FailureThreshold  int `mapstructure:"failure_threshold"`
	RecoverySuccesses int `mapstructure:"recovery_successes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. configPath may be empty, in which case
// config.yaml is looked up in the working directory and /etc/ledgerguard and
// is optional.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ledgerguard")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key, which also makes AutomaticEnv see nested
// keys during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.lock_key", "ledgerguard:ledger:append")
	v.SetDefault("redis.lock_ttl", 5*time.Second)
	v.SetDefault("redis.lock_wait", 2*time.Second)
	v.SetDefault("redis.cursor_key", "ledgerguard:ledger:ship-cursor")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "ledgerguard.ledger.entries")
	v.SetDefault("kafka.partitions", 1)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.ship_interval", 5*time.Second)

	v.SetDefault("auth.jwt_signing_key", "")
	v.SetDefault("auth.issuer", "ledgerguard")
	v.SetDefault("auth.audience", "ledgerguard-api")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("ledger.append_attempts", 3)

	v.SetDefault("rules.catalog_file", "")
	v.SetDefault("rules.parallelism", 0)

	v.SetDefault("jobs.escalation_interval", 15*time.Minute)
	v.SetDefault("jobs.audit_interval", time.Hour)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.check_requests", 60)
	v.SetDefault("ratelimit.read_requests", 300)
	v.SetDefault("ratelimit.verify_requests", 6)
	v.SetDefault("ratelimit.failure_threshold", 5)
	v.SetDefault("ratelimit.recovery_successes", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

const minSigningKeyLength = 32

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if len(c.Auth.JWTSigningKey) < minSigningKeyLength {
		errs = append(errs, fmt.Errorf("auth.jwt_signing_key must be at least %d bytes", minSigningKeyLength))
	}
	if c.Ledger.AppendAttempts < 1 {
		errs = append(errs, errors.New("ledger.append_attempts must be at least 1"))
	}
	if c.Rules.Parallelism < 0 {
		errs = append(errs, errors.New("rules.parallelism cannot be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Jobs.EscalationInterval <= 0 || c.Jobs.AuditInterval <= 0 {
		errs = append(errs, errors.New("jobs intervals must be positive"))
	}
	if c.Limits.Enabled && (c.Limits.Window <= 0 || c.Limits.CheckRequests < 1 || c.Limits.ReadRequests < 1 || c.Limits.VerifyRequests < 1 ||
		c.Limits.FailureThreshold < 1 || c.Limits.RecoverySuccesses < 1) {
		errs = append(errs, errors.New("ratelimit settings must be positive when enabled"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
