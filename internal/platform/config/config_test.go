package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad(t *testing.T) {
	t.Run("defaults plus environment", func(t *testing.T) {
		t.Setenv("LEDGERGUARD_AUTH_JWT_SIGNING_KEY", testKey)
		t.Setenv("LEDGERGUARD_LEDGER_APPEND_ATTEMPTS", "5")
		t.Setenv("LEDGERGUARD_RATELIMIT_RECOVERY_SUCCESSES", "4")
		t.Chdir(t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 5, cfg.Ledger.AppendAttempts)
		assert.Equal(t, 15*time.Minute, cfg.Jobs.EscalationInterval)
		assert.Equal(t, "ledgerguard.ledger.entries", cfg.Kafka.Topic)
		assert.Empty(t, cfg.Database.DSN)
		assert.Equal(t, 5, cfg.Limits.FailureThreshold)
		assert.Equal(t, 4, cfg.Limits.RecoverySuccesses)
	})

	t.Run("file then environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledgerguard.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
auth:
  jwt_signing_key: "`+testKey+`"
rules:
  catalog_file: /etc/ledgerguard/rules.yaml
logging:
  format: text
`), 0o600))
		t.Setenv("LEDGERGUARD_SERVER_ADDR", ":9191")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9191", cfg.Server.Addr)
		assert.Equal(t, "/etc/ledgerguard/rules.yaml", cfg.Rules.CatalogFile)
		assert.Equal(t, "text", cfg.Logging.Format)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("short signing key", func(t *testing.T) {
		t.Setenv("LEDGERGUARD_AUTH_JWT_SIGNING_KEY", "short")
		t.Chdir(t.TempDir())
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.jwt_signing_key")
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080"},
			Auth:    AuthConfig{JWTSigningKey: testKey},
			Ledger:  LedgerConfig{AppendAttempts: 3},
			Jobs:    JobsConfig{EscalationInterval: time.Minute, AuditInterval: time.Minute},
			Logging: LoggingConfig{Format: "json"},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"no attempts", func(c *Config) { c.Ledger.AppendAttempts = 0 }, "ledger.append_attempts"},
		{"brokers without topic", func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }, "kafka.topic"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative parallelism", func(c *Config) { c.Rules.Parallelism = -1 }, "rules.parallelism"},
		{"disabled limits skip checks", func(c *Config) { c.Limits = LimitsConfig{Enabled: false} }, ""},
		{"limits without recovery count", func(c *Config) {
			c.Limits = LimitsConfig{Enabled: true, Window: time.Minute, CheckRequests: 1, ReadRequests: 1, VerifyRequests: 1, FailureThreshold: 5}
		}, "ratelimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
