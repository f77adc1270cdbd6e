package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/modelerd/internal/database"
	"github.com/koustreak/modelerd/internal/errs"
	"github.com/koustreak/modelerd/internal/filestore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelerd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: console
metadata:
  manifest: models.yaml
database:
  driver: mysql
  dsn: "erd:erd@tcp(localhost:3306)/blog"
  max_conns: 8
output:
  path: erd.mmd
publish:
  enabled: true
  endpoint: localhost:9000
  bucket: diagrams
  url_ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "models.yaml", cfg.Metadata.Manifest)
	assert.Equal(t, database.DriverMySQL, cfg.Database.Driver)
	assert.EqualValues(t, 8, cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "erd.mmd", cfg.Output.Path)
	assert.Equal(t, FormatMermaid, cfg.Output.Format)
	assert.False(t, cfg.Output.Stdout())
	assert.True(t, cfg.Publish.Enabled)
	assert.Equal(t, filestore.ProviderMinIO, cfg.Publish.Provider)
	assert.Equal(t, "diagrams", cfg.Publish.Bucket)
	assert.Equal(t, "diagrams/{build_id}.mmd", cfg.Publish.Key)
	assert.Equal(t, time.Hour, cfg.Publish.URLTTL)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
output:
  format: mermaid
server:
  addr: ":9000"
`)
	t.Setenv("MODELERD_OUTPUT_FORMAT", "json")
	t.Setenv("MODELERD_SERVER_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("MODELERD_MANIFEST", "/etc/modelerd/models.yaml")
	t.Setenv("MODELERD_DB_DRIVER", "postgres")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/etc/modelerd/models.yaml", cfg.Metadata.Manifest)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, database.DefaultSchema, cfg.Database.Schema)
	assert.True(t, cfg.Output.Stdout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errs.IsNotFound(err))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"driver", "database:\n  driver: oracle\n", "Database.Driver must be one of [postgres mysql]"},
		{"format", "output:\n  format: dot\n", "Output.Format must be one of [mermaid json]"},
		{"log level", "log:\n  level: loud\n", "Log.Level must be one of"},
		{"log format", "log:\n  format: xml\n", "Log.Format must be one of"},
		{"publish without endpoint", "publish:\n  enabled: true\n", "Publish.Endpoint is required"},
		{"publish provider", "publish:\n  enabled: true\n  endpoint: s3:443\n  provider: s3\n", "Publish.Provider must be one of [minio]"},
		{"malformed yaml", "output: [\n", "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Output:  OutputConfig{Format: FormatMermaid},
			Server:  ServerConfig{Addr: ":8080"},
			Publish: *filestore.DefaultConfig("localhost:9000", "k", "s"),
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"publishing disabled ignores empty endpoint", func(c *Config) { c.Publish.Endpoint = "" }, ""},
		{"publishing enabled", func(c *Config) { c.Publish.Enabled = true }, ""},
		{"enabled without bucket", func(c *Config) {
			c.Publish.Enabled = true
			c.Publish.Bucket = ""
		}, "Publish.Bucket is required"},
		{"empty listen address", func(c *Config) { c.Server.Addr = "" }, "Server.Addr is required"},
		{"mysql driver", func(c *Config) { c.Database.Driver = database.DriverMySQL }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
