package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://rfm@localhost:5432/rfm?sslmode=disable"
  max_open_conns: 20

analysis:
  reference_date: "2012-01-01"
  pareto_fraction: 0.1
  leader_limit: 5

source:
  type: "s3"
  s3_bucket: "raw-retail"
  s3_key: "online_retail_II.csv"

report:
  type: "local"
  local_path: "./out"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 0.1, cfg.Analysis.ParetoFraction)
	assert.Equal(t, 5, cfg.Analysis.LeaderLimit)
	assert.Equal(t, "s3", cfg.Source.Type)
	assert.Equal(t, "raw-retail", cfg.Source.S3Bucket)
	assert.Equal(t, "./out", cfg.Report.LocalPath)

	ref, err := cfg.Analysis.Reference()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), ref)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("log:\n  level: debug\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "2011-12-09", cfg.Analysis.ReferenceDate)
	assert.Equal(t, 0.20, cfg.Analysis.ParetoFraction)
	assert.Equal(t, 20, cfg.Analysis.LeaderLimit)
	assert.Equal(t, "csv", cfg.Source.Type)
	assert.Equal(t, "local", cfg.Report.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.Redis.LockTTL())
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
analysis:
  reference_date: "2011-12-09"
database:
  url: "postgres://file@localhost/rfm"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("DATABASE_URL", "postgres://env@db/rfm")
	t.Setenv("RFM_REFERENCE_DATE", "2011-12-31")
	t.Setenv("REPORT_S3_BUCKET", "rfm-out")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "postgres://env@db/rfm", cfg.Database.URL)
	assert.Equal(t, "2011-12-31", cfg.Analysis.ReferenceDate)
	assert.Equal(t, "s3", cfg.Report.Type)
	assert.Equal(t, "rfm-out", cfg.Report.S3Bucket)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("RFM_SOURCE", "snowflake")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "snowflake", cfg.Source.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Analysis.ReferenceDate = "09/12/2011"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Analysis.ParetoFraction = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Source.Type = "xlsx"
	assert.Error(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}
