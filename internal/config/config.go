package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DateLayout is the layout of analysis.reference_date.
const DateLayout = "2006-01-02"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Source    SourceConfig    `yaml:"source"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Report    ReportConfig    `yaml:"report"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration for the results API
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the relational store connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the configured lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the Redis settings used for the load lock and report cache.
// An empty URL disables Redis; the load lock then falls back to a Postgres
// advisory lock.
type RedisConfig struct {
	URL              string `yaml:"url"`
	LockTTLSeconds   int    `yaml:"lock_ttl_seconds"`
	ReportTTLSeconds int    `yaml:"report_ttl_seconds"`
}

// LockTTL returns the load lock TTL as a duration
func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ReportTTL returns the report cache TTL as a duration
func (c RedisConfig) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

// AnalysisConfig holds the RFM analysis parameters
type AnalysisConfig struct {
	ReferenceDate  string  `yaml:"reference_date"`  // Format: "2011-12-09"
	ParetoFraction float64 `yaml:"pareto_fraction"` // Share of customers treated as "top", e.g. 0.20
	LeaderLimit    int     `yaml:"leader_limit"`    // Top-Tier/High-Value customers listed in the report
}

// Reference parses ReferenceDate as a UTC midnight.
func (c AnalysisConfig) Reference() (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, c.ReferenceDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("analysis.reference_date %q: %w", c.ReferenceDate, err)
	}
	return t, nil
}

// SourceConfig selects where raw transaction rows are read from
type SourceConfig struct {
	Type       string `yaml:"type"` // "csv", "s3" or "snowflake"
	Path       string `yaml:"path"` // local CSV path
	S3Bucket   string `yaml:"s3_bucket"`
	S3Key      string `yaml:"s3_key"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// SnowflakeConfig holds Snowflake configuration for the warehouse source
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Table     string `yaml:"table"`

	// ConnectionString is an ODBC-style alternative to the discrete fields,
	// e.g. "ACCOUNT=x;USER=y;PASSWORD=z;DB=RETAIL.RAW;"
	ConnectionString string `yaml:"connection_string"`
}

// ReportConfig controls where run reports are persisted
type ReportConfig struct {
	Type          string `yaml:"type"` // "local" or "s3"
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"`
	DynamoDBTable string `yaml:"dynamodb_table"` // run ledger; empty disables it
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, for runs
// without a config file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 900
	}
	if cfg.Redis.ReportTTLSeconds == 0 {
		cfg.Redis.ReportTTLSeconds = 300
	}
	if cfg.Analysis.ReferenceDate == "" {
		cfg.Analysis.ReferenceDate = "2011-12-09"
	}
	if cfg.Analysis.ParetoFraction == 0 {
		cfg.Analysis.ParetoFraction = 0.20
	}
	if cfg.Analysis.LeaderLimit == 0 {
		cfg.Analysis.LeaderLimit = 20
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "csv"
	}
	if cfg.Source.S3Region == "" {
		cfg.Source.S3Region = "us-west-2"
	}
	if cfg.Snowflake.Table == "" {
		cfg.Snowflake.Table = "ONLINE_RETAIL_TRANSACTIONS"
	}
	if cfg.Report.Type == "" {
		cfg.Report.Type = "local"
	}
	if cfg.Report.LocalPath == "" {
		cfg.Report.LocalPath = "reports"
	}
	if cfg.Report.S3Prefix == "" {
		cfg.Report.S3Prefix = "rfm-reports"
	}
	if cfg.Report.AWSRegion == "" {
		cfg.Report.AWSRegion = "us-west-2"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Analysis.Reference(); err != nil {
		return err
	}
	if c.Analysis.ParetoFraction <= 0 || c.Analysis.ParetoFraction > 1 {
		return fmt.Errorf("analysis.pareto_fraction must be in (0, 1], got %v", c.Analysis.ParetoFraction)
	}
	switch c.Source.Type {
	case "csv", "s3", "snowflake":
	default:
		return fmt.Errorf("source.type %q is not one of csv, s3, snowflake", c.Source.Type)
	}
	switch c.Report.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("report.type %q is not one of local, s3", c.Report.Type)
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// An empty path skips the file and starts from defaults.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("RFM_REFERENCE_DATE"); v != "" {
		cfg.Analysis.ReferenceDate = v
	}
	if v := os.Getenv("RFM_SOURCE"); v != "" {
		cfg.Source.Type = v
	}
	if v := os.Getenv("RFM_S3_BUCKET"); v != "" {
		cfg.Source.S3Bucket = v
	}
	if v := os.Getenv("RFM_S3_KEY"); v != "" {
		cfg.Source.S3Key = v
	}
	if v := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); v != "" {
		cfg.Snowflake.ConnectionString = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("REPORT_S3_BUCKET"); v != "" {
		cfg.Report.S3Bucket = v
		cfg.Report.Type = "s3"
	}
	if v := os.Getenv("REPORT_DYNAMODB_TABLE"); v != "" {
		cfg.Report.DynamoDBTable = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}
