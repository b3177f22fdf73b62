package snowflake

import (
	"strings"
)

// Config holds Snowflake database configuration
type Config struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Table     string `yaml:"table"`
}

// ParseConnectionString extracts components from an ODBC-style connection string.
// Format: scheme=https;ACCOUNT=xxx;HOST=yyy;port=443;USER=zzz;PASSWORD=www;DB=aaa.bbb;
// A DB value of the form DATABASE.SCHEMA sets both.
func ParseConnectionString(connStr string) Config {
	parts := make(map[string]string)
	for _, kv := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		parts[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	cfg := Config{
		Account:   parts["ACCOUNT"],
		User:      parts["USER"],
		Password:  parts["PASSWORD"],
		Warehouse: parts["WAREHOUSE"],
		Schema:    parts["SCHEMA"],
	}
	if db, schema, ok := strings.Cut(parts["DB"], "."); ok {
		cfg.Database = db
		cfg.Schema = schema
	} else {
		cfg.Database = parts["DB"]
	}
	return cfg
}
