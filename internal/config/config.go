package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"github.com/joho/godotenv"

	pkgutil "github.com/faciam-dev/crmfields/pkg/util"
)

// Config holds process-level settings read from the environment. Flags
// given on the command line take precedence over these values.
type Config struct {
	DSN            string
	Driver         string
	Addr           string
	TablePrefix    string
	MongoDatabase  string
	StandardFields string
	EventsConfig   string
	ReservedConfig string
	RBACPolicy     string
	LogFormat      string
	LogLevel       string
	CacheInterval  time.Duration
	TokenTTL       time.Duration
}

// LoadDotenv reads the given .env files (".env" when none) into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from CRM_* environment variables. TABLE_PREFIX is
// accepted as well.
func FromEnv() Config {
	return Config{
		DSN:            pkgutil.GetEnv("CRM_DSN", ""),
		Driver:         pkgutil.GetEnv("CRM_DRIVER", ""),
		Addr:           pkgutil.GetEnv("CRM_ADDR", ":8080"),
		TablePrefix:    pkgutil.FirstEnv("crm_", "TABLE_PREFIX", "CRM_TABLE_PREFIX"),
		MongoDatabase:  pkgutil.GetEnv("CRM_MONGO_DATABASE", "crm"),
		StandardFields: pkgutil.GetEnv("CRM_STANDARD_FIELDS", ""),
		EventsConfig:   pkgutil.GetEnv("CRM_EVENTS_CONFIG", ""),
		ReservedConfig: pkgutil.GetEnv("CRM_RESERVED_CONFIG", ""),
		RBACPolicy:     pkgutil.GetEnv("CRM_RBAC_POLICY", ""),
		LogFormat:      pkgutil.GetEnv("LOG_FORMAT", "text"),
		LogLevel:       pkgutil.GetEnv("LOG_LEVEL", "info"),
		CacheInterval:  pkgutil.EnvDuration("CRM_CACHE_INTERVAL", time.Minute),
		TokenTTL:       pkgutil.EnvDuration("CRM_TOKEN_TTL", 15*time.Minute),
	}
}

// T prefixes the given table name with the configured prefix.
func (c *Config) T(name string) string {
	return c.TablePrefix + name
}

// CheckPrefix verifies that tables with the configured prefix exist in the
// connected database. It returns an error if none are found.
func CheckPrefix(ctx context.Context, db *sql.DB, dialect ormdriver.Dialect, prefix string) error {
	q := query.New(db, "information_schema.tables", dialect).
		SelectRaw("COUNT(*) AS cnt").
		WhereRaw("table_name LIKE :p", map[string]any{"p": prefix + "%"}).
		WithContext(ctx)

	var res struct{ Cnt int }
	if err := q.First(&res); err != nil {
		return err
	}
	if res.Cnt == 0 {
		return fmt.Errorf("no tables with prefix %q found; run `fieldctl db migrate` or set TABLE_PREFIX correctly", prefix)
	}
	return nil
}
