package util

import (
	"fmt"
	"net/url"
	"strings"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
)

// UnsupportedDialect is returned when a driver has no corresponding goquent dialect.
type UnsupportedDialect struct{ Driver string }

func (UnsupportedDialect) Placeholder(int) string { return "?" }

func (UnsupportedDialect) QuoteIdent(ident string) string { return ident }

// DetectDriver returns the driver name based on the DSN scheme.
// Supported schemes: mysql, postgres/postgresql, mongodb/mongodb+srv and
// memory. A DSN without a scheme is taken as a go-sql-driver/mysql DSN.
func DetectDriver(dsn string) (string, error) {
	if dsn == "" || dsn == "memory" {
		return "memory", nil
	}
	if !strings.Contains(dsn, "://") {
		return "mysql", nil
	}
	parsedURL, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	switch parsedURL.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mongodb", "mongodb+srv":
		return "mongo", nil
	case "mysql":
		return "mysql", nil
	case "memory":
		return "memory", nil
	default:
		return "", fmt.Errorf("unknown scheme: %s", parsedURL.Scheme)
	}
}

// DataSource returns the string to hand to sql.Open for driver. The
// go-sql-driver/mysql driver does not accept a mysql:// prefix.
func DataSource(driver, dsn string) string {
	if driver == "mysql" {
		return strings.TrimPrefix(dsn, "mysql://")
	}
	return dsn
}

// DialectFromDriver returns the goquent dialect corresponding to a driver.
func DialectFromDriver(d string) ormdriver.Dialect {
	switch d {
	case "postgres":
		return ormdriver.PostgresDialect{}
	case "mysql":
		return ormdriver.MySQLDialect{}
	default:
		return UnsupportedDialect{Driver: d}
	}
}
