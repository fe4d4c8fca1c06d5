package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// DefaultPrefix is the table prefix used by the embedded SQL files.
const DefaultPrefix = "crm_"

// Migration holds migration data for one version.
type Migration struct {
	Version int
	SemVer  string
	UpSQL   string
	DownSQL string
}

// Migrator applies the embedded schema migrations for one driver.
type Migrator struct {
	migrations  []Migration
	TablePrefix string
	Driver      string
}

// ErrUnknownVersion is returned when a target version is outside the embedded range.
var ErrUnknownVersion = errors.New("unknown schema version")

// New returns a Migrator for the driver with table prefix. An empty prefix
// keeps DefaultPrefix.
func New(driver, prefix string) *Migrator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	migs := mysqlMigrations
	if driver == "postgres" || driver == "pgx" {
		migs = postgresMigrations
	}
	return &Migrator{migrations: withPrefix(migs, prefix), TablePrefix: prefix, Driver: driver}
}

func withPrefix(migs []Migration, prefix string) []Migration {
	res := make([]Migration, len(migs))
	for i, m := range migs {
		m.UpSQL = strings.ReplaceAll(m.UpSQL, DefaultPrefix, prefix)
		m.DownSQL = strings.ReplaceAll(m.DownSQL, DefaultPrefix, prefix)
		res[i] = m
	}
	return res
}

func (m *Migrator) versionTable() string {
	return m.TablePrefix + "schema_version"
}

// Latest returns the highest embedded version.
func (m *Migrator) Latest() int { return len(m.migrations) }

// SemVer returns the semantic version for v. Version 0 maps to 0.0.0.
func (m *Migrator) SemVer(v int) string {
	if v == 0 {
		return "0.0.0"
	}
	for _, mig := range m.migrations {
		if mig.Version == v {
			return mig.SemVer
		}
	}
	return ""
}

// SemVerToInt converts a semver string to its integer version.
func (m *Migrator) SemVerToInt(v string) (int, bool) {
	v = strings.TrimPrefix(v, "v")
	if v == "0.0.0" {
		return 0, true
	}
	for _, mig := range m.migrations {
		if mig.SemVer == v {
			return mig.Version, true
		}
	}
	return 0, false
}

func (m *Migrator) ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version INT PRIMARY KEY,
    semver VARCHAR(32) NOT NULL,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, m.versionTable()))
	return err
}

// Current returns the applied version, creating the version table when missing.
func (m *Migrator) Current(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(version) FROM %s", m.versionTable())).Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// Up migrates the schema up to target. target=0 means latest.
func (m *Migrator) Up(ctx context.Context, db *sql.DB, target int) error {
	if target == 0 {
		target = m.Latest()
	}
	if target < 0 || target > m.Latest() {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, target)
	}
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	if cur >= target {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := cur; i < target; i++ {
		mig := m.migrations[i]
		if err := execAll(ctx, tx, mig.UpSQL); err != nil {
			tx.Rollback()
			return err
		}
		stmt := fmt.Sprintf("INSERT INTO %s(version, semver) VALUES (%d, '%s')", m.versionTable(), mig.Version, mig.SemVer)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Down migrates the schema down to target.
func (m *Migrator) Down(ctx context.Context, db *sql.DB, target int) error {
	if target < 0 || target > m.Latest() {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, target)
	}
	cur, err := m.Current(ctx, db)
	if err != nil {
		return err
	}
	if target >= cur {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := cur - 1; i >= target; i-- {
		mig := m.migrations[i]
		if err := execAll(ctx, tx, mig.DownSQL); err != nil {
			tx.Rollback()
			return err
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE version = %d", m.versionTable(), mig.Version)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SQLForRange returns the statements needed to migrate from->to.
func (m *Migrator) SQLForRange(from, to int) []string {
	var res []string
	if to > from {
		for i := from; i < to && i < len(m.migrations); i++ {
			res = append(res, splitSQL(m.migrations[i].UpSQL)...)
		}
	} else if to < from {
		for i := from - 1; i >= to && i >= 0; i-- {
			res = append(res, splitSQL(m.migrations[i].DownSQL)...)
		}
	}
	return res
}

func splitSQL(src string) []string {
	var res []string
	for _, s := range strings.Split(src, ";") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}

func execAll(ctx context.Context, tx *sql.Tx, src string) error {
	for _, stmt := range splitSQL(src) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if isSyntaxErr(err) {
				return fmt.Errorf("syntax error in %q: %w", stmt, err)
			}
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func isSyntaxErr(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1064
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "42601"
	}
	return false
}
