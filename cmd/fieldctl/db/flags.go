package dbcmd

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/pkg/config"
	"github.com/faciam-dev/crmfields/pkg/util"
)

// DBFlags defines common database flags.
type DBFlags struct {
	Driver      string
	DSN         string
	TablePrefix string
}

// AddFlags attaches the DB flags to the command.
func (f *DBFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.DSN, "db", "", "database DSN (default from CRM_DSN or the profile)")
	cmd.Flags().StringVar(&f.Driver, "driver", "", "database driver (mysql|postgres); detected from the DSN when empty")
	cmd.Flags().StringVar(&f.TablePrefix, "table-prefix", "", "table name prefix (default crm_)")
}

// Fill completes f from CRM_DSN, TABLE_PREFIX and the active profile and
// detects the driver.
func (f *DBFlags) Fill(cmd *cobra.Command) error {
	r, err := config.ResolveDB(cmd)
	if err != nil {
		return err
	}
	f.DSN = r.DSN
	f.TablePrefix = r.TablePrefix
	if f.Driver == "" {
		d, err := util.DetectDriver(f.DSN)
		if err != nil {
			return err
		}
		f.Driver = d
	}
	return nil
}

// Open fills f and opens the SQL database it points to.
func (f *DBFlags) Open(cmd *cobra.Command) (*sql.DB, error) {
	if err := f.Fill(cmd); err != nil {
		return nil, err
	}
	switch f.Driver {
	case "mysql", "postgres":
	default:
		return nil, fmt.Errorf("driver %q is not an SQL database", f.Driver)
	}
	return sql.Open(f.Driver, util.DataSource(f.Driver, f.DSN))
}
