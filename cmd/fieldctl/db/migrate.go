package dbcmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/migrator"
)

// NewCmd creates the db command group.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Database operations"}
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// parseTarget accepts "latest", a schema version number or a semver.
func parseTarget(m *migrator.Migrator, to string) (int, error) {
	if to == "" || to == "latest" {
		return m.Latest(), nil
	}
	if v, ok := m.SemVerToInt(to); ok {
		return v, nil
	}
	v, err := strconv.Atoi(to)
	if err != nil {
		return 0, fmt.Errorf("invalid --to %q: %w", to, migrator.ErrUnknownVersion)
	}
	return v, nil
}

// NewMigrateCmd creates the db migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var flags DBFlags
	var to string
	var dryRun bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run DB migrations",
		Long:  "Migrate the field engine tables up or down to --to (latest, a version number or a semver such as 0.2.0).",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := flags.Open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			ctx := cmd.Context()
			m := migrator.New(flags.Driver, flags.TablePrefix)
			target, err := parseTarget(m, to)
			if err != nil {
				return err
			}
			cur, err := m.Current(ctx, db)
			if err != nil {
				return err
			}
			if verbose || dryRun {
				for _, stmt := range m.SQLForRange(cur, target) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
				}
			}
			if dryRun {
				return nil
			}
			if target == cur {
				fmt.Fprintf(cmd.OutOrStdout(), "schema %s is up to date\n", m.SemVer(cur))
				return nil
			}
			if target < cur {
				err = m.Down(ctx, db, target)
			} else {
				err = m.Up(ctx, db, target)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema %s -> %s (prefix %s)\n", m.SemVer(cur), m.SemVer(target), flags.TablePrefix)
			return nil
		},
	}
	flags.AddFlags(cmd)
	cmd.Flags().StringVar(&to, "to", "latest", "target version (latest, number or semver)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print SQL without executing it")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print SQL statements")
	return cmd
}

// NewVersionCmd creates the db version subcommand.
func NewVersionCmd() *cobra.Command {
	var flags DBFlags
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := flags.Open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			m := migrator.New(flags.Driver, flags.TablePrefix)
			cur, err := m.Current(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (latest %s)\n", m.SemVer(cur), m.SemVer(m.Latest()))
			return nil
		},
	}
	flags.AddFlags(cmd)
	return cmd
}
