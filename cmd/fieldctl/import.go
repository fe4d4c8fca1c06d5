package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/csvimport"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// parseMapping turns "Header=field" pairs into overrides of the automatic
// mapping. A target of "skip" drops the column.
func parseMapping(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range pairs {
		h, f, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(h) == "" {
			return nil, fmt.Errorf("invalid --map %q, want Header=field", p)
		}
		out[strings.TrimSpace(h)] = strings.TrimSpace(f)
	}
	return out, nil
}

func newImportCmd() *cobra.Command {
	var (
		pairs  []string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import <entity-type> <file.csv>",
		Short: "Import CSV rows as records, one row at a time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entityArg(args[0])
			if err != nil {
				return err
			}
			overrides, err := parseMapping(pairs)
			if err != nil {
				return err
			}
			f, err := os.Open(filepath.Clean(args[1])) // #nosec G304 -- operator supplied path
			if err != nil {
				return err
			}
			defer f.Close()
			sess, err := csvimport.ParseReader(f)
			if err != nil {
				return err
			}

			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			ctx := cmd.Context()
			defs := newLoader(cli).LoadAll(ctx, et)
			mapping := csvimport.AutoMap(sess.Headers, registry.Visible(defs))
			for h, fld := range overrides {
				if _, ok := mapping[h]; !ok {
					return fmt.Errorf("--map: no column %q in %s", h, filepath.Base(args[1]))
				}
				if fld != csvimport.Skip {
					if _, ok := customfield.Find(defs, fld); !ok {
						return fmt.Errorf("--map: unknown field %q", fld)
					}
				}
				mapping[h] = fld
			}

			if dryRun {
				return printPreview(cmd, sess, mapping, csvimport.ApplyMapping(sess.Rows, mapping, defs))
			}

			log := newZap(cmd)
			defer func() { _ = log.Sync() }()
			im := &csvimport.Importer{
				Submitter: cli,
				Logger:    log,
				OnProgress: func(n, total int) {
					if n%100 == 0 || n == total {
						fmt.Fprintf(cmd.ErrOrStderr(), "\r%d/%d", n, total)
						if n == total {
							fmt.Fprintln(cmd.ErrOrStderr())
						}
					}
				},
			}
			sum := im.Run(ctx, et, defs, sess.Rows, mapping)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d rows (%d failed", sum.Successful, sum.Total, sum.Failed)
			if sum.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d skipped", sum.Skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
			for _, e := range sum.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+e)
			}
			if sum.Failed > 0 || sum.Skipped > 0 {
				return fmt.Errorf("import %s finished with %d failed rows", sum.ID, sum.Failed+sum.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "map", nil, `override the column mapping, e.g. --map "Mobile=phone" or --map "Notes=skip"`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the mapping and row errors without importing")
	return cmd
}

func printPreview(cmd *cobra.Command, sess csvimport.Session, mapping map[string]string, rows []csvimport.MappedRow) error {
	headers := append([]string(nil), sess.Headers...)
	sort.Strings(headers)
	for _, h := range headers {
		fmt.Fprintf(cmd.OutOrStdout(), "%-30s -> %s\n", h, mapping[h])
	}
	var table [][]string
	valid := 0
	for _, r := range rows {
		if r.Valid {
			valid++
			continue
		}
		table = append(table, []string{strconv.Itoa(r.Row), strings.Join(r.Errors, "; ")})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows valid\n", valid, len(rows))
	if len(table) == 0 {
		return nil
	}
	return printOutput(cmd, rows, []string{"Row", "Errors"}, table)
}
