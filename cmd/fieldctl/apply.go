package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/customfield/registry"
)

func newApplyCmd() *cobra.Command {
	var (
		file   string
		dryRun bool
		prune  bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a field file to the live field definitions",
		Long:  "Creates and updates fields so that every entity in the file matches it. Fields missing from the file are deleted only with --prune.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			ctx := cmd.Context()
			plans, err := buildPlan(ctx, cli, file)
			if err != nil {
				return err
			}
			var total registry.DiffReport
			for _, p := range plans {
				if dryRun {
					if !p.drift() {
						continue
					}
					u, err := registry.UnifiedDiff(p.Entity, p.Current, p.Desired)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), u)
					rep := registry.Summarize(p.Changes)
					total.Added += rep.Added
					total.Updated += rep.Updated
					if prune {
						total.Deleted += rep.Deleted
					}
					continue
				}
				for _, c := range p.Changes {
					switch c.Type {
					case registry.ChangeAdded:
						if _, err := cli.CreateField(ctx, *c.New); err != nil {
							return fmt.Errorf("create %s.%s: %w", p.Entity, c.New.FieldName, err)
						}
						total.Added++
					case registry.ChangeUpdated:
						def := *c.New
						def.ID = c.Old.ID
						if _, err := cli.UpdateField(ctx, def); err != nil {
							return fmt.Errorf("update %s.%s: %w", p.Entity, def.FieldName, err)
						}
						total.Updated++
					case registry.ChangeDeleted:
						if !prune {
							continue
						}
						if err := cli.DeleteField(ctx, p.Entity, c.Old.ID); err != nil {
							return fmt.Errorf("delete %s.%s: %w", p.Entity, c.Old.FieldName, err)
						}
						total.Deleted++
					}
				}
			}
			verb := "applied"
			if dryRun {
				verb = "planned"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "+%d/-%d/±%d %s\n", total.Added, total.Deleted, total.Updated, verb)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fields.yaml", "field file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show diff without applying")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete fields that are not in the file")
	return cmd
}
