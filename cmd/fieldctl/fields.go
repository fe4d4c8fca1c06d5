package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

func newFieldsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "fields", Short: "Manage field definitions"}
	cmd.AddCommand(newFieldsListCmd())
	cmd.AddCommand(newFieldsCreateCmd())
	cmd.AddCommand(newFieldsDeleteCmd())
	cmd.AddCommand(newFieldsNextNameCmd())
	cmd.AddCommand(newFieldsHistoryCmd())
	return cmd
}

func fieldRows(defs []customfield.FieldDefinition) [][]string {
	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		flags := []string{}
		if d.IsRequired {
			flags = append(flags, "required")
		}
		if d.IsHidden {
			flags = append(flags, "hidden")
		}
		if d.Standard {
			flags = append(flags, "standard")
		}
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10), d.FieldName, d.FieldLabel, string(d.FieldType),
			strconv.Itoa(d.SortOrder), strings.Join(flags, ","), strings.Join(d.Options, "|"),
		})
	}
	return rows
}

var fieldHeader = []string{"ID", "Name", "Label", "Type", "Order", "Flags", "Options"}

func newFieldsListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list <entity-type>",
		Short: "List the fields of an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entityArg(args[0])
			if err != nil {
				return err
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			loader := newLoader(cli)
			defs := loader.Load(cmd.Context(), et)
			if all {
				defs = loader.LoadAll(cmd.Context(), et)
			}
			return printOutput(cmd, defs, fieldHeader, fieldRows(defs))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include hidden fields")
	return cmd
}

func newFieldsCreateCmd() *cobra.Command {
	var def customfield.FieldDefinition
	var typ, options string
	cmd := &cobra.Command{
		Use:   "create <entity-type>",
		Short: "Create a field; the name defaults to the next Field_<n>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entityArg(args[0])
			if err != nil {
				return err
			}
			def.EntityType = et
			def.FieldType = customfield.FieldType(typ)
			if options != "" {
				for _, o := range strings.Split(options, ",") {
					if o = strings.TrimSpace(o); o != "" {
						def.Options = append(def.Options, o)
					}
				}
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			out, err := cli.CreateField(cmd.Context(), def)
			if err != nil {
				return err
			}
			return printOutput(cmd, out, fieldHeader, fieldRows([]customfield.FieldDefinition{out}))
		},
	}
	f := cmd.Flags()
	f.StringVar(&def.FieldName, "name", "", "field name (default next Field_<n>)")
	f.StringVar(&def.FieldLabel, "label", "", "field label")
	f.StringVar(&typ, "type", string(customfield.TypeText), "field type")
	f.BoolVar(&def.IsRequired, "required", false, "mark as required")
	f.BoolVar(&def.IsHidden, "hidden", false, "hide from forms")
	f.StringVar(&options, "options", "", "comma separated options for select and radio")
	f.StringVar(&def.Placeholder, "placeholder", "", "placeholder text")
	f.StringVar(&def.DefaultValue, "default", "", "default value for new records")
	f.IntVar(&def.SortOrder, "sort", 0, "sort order")
	f.StringVar(&def.Validator, "validator", "", "named validator")
	f.StringSliceVar(&def.Aliases, "alias", nil, "extra CSV header alias (repeatable)")
	mustFlag(cmd, "label")
	return cmd
}

func newFieldsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity-type> <id>",
		Short: "Delete a field definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entityArg(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			if err := cli.DeleteField(cmd.Context(), et, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s field %d\n", et, id)
			return nil
		},
	}
}

func newFieldsNextNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-name <entity-type>",
		Short: "Print the next generated field name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entityArg(args[0])
			if err != nil {
				return err
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			name, err := cli.NextFieldName(cmd.Context(), et)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newFieldsHistoryCmd() *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "history <field-id>",
		Short: "Show the change history of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			entries, err := cli.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			if showDiff {
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "# %s %s by %s\n%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Actor, e.Diff)
				}
				return nil
			}
			return printOutput(cmd, entries, []string{"When", "Action", "Actor", "Field"}, historyRows(entries))
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print the unified diff of every change")
	return cmd
}

func historyRows(entries []audit.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Actor, e.EntityType + "." + e.FieldName})
	}
	return rows
}
