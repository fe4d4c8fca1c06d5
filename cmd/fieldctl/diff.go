package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/customfield/registry/codec"
	"github.com/faciam-dev/crmfields/pkg/customfield"
	"github.com/faciam-dev/crmfields/sdk/client"
)

var exitFunc = os.Exit

// entityPlan holds the changes needed to bring one entity type in line
// with a field file.
type entityPlan struct {
	Entity  customfield.EntityType
	Current []customfield.FieldDefinition
	Desired []customfield.FieldDefinition
	Changes []registry.Change
}

func (p entityPlan) drift() bool {
	for _, c := range p.Changes {
		if c.Type != registry.ChangeUnchanged {
			return true
		}
	}
	return false
}

func readFieldFile(file string) (map[customfield.EntityType][]customfield.FieldDefinition, error) {
	if file == "" {
		return nil, errors.New("--file is required")
	}
	data, err := os.ReadFile(filepath.Clean(file)) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, err
	}
	return codec.DecodeYAML(data)
}

// buildPlan compares the file with the fields the client currently has.
func buildPlan(ctx context.Context, cli client.Client, file string) ([]entityPlan, error) {
	desired, err := readFieldFile(file)
	if err != nil {
		return nil, err
	}
	ets := make([]customfield.EntityType, 0, len(desired))
	for et := range desired {
		ets = append(ets, et)
	}
	sort.Slice(ets, func(i, j int) bool { return ets[i] < ets[j] })
	plans := make([]entityPlan, 0, len(ets))
	for _, et := range ets {
		cur, err := cli.Fields(ctx, et)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", et, err)
		}
		plans = append(plans, entityPlan{Entity: et, Current: cur, Desired: desired[et], Changes: registry.Diff(cur, desired[et])})
	}
	return plans, nil
}

func newDiffCmd() *cobra.Command {
	var (
		file    string
		format  string
		fail    bool
		unified bool
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show drift between a field file and the live field definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "markdown" {
				return errors.New("--format must be text or markdown")
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			plans, err := buildPlan(cmd.Context(), cli, file)
			if err != nil {
				return err
			}
			var drift bool
			for _, p := range plans {
				drift = drift || p.drift()
			}
			if !drift {
				fmt.Fprintln(cmd.OutOrStdout(), "No field drift detected.")
				return nil
			}

			var b bytes.Buffer
			if format == "markdown" {
				b.WriteString("```diff\n")
			}
			for _, p := range plans {
				if !p.drift() {
					continue
				}
				if unified {
					u, err := registry.UnifiedDiff(p.Entity, p.Current, p.Desired)
					if err != nil {
						return err
					}
					b.WriteString(u)
					continue
				}
				writeDiff(&b, p.Entity, p.Changes, format == "text")
			}
			if format == "markdown" {
				b.WriteString("```\n")
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			if fail {
				exitFunc(2)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fields.yaml", "field file")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|markdown)")
	cmd.Flags().BoolVar(&fail, "fail-on-change", false, "exit 2 if drift detected")
	cmd.Flags().BoolVar(&unified, "unified", false, "print a unified YAML diff")
	return cmd
}

func writeDiff(buf *bytes.Buffer, et customfield.EntityType, changes []registry.Change, color bool) {
	const (
		green  = "\x1b[32m"
		red    = "\x1b[31m"
		yellow = "\x1b[33m"
		reset  = "\x1b[0m"
	)
	line := func(c, s string) {
		if color {
			fmt.Fprintf(buf, "%s%s%s\n", c, s, reset)
			return
		}
		buf.WriteString(s + "\n")
	}
	for _, c := range changes {
		switch c.Type {
		case registry.ChangeAdded:
			line(green, fmt.Sprintf("+ %s.%s (%s)", et, c.New.FieldName, c.New.FieldType))
		case registry.ChangeDeleted:
			line(red, fmt.Sprintf("- %s.%s (%s)", et, c.Old.FieldName, c.Old.FieldType))
		case registry.ChangeUpdated:
			line(yellow, fmt.Sprintf("± %s.%s %s", et, c.New.FieldName, updatedDetail(c.Old, c.New)))
		}
	}
}

func updatedDetail(old, new *customfield.FieldDefinition) string {
	var parts []string
	add := func(name, o, n string) {
		if o == n {
			return
		}
		if o == "" {
			o = "none"
		}
		if n == "" {
			n = "none"
		}
		parts = append(parts, fmt.Sprintf("%s: %s → %s", name, o, n))
	}
	add("label", old.FieldLabel, new.FieldLabel)
	add("type", string(old.FieldType), string(new.FieldType))
	add("required", fmt.Sprint(old.IsRequired), fmt.Sprint(new.IsRequired))
	add("hidden", fmt.Sprint(old.IsHidden), fmt.Sprint(new.IsHidden))
	add("options", strings.Join(old.Options, "|"), strings.Join(new.Options, "|"))
	add("placeholder", old.Placeholder, new.Placeholder)
	add("default", old.DefaultValue, new.DefaultValue)
	add("order", fmt.Sprint(old.SortOrder), fmt.Sprint(new.SortOrder))
	add("validator", old.Validator, new.Validator)
	add("aliases", strings.Join(old.Aliases, "|"), strings.Join(new.Aliases, "|"))
	return strings.Join(parts, ", ")
}
