package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/server/reserved"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

func newValidateCmd() *cobra.Command {
	var file string
	var reservedCfg string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a field file without contacting the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			byEntity, err := readFieldFile(file)
			if err != nil {
				return err
			}
			reserved.Load(reservedCfg)
			problems := checkFieldFile(byEntity)
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return fmt.Errorf("%d problem(s) in %s", len(problems), filepath.Base(file))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fields.yaml", "field file")
	cmd.Flags().StringVar(&reservedCfg, "reserved", os.Getenv("CRM_RESERVED_CONFIG"), "reserved field name YAML")
	return cmd
}

// checkFieldFile returns one message per problem found in the file.
func checkFieldFile(byEntity map[customfield.EntityType][]customfield.FieldDefinition) []string {
	var problems []string
	ets := make([]customfield.EntityType, 0, len(byEntity))
	for et := range byEntity {
		ets = append(ets, et)
	}
	sort.Slice(ets, func(i, j int) bool { return ets[i] < ets[j] })
	for _, et := range ets {
		defs := byEntity[et]
		if err := customfield.CheckUnique(defs); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", et, err))
		}
		claimed := map[string]string{}
		for _, d := range defs {
			if err := d.Check(); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", et, err))
			}
			if reserved.Is(d.FieldName) {
				problems = append(problems, fmt.Sprintf("%s.%s: field name is reserved", et, d.FieldName))
			}
			if d.Validator != "" {
				if _, ok := customfield.GetValidator(d.Validator); !ok {
					problems = append(problems, fmt.Sprintf("%s.%s: unknown validator %q (registered: %s)", et, d.FieldName, d.Validator, strings.Join(customfield.Registered(), ", ")))
				}
			}
			for _, a := range d.Aliases {
				key := strings.ToLower(strings.TrimSpace(a))
				if other, ok := claimed[key]; ok && other != d.FieldName {
					problems = append(problems, fmt.Sprintf("%s: alias %q used by %s and %s", et, a, other, d.FieldName))
				}
				claimed[key] = d.FieldName
			}
		}
		if len(registry.Visible(defs)) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no visible fields", et))
		}
	}
	if len(ets) == 0 {
		problems = append(problems, "file defines no entity")
	}
	return problems
}
