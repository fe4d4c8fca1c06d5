package main

import (
	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/csvimport"
)

func newTemplateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template <entity-type>",
		Short: "Write an empty CSV import template",
		Long:  "The header row lists the visible field labels. Without -o the file is saved as <RecordType>_Template.csv.",
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
			name, data := csvimport.Template(et, newLoader(cli).Load(cmd.Context(), et))
			if out == "" {
				out = name
			}
			if err := writeFileOrStdout(cmd, out, data); err != nil {
				return err
			}
			if out != "-" {
				cmd.Printf("wrote %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (- for stdout)")
	return cmd
}
