package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/customfield/registry/codec"
	"github.com/faciam-dev/crmfields/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "export", Short: "Export field definitions or records"}
	cmd.AddCommand(newExportFieldsCmd())
	cmd.AddCommand(newExportRecordsCmd())
	return cmd
}

func newExportFieldsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fields <entity-type>",
		Short: "Write the field definitions of an entity type as YAML",
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
			defs, err := cli.Fields(cmd.Context(), et)
			if err != nil {
				return err
			}
			data, err := codec.EncodeYAML(et, defs)
			if err != nil {
				return err
			}
			return writeFileOrStdout(cmd, out, data)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file")
	return cmd
}

func newExportRecordsCmd() *cobra.Command {
	var format, dest string
	cmd := &cobra.Command{
		Use:   "records <entity-type>",
		Short: "Export every record of an entity type as CSV or XLSX",
		Long:  "--dest is a directory or s3://bucket/prefix. The file is named <RecordType>_<YYYYMMDD>.<format>.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entityArg(args[0])
			if err != nil {
				return err
			}
			f := export.Format(format)
			if f != export.FormatCSV && f != export.FormatXLSX {
				return fmt.Errorf("--format must be csv or xlsx")
			}
			ctx := cmd.Context()
			d, err := export.ParseDest(ctx, dest)
			if err != nil {
				return err
			}
			if s, ok := d.(export.S3); ok {
				s.ContentType = f.ContentType()
				d = s
			}
			cli, done, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer done()
			name, data, err := cli.Export(ctx, et, f)
			if err != nil {
				return err
			}
			if err := d.Write(ctx, name, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes) to %s\n", name, len(data), dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "file format (csv|xlsx)")
	cmd.Flags().StringVar(&dest, "dest", ".", "directory or s3://bucket/prefix")
	return cmd
}
