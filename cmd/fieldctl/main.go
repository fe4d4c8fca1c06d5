package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/internal/customfield/pluginloader"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fieldctl",
		Short:         "Manage custom fields and import records of the staffing CRM",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Root().PersistentFlags().GetString("plugins")
			if dir == "" {
				return nil
			}
			_, err := pluginloader.LoadAll(dir, newZap(cmd))
			return err
		},
	}
	pf := cmd.PersistentFlags()
	pf.String("api-url", "", "API base URL")
	pf.String("token", "", "Bearer token for the API")
	pf.String("profile", "", "Profile name in config (overrides active)")
	pf.Bool("insecure", false, "Skip TLS certificate verification")
	pf.String("output", "table", "Output format (table|json|yaml)")
	pf.String("plugins", "", "Directory of validator plugins to load")
	pf.BoolP("verbose", "v", false, "Verbose logging to stderr")

	cmd.AddCommand(newFieldsCmd())
	cmd.AddCommand(newApplyCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newGenDocsCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
