package main

import (
	"github.com/spf13/cobra"

	dbcmd "github.com/faciam-dev/crmfields/cmd/fieldctl/db"
)

func newDBCmd() *cobra.Command {
	return dbcmd.NewCmd()
}
