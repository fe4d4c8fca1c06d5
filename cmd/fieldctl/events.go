package main

import (
	"github.com/spf13/cobra"

	eventscmd "github.com/faciam-dev/crmfields/cmd/fieldctl/events"
)

func newEventsCmd() *cobra.Command {
	return eventscmd.NewCmd()
}
