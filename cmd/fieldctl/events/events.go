package events

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	dbcmd "github.com/faciam-dev/crmfields/cmd/fieldctl/db"
	notify "github.com/faciam-dev/crmfields/internal/events"
	"github.com/faciam-dev/crmfields/pkg/util"
)

// NewCmd creates the events command.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "events", Short: "Inspect and replay field and record events"}
	cmd.AddCommand(newListFailedCmd())
	cmd.AddCommand(newRetryCmd())
	cmd.AddCommand(newTailCmd())
	return cmd
}

func dlq(cmd *cobra.Command, flags *dbcmd.DBFlags) (*notify.SQLDLQ, func() error, error) {
	db, err := flags.Open(cmd)
	if err != nil {
		return nil, nil, err
	}
	q := &notify.SQLDLQ{DB: db, Dialect: util.DialectFromDriver(flags.Driver), TablePrefix: flags.TablePrefix}
	return q, db.Close, nil
}

func newListFailedCmd() *cobra.Command {
	var flags dbcmd.DBFlags
	cmd := &cobra.Command{
		Use:   "ls-failed",
		Short: "List dead-lettered events",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, closeFn, err := dlq(cmd, &flags)
			if err != nil {
				return err
			}
			defer closeFn()
			rows, err := q.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"ID", "Name", "Attempts", "Last Error", "Created"})
			for _, r := range rows {
				tw.Append([]string{strconv.FormatInt(r.ID, 10), r.Name, strconv.Itoa(r.Attempts), r.LastError, r.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			tw.Render()
			return nil
		},
	}
	flags.AddFlags(cmd)
	return cmd
}

func newRetryCmd() *cobra.Command {
	var flags dbcmd.DBFlags
	var id int64
	var eventsCfg string
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-send a dead-lettered event to the configured sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := notify.LoadConfig(eventsCfg)
			if err != nil {
				return err
			}
			sinks := notify.Sinks(cfg)
			if len(sinks) == 0 {
				return fmt.Errorf("no sinks enabled in %s", eventsCfg)
			}
			q, closeFn, err := dlq(cmd, &flags)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()
			f, err := q.Get(ctx, id)
			if err != nil {
				return err
			}
			evt, err := f.Event()
			if err != nil {
				return err
			}
			for _, s := range sinks {
				if err := s.Emit(ctx, evt); err != nil {
					return fmt.Errorf("event %d: %w", id, err)
				}
			}
			if err := q.Remove(ctx, id); err != nil {
				return err
			}
			cmd.Println("re-dispatched", id)
			return nil
		},
	}
	flags.AddFlags(cmd)
	cmd.Flags().Int64Var(&id, "id", 0, "event id")
	cmd.Flags().StringVar(&eventsCfg, "events-config", "events.yaml", "events sink YAML")
	cobra.CheckErr(cmd.MarkFlagRequired("id"))
	return cmd
}

func newTailCmd() *cobra.Command {
	var dsn, channel string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events from redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := redis.ParseURL(dsn)
			if err != nil {
				return err
			}
			client := redis.NewClient(opt)
			defer client.Close()
			notify.Subscribe(cmd.Context(), client, channel, func(e notify.Event) {
				cmd.Printf("%s\t%s\t%s\t%v\n", e.Time.Format("15:04:05"), e.Name, e.Entity, e.Data)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", util.GetEnv("REDIS_URL", ""), "redis DSN")
	cmd.Flags().StringVar(&channel, "channel", notify.DefaultChannel, "channel name")
	return cmd
}
