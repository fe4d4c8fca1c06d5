package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage fieldctl configuration"}
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigUseCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a value on the selected profile",
		Long:      "Keys: api-url, token, insecure, dsn, table-prefix. --profile selects the profile, which is created if missing.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			prof, _ := cmd.Root().PersistentFlags().GetString("profile")
			if err := cfg.Set(prof, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			if prof == "" {
				prof = cfg.Active
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s on profile %q\n", args[0], prof)
			return nil
		},
	}
}

func newConfigUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <profile>",
		Short: "Set active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Use(args[0]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %q\n", args[0])
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, name := range cfg.Names() {
				p := cfg.Profiles[name]
				mark := ""
				if name == cfg.Active {
					mark = "*"
				}
				rows = append(rows, []string{mark, name, p.APIURL, fmt.Sprint(p.Token != ""), fmt.Sprint(p.DSN != "")})
			}
			return printOutput(cmd, cfg.Names(), []string{"", "Profile", "API URL", "Token", "DSN"}, rows)
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show active profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p := cfg.Profiles[cfg.Active]
			b, _ := json.MarshalIndent(struct {
				Active      string `json:"active"`
				APIURL      string `json:"apiUrl"`
				Insecure    bool   `json:"insecure"`
				HasToken    bool   `json:"hasToken"`
				HasDSN      bool   `json:"hasDsn"`
				TablePrefix string `json:"tablePrefix,omitempty"`
			}{cfg.Active, p.APIURL, p.Insecure, p.Token != "", p.DSN != "", p.TablePrefix}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}
