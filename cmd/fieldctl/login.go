package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/crmfields/pkg/config"
	"github.com/faciam-dev/crmfields/sdk/client"
)

func newLoginCmd() *cobra.Command {
	var nonInteractive bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify an API endpoint and token and save them into ~/.fieldctl/config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pf := cmd.Root().PersistentFlags()
			prof, _ := pf.GetString("profile")
			if prof == "" {
				prof = cfg.Active
			}
			url, _ := pf.GetString("api-url")
			tok, _ := pf.GetString("token")
			insecure, _ := pf.GetBool("insecure")
			if !nonInteractive {
				in := bufio.NewReader(cmd.InOrStdin())
				if url == "" {
					url = prompt(cmd.OutOrStdout(), in, "API URL", cfg.Profiles[prof].APIURL)
				}
				if tok == "" {
					tok = prompt(cmd.OutOrStdout(), in, "Token (Bearer)", "")
				}
			}
			if url == "" || tok == "" {
				return errors.New("api-url and token are required (provide flags or use interactive mode)")
			}

			opts := []client.Option{client.WithToken(tok)}
			if insecure {
				opts = append(opts, client.WithTransport(&http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}})) // #nosec G402 -- opt-in
			}
			id, err := client.WhoAmI(cmd.Context(), url, opts...)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			for k, v := range map[string]string{"api-url": url, "token": tok, "insecure": fmt.Sprint(insecure)} {
				if err := cfg.Set(prof, k, v); err != nil {
					return err
				}
			}
			cfg.Active = prof
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s). Active profile: %s\n", id.Subject, strings.Join(id.Roles, ","), prof)
			return nil
		},
	}
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting")
	return cmd
}

func prompt(out io.Writer, in *bufio.Reader, label, def string) string {
	fmt.Fprintf(out, "%s [%s]: ", label, def)
	s, err := in.ReadString('\n')
	if err != nil && s == "" {
		return def
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
