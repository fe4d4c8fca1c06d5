package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	ErrNoAPIURL = errors.New("API URL not set (flag/env/config)")
	ErrNoToken  = errors.New("token not set (flag/env/config)")
	ErrNoDSN    = errors.New("DSN not set (flag/env/config)")
)

// Resolved is the effective connection target of a command.
type Resolved struct {
	APIURL      string
	Token       string
	Insecure    bool
	DSN         string
	TablePrefix string
	Profile     string
}

// Resolve merges root persistent flags, CRM_* environment variables and
// the selected profile, in that order of precedence. An API URL and a token
// are required.
func Resolve(cmd *cobra.Command) (Resolved, error) {
	r, err := resolve(cmd)
	if err != nil {
		return Resolved{}, err
	}
	if r.APIURL == "" {
		return Resolved{}, ErrNoAPIURL
	}
	if r.Token == "" {
		return Resolved{}, ErrNoToken
	}
	return r, nil
}

// ResolveDB is like Resolve but requires a DSN instead of API settings. The
// DSN comes from the command's --db flag, CRM_DSN or the profile.
func ResolveDB(cmd *cobra.Command) (Resolved, error) {
	r, err := resolve(cmd)
	if err != nil {
		return Resolved{}, err
	}
	if r.DSN == "" {
		return Resolved{}, ErrNoDSN
	}
	return r, nil
}

func resolve(cmd *cobra.Command) (Resolved, error) {
	flags := cmd.Root().PersistentFlags()
	flag := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}
	// --db and --table-prefix are local to the database commands.
	local := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	cfg, err := Load()
	if err != nil {
		return Resolved{}, err
	}
	prof := cfg.Active
	if p := flag("profile"); p != "" {
		prof = p
	}
	cp := cfg.Profiles[prof]

	insecure := cp.Insecure
	if v, err := flags.GetBool("insecure"); err == nil && flags.Changed("insecure") {
		insecure = v
	}

	return Resolved{
		APIURL:      strings.TrimRight(firstNonEmpty(flag("api-url"), os.Getenv("CRM_API_URL"), cp.APIURL), "/"),
		Token:       firstNonEmpty(flag("token"), os.Getenv("CRM_TOKEN"), cp.Token),
		Insecure:    insecure,
		DSN:         firstNonEmpty(local("db"), os.Getenv("CRM_DSN"), cp.DSN),
		TablePrefix: firstNonEmpty(local("table-prefix"), os.Getenv("TABLE_PREFIX"), cp.TablePrefix, "crm_"),
		Profile:     prof,
	}, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
