package main

import (
	"crypto/tls"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/internal/record"
	"github.com/faciam-dev/crmfields/pkg/config"
	"github.com/faciam-dev/crmfields/pkg/customfield"
	"github.com/faciam-dev/crmfields/pkg/util"
	"github.com/faciam-dev/crmfields/sdk/client"
)

// mustFlag marks a flag as required and panics on error.
func mustFlag(cmd *cobra.Command, name string) {
	cobra.CheckErr(cmd.MarkFlagRequired(name))
}

func entityArg(s string) (customfield.EntityType, error) {
	return customfield.ParseEntityType(s)
}

// newZap returns the CLI logger. It writes to stderr so that command output
// on stdout stays machine readable.
func newZap(cmd *cobra.Command) *zap.SugaredLogger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// newClient returns an HTTP client when an API URL and token resolve and
// falls back to working on the database given by --db, CRM_DSN or the
// profile. The returned func releases the database connection.
func newClient(cmd *cobra.Command) (client.Client, func(), error) {
	r, err := config.Resolve(cmd)
	if err == nil {
		opts := []client.Option{client.WithToken(r.Token)}
		if r.Insecure {
			// Only for development servers with self-signed certificates.
			opts = append(opts, client.WithTransport(&http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}})) // #nosec G402 -- opt-in
		}
		return client.NewHTTP(r.APIURL, opts...), func() {}, nil
	}
	if !errors.Is(err, config.ErrNoAPIURL) {
		return nil, nil, err
	}
	rdb, dbErr := config.ResolveDB(cmd)
	if dbErr != nil {
		return nil, nil, fmt.Errorf("%w; set --api-url or a database DSN", err)
	}
	return localClient(cmd, rdb)
}

func localClient(cmd *cobra.Command, r config.Resolved) (client.Client, func(), error) {
	driver, err := util.DetectDriver(r.DSN)
	if err != nil {
		return nil, nil, err
	}
	actor := util.GetEnv("USER", "fieldctl")
	switch driver {
	case "mongo":
		cli, err := mongo.Connect(cmd.Context(), options.Client().ApplyURI(r.DSN))
		if err != nil {
			return nil, nil, err
		}
		store := &registry.MongoStore{Client: cli, Database: util.GetEnv("CRM_MONGO_DATABASE", "crm")}
		return client.NewLocal(store, nil, nil, actor), func() { _ = cli.Disconnect(cmd.Context()) }, nil
	case "mysql", "postgres":
		db, err := sql.Open(driver, util.DataSource(driver, r.DSN))
		if err != nil {
			return nil, nil, err
		}
		dialect := util.DialectFromDriver(driver)
		store := &registry.Repo{DB: db, Dialect: dialect, TablePrefix: r.TablePrefix}
		loader := &registry.Loader{Source: store, Standard: registry.DefaultStandard(), Logger: logger.L}
		svc := record.NewService(loader, &record.Repo{DB: db, Dialect: dialect, TablePrefix: r.TablePrefix})
		rec := &audit.Recorder{DB: db, Dialect: dialect, TablePrefix: r.TablePrefix}
		return client.NewLocal(store, svc, rec, actor), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("driver %q cannot back a local client", driver)
	}
}

// newLoader wraps a client in a registry loader with the built-in standard
// fields as fallback.
func newLoader(cli client.Client) *registry.Loader {
	return &registry.Loader{Source: cli, Standard: registry.DefaultStandard(), Logger: logger.L}
}

// printOutput prints v as JSON or YAML, or renders header and rows as a
// table, depending on --output.
func printOutput(cmd *cobra.Command, v any, header []string, rows [][]string) error {
	format, err := cmd.Root().PersistentFlags().GetString("output")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(v)
	case "table", "":
		tw := tablewriter.NewWriter(out)
		tw.SetHeader(header)
		tw.SetAutoWrapText(false)
		tw.AppendBulk(rows)
		tw.Render()
		return nil
	default:
		return fmt.Errorf("unknown output format %q (table|json|yaml)", format)
	}
}

func writeFileOrStdout(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
