package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/faciam-dev/crmfields/internal/config"
	"github.com/faciam-dev/crmfields/internal/events"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/internal/server"
	"github.com/faciam-dev/crmfields/pkg/util"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		logger.L.Error("dotenv", "err", err)
		os.Exit(1)
	}
	env := config.FromEnv()

	dsn := flag.String("dsn", env.DSN, "database DSN (postgres://, mysql://, mongodb:// or memory)")
	driver := flag.String("driver", env.Driver, "database driver; detected from the DSN when empty")
	tblPrefix := flag.String("table-prefix", env.TablePrefix, "table prefix (default crm_)")
	addr := flag.String("addr", env.Addr, "listen address")
	openapi := flag.String("openapi", "", "write OpenAPI JSON and exit")
	eventsCfg := flag.String("events-config", env.EventsConfig, "events sink YAML")
	standard := flag.String("standard-fields", env.StandardFields, "standard field override YAML (watched)")
	reservedCfg := flag.String("reserved", env.ReservedConfig, "reserved field name YAML")
	rbacPolicy := flag.String("rbac-policy", env.RBACPolicy, "casbin policy CSV")
	skipCheck := flag.Bool("skip-prefix-check", false, "do not verify that prefixed tables exist")
	flag.Parse()

	logger.Set(logger.New(os.Stdout, env.LogFormat, env.LogLevel))

	detected, err := util.DetectDriver(*dsn)
	switch {
	case err != nil && *driver == "":
		logger.L.Error("detect driver", "dsn", *dsn, "err", err)
		os.Exit(1)
	case *driver == "":
		*driver = detected
	case err == nil && *dsn != "" && *driver != detected:
		logger.L.Error("driver mismatch", "driver", *driver, "dsn", *dsn, "expected", detected)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if *driver == "mysql" || *driver == "postgres" {
		db, err = sql.Open(*driver, util.DataSource(*driver, *dsn))
		if err != nil {
			logger.L.Error("db open", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if !*skipCheck && *openapi == "" {
			if err := config.CheckPrefix(ctx, db, util.DialectFromDriver(*driver), *tblPrefix); err != nil {
				logger.L.Error("prefix check", "err", err)
				os.Exit(1)
			}
		}
	}

	cfg := server.Config{
		Driver:         *driver,
		DSN:            *dsn,
		TablePrefix:    *tblPrefix,
		MongoDatabase:  env.MongoDatabase,
		StandardFields: *standard,
		EventsConfig:   *eventsCfg,
		ReservedConfig: *reservedCfg,
		RBACPolicy:     *rbacPolicy,
		CacheInterval:  env.CacheInterval,
		TokenTTL:       env.TokenTTL,
	}
	logger.L.Info("starting", "driver", cfg.Driver, "table_prefix", cfg.TablePrefix)

	api, err := server.New(ctx, db, cfg)
	if err != nil {
		logger.L.Error("server init", "err", err)
		os.Exit(1)
	}

	if *openapi != "" {
		data, err := json.MarshalIndent(api.OpenAPI(), "", "  ")
		if err != nil {
			logger.L.Error("marshal openapi", "err", err)
			os.Exit(1)
		}
		p := filepath.Clean(*openapi)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			logger.L.Error("write openapi", "err", err)
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.Adapter(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("shutdown", "err", err)
		}
	}()

	logger.L.Info("listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("server error", "err", err)
		os.Exit(1)
	}
	// Let queued event deliveries finish before exiting.
	if events.Default != nil {
		events.Default.Wait()
	}
	logger.L.Info("stopped")
}
