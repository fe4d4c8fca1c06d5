package server

import (
	"context"
	"database/sql"
	"strings"

	"github.com/faciam-dev/goquent/orm/driver"

	"github.com/faciam-dev/crmfields/internal/customfield/runtime/cache"
	"github.com/faciam-dev/crmfields/internal/events"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// initEvents initializes the global events dispatcher. When a redis sink is
// configured the server also listens on its channel so that field changes
// made by other instances drop the local cache.
func initEvents(ctx context.Context, path string, db *sql.DB, dialect driver.Dialect, tablePrefix string, c *cache.Cache) error {
	cfg, err := events.LoadConfig(path)
	if err != nil {
		return err
	}
	sinks := events.Sinks(cfg)
	var dlq events.DLQ
	if db != nil {
		dlq = &events.SQLDLQ{DB: db, Dialect: dialect, TablePrefix: tablePrefix}
	}
	events.Default = events.NewDispatcher(cfg, dlq, sinks...)
	for _, s := range sinks {
		rs, ok := s.(*events.RedisSink)
		if !ok {
			continue
		}
		go events.Subscribe(ctx, rs.Client, rs.Channel, invalidator(c))
		logger.L.Info("listening for field changes", "channel", rs.Channel)
	}
	return nil
}

func invalidator(c *cache.Cache) func(events.Event) {
	return func(e events.Event) {
		if !strings.HasPrefix(e.Name, "field.") {
			return
		}
		if et, err := customfield.ParseEntityType(e.Entity); err == nil {
			c.Invalidate(et)
		}
	}
}
