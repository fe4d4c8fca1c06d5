package server

import (
	"context"
	"database/sql"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/faciam-dev/crmfields/internal/api/handler"
	"github.com/faciam-dev/crmfields/internal/auth"
	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/customfield/runtime/cache"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/internal/record"
	"github.com/faciam-dev/crmfields/internal/server/middleware"
	"github.com/faciam-dev/crmfields/internal/server/reserved"
	pkgutil "github.com/faciam-dev/crmfields/pkg/util"
)

// New builds the HTTP API. Background work started here (cache reloads,
// standard-field watching, the field gauge and event subscriptions) stops
// when ctx is done.
func New(ctx context.Context, db *sql.DB, cfg Config) (huma.API, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	reserved.Load(cfg.ReservedConfig)

	dialect := pkgutil.DialectFromDriver(cfg.Driver)
	fields, err := newFieldStore(ctx, db, cfg)
	if err != nil {
		return nil, err
	}
	standard := registry.DefaultStandard()
	standard.SetLogger(logger.L)
	if cfg.StandardFields != "" {
		if err := standard.LoadFile(cfg.StandardFields); err != nil {
			return nil, err
		}
		go standard.Watch(ctx)
	}
	fieldCache := cache.New(ctx, fields, cfg.CacheInterval)
	loader := &registry.Loader{Source: fieldCache, Standard: standard, Logger: logger.L}

	records, rec := newRecordStore(db, cfg)
	svc := record.NewService(loader, records)

	if err := initEvents(ctx, cfg.EventsConfig, db, dialect, cfg.TablePrefix, fieldCache); err != nil {
		return nil, err
	}

	api := humachi.New(r, huma.DefaultConfig("CRM Custom Fields API", "1.0.0"))
	api.UseMiddleware(middleware.RequestID)
	setupMetrics(ctx, api, r, fields)

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	jwtHandler := auth.NewJWT(secret, ttl)
	api.UseMiddleware(auth.Middleware(api, jwtHandler))

	enf, err := initEnforcer(cfg.RBACPolicy)
	if err != nil {
		return nil, err
	}
	// Registered before RBAC so that every authenticated caller can see
	// what they are allowed to do.
	auth.Register(api, &auth.Handler{JWT: jwtHandler, Enf: enf})
	api.UseMiddleware(middleware.RBAC(api, enf, middleware.ContextRoles))

	handler.RegisterFields(api, &handler.FieldHandler{Store: fields, Loader: loader, Recorder: rec, Invalidate: fieldCache.Invalidate})
	handler.RegisterForms(api, &handler.FormHandler{Loader: loader})
	handler.RegisterRecords(api, &handler.RecordHandler{Service: svc})
	handler.RegisterImports(api, &handler.ImportHandler{Service: svc})
	handler.RegisterExports(api, &handler.ExportHandler{Service: svc})
	return api, nil
}

func newFieldStore(ctx context.Context, db *sql.DB, cfg Config) (registry.Store, error) {
	switch cfg.Driver {
	case "mongo":
		cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, err
		}
		name := cfg.MongoDatabase
		if name == "" {
			name = "crm"
		}
		return &registry.MongoStore{Client: cli, Database: name}, nil
	case "mysql", "postgres":
		if db != nil {
			return &registry.Repo{DB: db, Dialect: pkgutil.DialectFromDriver(cfg.Driver), TablePrefix: cfg.TablePrefix}, nil
		}
	}
	logger.L.Warn("using in-memory field store", "driver", cfg.Driver)
	return registry.NewMemoryStore(), nil
}

// newRecordStore returns the SQL record store and field history recorder.
// Without a SQL connection, which includes the mongo driver, records are
// kept in memory and history is not recorded.
func newRecordStore(db *sql.DB, cfg Config) (record.Store, *audit.Recorder) {
	if db == nil {
		logger.L.Warn("using in-memory record store, records are not persisted", "driver", cfg.Driver)
		return record.NewMemoryStore(), nil
	}
	dialect := pkgutil.DialectFromDriver(cfg.Driver)
	return &record.Repo{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix},
		&audit.Recorder{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix}
}
