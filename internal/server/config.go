package server

import "time"

// Config holds the settings of the API server.
type Config struct {
	// Driver is mysql, postgres, mongo or memory.
	Driver      string
	DSN         string
	TablePrefix string
	// MongoDatabase names the database used when Driver is mongo.
	MongoDatabase string
	// StandardFields is an optional YAML file overriding the built-in
	// standard fields. It is watched for changes.
	StandardFields string
	EventsConfig   string
	ReservedConfig string
	// RBACPolicy is an optional casbin policy CSV replacing the defaults.
	RBACPolicy    string
	CacheInterval time.Duration
	TokenTTL      time.Duration
}
