package events

import (
	"context"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/faciam-dev/crmfields/internal/logger"
)

// LoadConfig reads YAML from file path. If path is empty, returns zero value.
func LoadConfig(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return c, err
	}
	err = yaml.Unmarshal(data, &c)
	return c, err
}

// Sinks builds every enabled sink of cfg. Sinks that fail to initialize are
// logged and left out.
func Sinks(cfg Config) []Sink {
	var sinks []Sink
	if wh := NewWebhookSink(cfg.Sinks.Webhook); wh != nil {
		sinks = append(sinks, Only(wh, cfg.Sinks.Webhook.Only...))
	}
	if rs, err := NewRedisSink(cfg.Sinks.Redis); err != nil {
		logger.L.Error("redis sink", "err", err)
	} else if rs != nil {
		sinks = append(sinks, Only(rs, cfg.Sinks.Redis.Only...))
	}
	if ks, err := NewKafkaSink(cfg.Sinks.Kafka); err != nil {
		logger.L.Error("kafka sink", "err", err)
	} else if ks != nil {
		sinks = append(sinks, Only(ks, cfg.Sinks.Kafka.Only...))
	}
	return sinks
}

type filtered struct {
	Sink
	patterns []string
}

// Only restricts s to events whose name matches one of the glob patterns,
// for example "field.*". No patterns means every event.
func Only(s Sink, patterns ...string) Sink {
	if len(patterns) == 0 {
		return s
	}
	return &filtered{Sink: s, patterns: patterns}
}

func (f *filtered) Emit(ctx context.Context, e Event) error {
	for _, p := range f.patterns {
		if ok, _ := path.Match(p, e.Name); ok {
			return f.Sink.Emit(ctx, e)
		}
	}
	return nil
}
