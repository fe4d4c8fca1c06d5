// Package reserved lists field names admins may not define because they
// collide with keys of the record payload.
package reserved

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var defaults = []string{"^id$", "^custom_fields$", "^created_at$", "^updated_at$", "^entity_type$"}

var (
	mu       sync.RWMutex
	patterns = compile(defaults)
)

func compile(list []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range list {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if r, err := regexp.Compile(p); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Load reads reserved_fields from the given YAML file. A missing file keeps
// the defaults. CRM_RESERVED_FIELDS, a comma separated list of patterns,
// overrides both.
func Load(path string) {
	list := defaults
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- configuration path provided by operator
		if err == nil {
			var cfg struct {
				Reserved []string `yaml:"reserved_fields"`
			}
			if yaml.Unmarshal(data, &cfg) == nil && len(cfg.Reserved) > 0 {
				list = cfg.Reserved
			}
		}
	}
	if env := os.Getenv("CRM_RESERVED_FIELDS"); env != "" {
		list = strings.Split(env, ",")
	}
	mu.Lock()
	patterns = compile(list)
	mu.Unlock()
}

// Is returns true if the field name is reserved.
func Is(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	for _, r := range patterns {
		if r.MatchString(name) {
			return true
		}
	}
	return false
}

// Patterns returns the reserved patterns as strings.
func Patterns() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, len(patterns))
	for i, r := range patterns {
		out[i] = r.String()
	}
	return out
}
