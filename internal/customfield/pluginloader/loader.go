// Package pluginloader registers validator plugins built with
// -buildmode=plugin. Each plugin exports
//
//	func New() pluginloader.Validator
package pluginloader

import (
	"errors"
	"os"
	"path/filepath"
	"plugin"
	"runtime"

	"go.uber.org/zap"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Validator is implemented by plugin-provided field validators. The name is
// what FieldDefinition.Validator refers to.
type Validator interface {
	Name() string
	Validate(v string) error
}

// DefaultDir returns the path where validator plugins are stored for the
// current OS.
func DefaultDir() string {
	if runtime.GOOS == "windows" {
		dir := os.Getenv("APPDATA")
		if dir == "" {
			if h, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(h, "AppData", "Roaming")
			}
		}
		return filepath.Join(dir, "crmfields", "plugins")
	}
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".crmfields", "plugins")
	}
	return "./plugins"
}

// Register adds v to the validator registry.
func Register(v Validator) error {
	return customfield.RegisterValidator(v.Name(), v.Validate)
}

// LoadAll opens every *.so in dir and registers the validator it provides.
// If dir is empty, DefaultDir() is used. Broken plugins are logged and
// skipped; duplicates are skipped with a warning. It returns the names of
// the validators it registered.
func LoadAll(dir string, logger *zap.SugaredLogger) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return nil, err
	}
	var loaded []string
	for _, f := range files {
		p, err := plugin.Open(f)
		if err != nil {
			logger.Warnw("plugin open failed", "file", f, "err", err)
			continue
		}
		sym, err := p.Lookup("New")
		if err != nil {
			logger.Warnw("symbol missing", "file", f, "err", err)
			continue
		}
		ctor, ok := sym.(func() Validator)
		if !ok {
			logger.Warnw("invalid type", "file", f)
			continue
		}
		inst := ctor()
		if err := Register(inst); err != nil {
			if errors.Is(err, customfield.ErrValidatorExists) {
				logger.Warnw("validator already registered", "name", inst.Name(), "file", f)
				continue
			}
			return loaded, err
		}
		logger.Infow("validator plugin loaded", "name", inst.Name(), "file", f)
		loaded = append(loaded, inst.Name())
	}
	return loaded, nil
}
