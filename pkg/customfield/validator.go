package customfield

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ValidatorFunc validates a non-empty field value. It returns an error
// describing why the value is invalid.
type ValidatorFunc func(v string) error

var (
	mu         sync.RWMutex
	validators = make(map[string]ValidatorFunc)
	// ErrValidatorExists is returned by RegisterValidator when a
	// validator with the same name has already been registered.
	ErrValidatorExists = errors.New("validator already registered")
)

var alphaRe = regexp.MustCompile(`^[A-Za-z]+$`)

func init() {
	_ = RegisterValidator("uuid", func(v string) error {
		if _, err := uuid.Parse(v); err != nil {
			return fmt.Errorf("must be a UUID")
		}
		return nil
	})
	_ = RegisterValidator("alpha", func(v string) error {
		if !alphaRe.MatchString(v) {
			return fmt.Errorf("must contain letters only")
		}
		return nil
	})
	_ = RegisterValidator("absolute-url", func(v string) error {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("must be an absolute URL")
		}
		return nil
	})
}

// RegisterValidator registers a validator under the given name.
// It returns an error if the name is already registered.
func RegisterValidator(name string, fn ValidatorFunc) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := validators[name]; ok {
		return fmt.Errorf("%w: %s", ErrValidatorExists, name)
	}
	validators[name] = fn
	return nil
}

// GetValidator retrieves a validator by name.
func GetValidator(name string) (ValidatorFunc, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := validators[name]
	return fn, ok
}

// Registered returns the names of all registered validators in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(validators))
	for n := range validators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
