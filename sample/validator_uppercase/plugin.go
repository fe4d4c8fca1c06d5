// Command validator_uppercase is an example validator plugin.
//
//	go build -buildmode=plugin -o ~/.crmfields/plugins/uppercase.so ./sample/validator_uppercase
//
// Fields whose validator is "uppercase" then reject values containing
// lower-case letters.
package main

import (
	"errors"
	"strings"

	"github.com/faciam-dev/crmfields/internal/customfield/pluginloader"
)

type uppercase struct{}

func (uppercase) Name() string { return "uppercase" }

func (uppercase) Validate(v string) error {
	if v != strings.ToUpper(v) {
		return errors.New("must be upper case")
	}
	return nil
}

func New() pluginloader.Validator { return uppercase{} }

// main is required for `go build ./...`; it is unused when built with -buildmode=plugin.
func main() {}
