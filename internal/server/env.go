package server

import (
	"errors"
	"os"
	"strings"

	pkgutil "github.com/faciam-dev/crmfields/pkg/util"
)

// allowedOrigins returns the list of origins allowed for CORS.
func allowedOrigins() []string {
	allowed := pkgutil.GetEnv("ALLOWED_ORIGINS", "http://localhost:5173")
	origins := strings.Split(allowed, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// ErrNoJWTSecret is returned when JWT_SECRET is unset.
var ErrNoJWTSecret = errors.New("JWT_SECRET environment variable is not set")

func jwtSecret() (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", ErrNoJWTSecret
	}
	return secret, nil
}
