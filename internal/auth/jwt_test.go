package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateValidate(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	tok, err := j.Generate("alice", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := j.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != "admin" {
		t.Fatalf("claims=%+v", claims)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	tok, err := NewJWT("a", time.Minute).Generate("bob", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWT("b", time.Minute).Validate(tok); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateExpired(t *testing.T) {
	j := NewJWT("secret", -time.Minute)
	tok, err := j.Generate("bob", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Validate(tok); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	if got := TokenFromRequest(r); got != "from-cookie" {
		t.Fatalf("cookie token=%q", got)
	}
	r.Header.Set("Authorization", "Bearer from-header")
	if got := TokenFromRequest(r); got != "from-header" {
		t.Fatalf("header token=%q", got)
	}
	if got := TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("want empty, got %q", got)
	}
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}, Role: "admin"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWT("secret", time.Minute).Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestGenerateNormalizesRole(t *testing.T) {
	j := NewJWT("secret", time.Minute)
	tok, err := j.Generate("carol", " Admin ")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := j.Validate(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != "admin" || claims.ID == "" {
		t.Fatalf("claims=%+v", claims)
	}
	if _, err := j.Generate("  ", "admin"); err == nil {
		t.Fatal("want error for empty subject")
	}
}
