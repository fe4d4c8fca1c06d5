package util

import (
	"testing"
	"time"
)

func TestDetectDriver(t *testing.T) {
	cases := map[string]string{
		"":                              "memory",
		"memory":                        "memory",
		"postgres://u:p@localhost/db":   "postgres",
		"postgresql://u:p@localhost/db": "postgres",
		"mongodb://localhost:27017":     "mongo",
		"mysql://u:p@tcp(localhost)/db": "mysql",
		"u:p@tcp(localhost:3306)/db":    "mysql",
	}
	for dsn, want := range cases {
		got, err := DetectDriver(dsn)
		if err != nil || got != want {
			t.Errorf("DetectDriver(%q)=%q,%v want %q", dsn, got, err, want)
		}
	}
	if _, err := DetectDriver("redis://localhost"); err == nil {
		t.Fatal("expected unknown scheme error")
	}
}

func TestDataSource(t *testing.T) {
	if got := DataSource("mysql", "mysql://u:p@tcp(h)/db"); got != "u:p@tcp(h)/db" {
		t.Fatalf("got %q", got)
	}
	if got := DataSource("postgres", "postgres://h/db"); got != "postgres://h/db" {
		t.Fatalf("got %q", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CRM_TEST_ENV", "")
	if GetEnv("CRM_TEST_ENV", "def") != "def" {
		t.Fatal("default not used")
	}
	t.Setenv("CRM_TEST_ENV", "set")
	if GetEnv("CRM_TEST_ENV", "def") != "set" {
		t.Fatal("value not used")
	}
}

func TestFirstEnv(t *testing.T) {
	t.Setenv("CRM_A", "")
	t.Setenv("CRM_B", " b ")
	if got := FirstEnv("def", "CRM_A", "CRM_B"); got != "b" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("CRM_B", "")
	if got := FirstEnv("def", "CRM_A", "CRM_B"); got != "def" {
		t.Fatalf("got %q", got)
	}
}

func TestEnvDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":      time.Second,
		"2m":    2 * time.Minute,
		"nope":  time.Second,
		"-5s":   time.Second,
		" 30s ": 30 * time.Second,
	}
	for v, want := range cases {
		t.Setenv("CRM_DUR", v)
		if got := EnvDuration("CRM_DUR", time.Second); got != want {
			t.Errorf("EnvDuration(%q)=%v want %v", v, got, want)
		}
	}
}
