package config

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
)

func newRoot() *cobra.Command {
	cmd := &cobra.Command{Use: "root"}
	cmd.PersistentFlags().String("api-url", "", "")
	cmd.PersistentFlags().String("token", "", "")
	cmd.PersistentFlags().String("profile", "", "")
	cmd.PersistentFlags().Bool("insecure", false, "")
	return cmd
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CRM_CONFIG", "")
	t.Setenv("CRM_API_URL", "")
	t.Setenv("CRM_TOKEN", "")
	t.Setenv("CRM_DSN", "")

	cfg := &File{Active: "default", Profiles: map[string]Profile{"default": {Name: "default", APIURL: "cfg", Token: "cfgtok"}}, Version: 1}
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Run("config", func(t *testing.T) {
		root := newRoot()
		r, err := Resolve(root)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if r.APIURL != "cfg" || r.Token != "cfgtok" {
			t.Fatalf("unexpected %+v", r)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("CRM_API_URL", "env")
		t.Setenv("CRM_TOKEN", "envtok")
		defer t.Setenv("CRM_API_URL", "")
		defer t.Setenv("CRM_TOKEN", "")
		root := newRoot()
		r, err := Resolve(root)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if r.APIURL != "env" || r.Token != "envtok" {
			t.Fatalf("unexpected %+v", r)
		}
	})

	t.Run("flag", func(t *testing.T) {
		root := newRoot()
		if err := root.PersistentFlags().Set("api-url", "flag"); err != nil {
			t.Fatalf("set api-url: %v", err)
		}
		if err := root.PersistentFlags().Set("token", "flagtok"); err != nil {
			t.Fatalf("set token: %v", err)
		}
		r, err := Resolve(root)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if r.APIURL != "flag" || r.Token != "flagtok" {
			t.Fatalf("unexpected %+v", r)
		}
	})

	t.Run("profile flag", func(t *testing.T) {
		cfg.Profiles["p2"] = Profile{Name: "p2", APIURL: "p2", Token: "p2tok"}
		if err := Save(cfg); err != nil {
			t.Fatalf("save: %v", err)
		}
		root := newRoot()
		if err := root.PersistentFlags().Set("profile", "p2"); err != nil {
			t.Fatalf("set profile: %v", err)
		}
		r, err := Resolve(root)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if r.APIURL != "p2" || r.Token != "p2tok" || r.Profile != "p2" {
			t.Fatalf("unexpected %+v", r)
		}
	})
}

func TestResolveMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("CRM_CONFIG", "")
	t.Setenv("CRM_API_URL", "")
	t.Setenv("CRM_TOKEN", "")
	t.Setenv("CRM_DSN", "")

	root := newRoot()
	if _, err := Resolve(root); !errors.Is(err, ErrNoAPIURL) {
		t.Fatalf("want ErrNoAPIURL, got %v", err)
	}
	if err := root.PersistentFlags().Set("api-url", "http://api/"); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(root); !errors.Is(err, ErrNoToken) {
		t.Fatalf("want ErrNoToken, got %v", err)
	}
	if _, err := ResolveDB(root); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("want ErrNoDSN, got %v", err)
	}
	t.Setenv("CRM_DSN", "postgres://db/crm")
	r, err := ResolveDB(root)
	if err != nil {
		t.Fatalf("resolve db: %v", err)
	}
	if r.DSN != "postgres://db/crm" || r.TablePrefix != "crm_" || r.APIURL != "http://api" {
		t.Fatalf("unexpected %+v", r)
	}
}
