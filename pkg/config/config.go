// Package config manages fieldctl connection profiles stored in
// ~/.fieldctl/config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Profile holds the settings for one API / database target.
type Profile struct {
	Name     string `json:"name"`
	APIURL   string `json:"apiUrl,omitempty"`
	Token    string `json:"token,omitempty"`
	Insecure bool   `json:"insecure,omitempty"`
	// DSN and TablePrefix are used by commands that talk to the database
	// directly, such as db migrate.
	DSN         string `json:"dsn,omitempty"`
	TablePrefix string `json:"tablePrefix,omitempty"`
}

type File struct {
	Active   string             `json:"active"`
	Profiles map[string]Profile `json:"profiles"`
	Version  int                `json:"version"`
}

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrUnknownKey     = errors.New("unknown config key")
)

// Keys lists the settable profile keys.
func Keys() []string {
	return []string{"api-url", "token", "insecure", "dsn", "table-prefix"}
}

// Path returns the config file location. CRM_CONFIG overrides the default
// ~/.fieldctl/config.json.
func Path() (string, error) {
	if p := os.Getenv("CRM_CONFIG"); p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return "", err
		}
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".fieldctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func Load() (*File, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{Active: "default", Profiles: map[string]Profile{}, Version: 1}, nil
		}
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	if f.Active == "" {
		f.Active = "default"
	}
	if f.Version == 0 {
		f.Version = 1
	}
	return &f, nil
}

// Save writes f atomically with owner-only permissions; profiles carry
// tokens.
func Save(f *File) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Set assigns key on the named profile, creating the profile if needed.
func (f *File) Set(profile, key, value string) error {
	if profile == "" {
		profile = f.Active
	}
	p := f.Profiles[profile]
	p.Name = profile
	switch key {
	case "api-url":
		p.APIURL = strings.TrimRight(value, "/")
	case "token":
		p.Token = value
	case "insecure":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		p.Insecure = b
	case "dsn":
		p.DSN = value
	case "table-prefix":
		p.TablePrefix = value
	default:
		return fmt.Errorf("%w: %s (want one of %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	f.Profiles[profile] = p
	return nil
}

// Use makes name the active profile.
func (f *File) Use(name string) error {
	if _, ok := f.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	f.Active = name
	return nil
}

// Names returns the profile names in sorted order.
func (f *File) Names() []string {
	out := make([]string, 0, len(f.Profiles))
	for n := range f.Profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
