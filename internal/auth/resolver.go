// Package auth resolves SSH credentials for a discovered hostname from a
// small rule language: ordered hostname globs mapping to named credential
// profiles, with a device-type/default fallback when no glob matches.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoAuthRequested is returned when a glob rule matched but named an
// empty profile: the caller should skip this host entirely rather than
// attempt a connection.
var ErrNoAuthRequested = errors.New("auth: no auth requested for host")

// ConfigError reports a malformed rule or profile definition. One returned
// by NewResolver (through config.Load) halts the whole program (§7); one
// returned by Resolve during the crawl is recorded by the explorer as an
// UNREACHABLE host and does not halt the crawl.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "auth: " + e.Reason }

// Rule is one ordered (hostname-glob, profile-name) pair from the
// `Auth` config section. An empty Profile means "explicitly skip".
type Rule struct {
	Glob    string
	Profile string
}

// Profile is a named credential bundle from an `Auth.<profile>` section.
// Exactly one of {Password, KeyPath} must be set, or both.
type Profile struct {
	Username string
	Password string
	KeyPath  string
}

// validate enforces the three allowed field combinations: any profile
// missing a username, or with neither password nor key, is malformed.
func (p Profile) validate(name string) error {
	if p.Username == "" {
		return &ConfigError{Reason: fmt.Sprintf("profile %q: username is required", name)}
	}
	if p.Password == "" && p.KeyPath == "" {
		return &ConfigError{Reason: fmt.Sprintf("profile %q: must set password, key, or both", name)}
	}
	return nil
}

// Params is the credential bundle handed to the session driver. KeyPEM is
// populated only when the profile resolved a private key.
type Params struct {
	Username string
	Password string // empty when the profile carries no password
	KeyPEM   []byte // nil when the profile carries no key
}

// Resolver holds the parsed Auth rules and profiles. Once built it is
// read-only and may be shared across crawl workers without locking.
type Resolver struct {
	rules    []Rule
	profiles map[string]Profile
}

// NewResolver validates every profile up front so that a malformed
// configuration fails before the crawl starts, not mid-crawl on first use.
func NewResolver(rules []Rule, profiles map[string]Profile) (*Resolver, error) {
	for name, p := range profiles {
		if err := p.validate(name); err != nil {
			return nil, err
		}
	}
	return &Resolver{rules: rules, profiles: profiles}, nil
}

// Resolve implements get_params(hostname, device_type) per §4.1:
//
//  1. walk the glob rules in declaration order, case-insensitively; on the
//     first match, an empty profile name means ErrNoAuthRequested, else
//     resolve that profile (a missing profile is a ConfigError);
//  2. if no glob matched, try a profile literally named device_type, then
//     a profile named "default";
//  3. if neither exists, ConfigError.
//
// Note the two-step fallback in (2) performs two independent lookups —
// device_type first, then "default" — rather than reusing one computed
// section name across both attempts.
func (r *Resolver) Resolve(hostname, deviceType string) (*Params, error) {
	lowerHost := strings.ToLower(hostname)

	for _, rule := range r.rules {
		if !globMatch(strings.ToLower(rule.Glob), lowerHost) {
			continue
		}
		if rule.Profile == "" {
			return nil, ErrNoAuthRequested
		}
		profile, ok := r.profiles[rule.Profile]
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("rule %q -> %q: no such profile", rule.Glob, rule.Profile)}
		}
		return buildParams(profile)
	}

	if deviceType != "" {
		if profile, ok := r.profiles[deviceType]; ok {
			return buildParams(profile)
		}
	}
	if profile, ok := r.profiles["default"]; ok {
		return buildParams(profile)
	}

	return nil, &ConfigError{Reason: fmt.Sprintf("no glob matched %q and no %q or \"default\" profile exists", hostname, deviceType)}
}

func buildParams(p Profile) (*Params, error) {
	params := &Params{Username: p.Username, Password: p.Password}
	if p.KeyPath == "" {
		return params, nil
	}

	expanded, err := expandHome(p.KeyPath)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("expand key path %q: %v", p.KeyPath, err)}
	}
	pem, err := os.ReadFile(expanded)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("read key %q: %v", expanded, err)}
	}
	params.KeyPEM = pem
	return params, nil
}

// expandHome resolves the "~/" shorthand for the current user's home
// directory; any other path is returned unchanged.
func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return home, nil
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}

// globMatch reports whether hostname matches the shell-style glob pattern
// (*, ?, [...]), evaluated over plain strings with no path-separator
// semantics — hostnames have no "/" to worry about.
func globMatch(pattern, hostname string) bool {
	ok, err := path.Match(pattern, hostname)
	if err != nil {
		return false
	}
	return ok
}
