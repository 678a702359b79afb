package auth

import (
	"errors"
	"testing"
)

func TestResolver_GlobCaseInsensitive(t *testing.T) {
	rules := []Rule{{Glob: "MYGROUP*", Profile: "mygroup"}}
	profiles := map[string]Profile{
		"mygroup": {Username: "admin", Password: "secret"},
	}
	r, err := NewResolver(rules, profiles)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	params, err := r.Resolve("mygroup07", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if params.Username != "admin" || params.Password != "secret" {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestResolver_EmptyProfileMeansNoAuthRequested(t *testing.T) {
	rules := []Rule{{Glob: "noauth*", Profile: ""}}
	r, err := NewResolver(rules, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	_, err = r.Resolve("noauth", "")
	if err != ErrNoAuthRequested {
		t.Fatalf("expected ErrNoAuthRequested, got %v", err)
	}
}

func TestResolver_DeviceTypeThenDefaultFallback(t *testing.T) {
	profiles := map[string]Profile{
		"hp":      {Username: "admin", Password: "hp-pw"},
		"default": {Username: "fallback", Password: "def-pw"},
	}
	r, err := NewResolver(nil, profiles)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	// Matches the device-type profile directly.
	params, err := r.Resolve("sw7", "hp")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if params.Username != "admin" {
		t.Fatalf("expected hp profile, got %+v", params)
	}

	// device_type has no matching profile: must fall through to "default",
	// not silently fail (the bug this resolver must not reproduce).
	params, err = r.Resolve("sw8", "juniper")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if params.Username != "fallback" {
		t.Fatalf("expected default fallback profile, got %+v", params)
	}
}

func TestResolver_NoMatchIsConfigError(t *testing.T) {
	r, err := NewResolver(nil, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	_, err = r.Resolve("sw9", "juniper")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

func TestNewResolver_RejectsMalformedProfile(t *testing.T) {
	cases := map[string]Profile{
		"missing-creds": {Username: "admin"},
	}
	if _, err := NewResolver(nil, cases); err == nil {
		t.Fatal("expected ConfigError for profile with no password or key")
	}

	noUser := map[string]Profile{
		"missing-user": {Password: "x"},
	}
	if _, err := NewResolver(nil, noUser); err == nil {
		t.Fatal("expected ConfigError for profile with no username")
	}
}

func TestResolver_FirstGlobMatchWins(t *testing.T) {
	rules := []Rule{
		{Glob: "sw*", Profile: "general"},
		{Glob: "sw1", Profile: "specific"},
	}
	profiles := map[string]Profile{
		"general":  {Username: "gen", Password: "g"},
		"specific": {Username: "spec", Password: "s"},
	}
	r, err := NewResolver(rules, profiles)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	params, err := r.Resolve("sw1", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if params.Username != "gen" {
		t.Fatalf("expected first declared rule to win, got %q", params.Username)
	}
}
