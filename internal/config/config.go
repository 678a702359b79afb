// Package config loads the grouped key-value configuration file
// described in §6: a Networkmap section, an SSH section, an ordered
// Auth rule list, and one Auth.<profile> section per credential bundle.
// Grounded on the daemon's DefaultConfig/LoadConfig/validate shape, but
// reads ini via gopkg.in/ini.v1 rather than YAML — this file format
// keys each profile by its own section name, which ini's section model
// expresses directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/osiriscare/netmapd/internal/auth"
)

// Config is the fully parsed, validated configuration for one crawl run.
type Config struct {
	SourceAddress string
	OutputFile    string
	LogFile       string

	SSHTimeout         time.Duration
	MaxBytesToReceive  int
	MaxConnectAttempts int

	Resolver *auth.Resolver

	// PostgresDSN is the connection string for the optional incremental
	// persistence sink (internal/store). Empty means the [Postgres]
	// section was absent and the crawl runs memory-only, matching the
	// original implementation exactly.
	PostgresDSN string
}

// defaultSSHTimeout and defaultMaxBytes mirror the session driver's own
// fallbacks (internal/session.Driver), used when the SSH section omits
// them rather than duplicating a second set of magic numbers.
const (
	defaultSSHTimeout  = 10.0 // seconds
	defaultMaxBytes    = 1024
	defaultMaxAttempts = 3
)

// Load reads path and returns a validated Config, or an error describing
// the first configuration problem found. A malformed or unreadable
// configuration file is the one class of error that halts the whole
// program rather than being recorded per-host (§7).
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	networkmap := file.Section("Networkmap")
	protocol := networkmap.Key("Protocol").String()
	if !strings.EqualFold(protocol, "LLDP") {
		return nil, fmt.Errorf("config: Networkmap.Protocol must be %q, got %q", "LLDP", protocol)
	}

	sourceAddress := networkmap.Key("SourceAddress").String()
	if sourceAddress == "" {
		return nil, fmt.Errorf("config: Networkmap.SourceAddress is required")
	}

	sshSection := file.Section("SSH")
	timeoutSecs := sshSection.Key("Timeout").MustFloat64(defaultSSHTimeout)
	maxBytes := sshSection.Key("MaximumBytesToReceive").MustInt(defaultMaxBytes)
	maxAttempts := sshSection.Key("MaximumAttempts").MustInt(defaultMaxAttempts)

	rules, err := loadAuthRules(file)
	if err != nil {
		return nil, err
	}
	profiles, err := loadAuthProfiles(file)
	if err != nil {
		return nil, err
	}
	resolver, err := auth.NewResolver(rules, profiles)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Config{
		SourceAddress:      sourceAddress,
		OutputFile:         networkmap.Key("OutputFile").String(),
		LogFile:            networkmap.Key("LogFile").String(),
		SSHTimeout:         time.Duration(timeoutSecs * float64(time.Second)),
		MaxBytesToReceive:  maxBytes,
		MaxConnectAttempts: maxAttempts,
		Resolver:           resolver,
		PostgresDSN:        postgresDSN(file),
	}, nil
}

// postgresDSN reads the optional [Postgres] section's DSN key. An
// absent section returns "", which internal/store's caller treats as
// "do not open a store" — the incremental persistence sink is additive,
// never required (SPEC_FULL §4).
func postgresDSN(file *ini.File) string {
	section, err := file.GetSection("Postgres")
	if err != nil {
		return ""
	}
	return section.Key("DSN").String()
}

// loadAuthRules reads the ordered glob = profile_name entries from the
// Auth section. ini.v1 preserves key declaration order within a section,
// which §4.1's "iterate in declaration order" resolution rule depends on.
func loadAuthRules(file *ini.File) ([]auth.Rule, error) {
	section, err := file.GetSection("Auth")
	if err != nil {
		return nil, fmt.Errorf("config: Auth section is required")
	}

	var rules []auth.Rule
	for _, key := range section.Keys() {
		rules = append(rules, auth.Rule{Glob: key.Name(), Profile: key.Value()})
	}
	return rules, nil
}

// loadAuthProfiles reads every Auth.<profile> section into a Profile
// keyed by the part of the section name after the first dot.
func loadAuthProfiles(file *ini.File) (map[string]auth.Profile, error) {
	profiles := make(map[string]auth.Profile)

	for _, section := range file.Sections() {
		name := section.Name()
		if !strings.HasPrefix(name, "Auth.") {
			continue
		}
		profileName := strings.TrimPrefix(name, "Auth.")
		profiles[profileName] = auth.Profile{
			Username: section.Key("username").String(),
			Password: section.Key("password").String(),
			KeyPath:  section.Key("key").String(),
		}
	}

	return profiles, nil
}
