// Package config holds runtime settings for the authentication bridge:
// defaults first, then environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPagesPerJob bounds one background job's batch when the configured
// value is unusable.
const DefaultPagesPerJob = 300

// GroupImportPolicy controls which remote groups are applied locally.
// Disabled imports nothing; Unrestricted imports every locally-configured
// non-implicit group; otherwise only names in Allowed pass.
type GroupImportPolicy struct {
	Enabled      bool
	Unrestricted bool
	Allowed      []string
}

type Config struct {
	// RemoteAPIURL is the base URL of the remote wiki's api.php endpoint.
	RemoteAPIURL string
	// ServerURL is sent as loginreturnurl during modern client login.
	ServerURL string
	// RemoteTimeout bounds a single remote API call.
	RemoteTimeout time.Duration

	// DisableAccountCreation switches to import-only mode: logins only
	// activate pre-existing stub accounts instead of creating new ones.
	DisableAccountCreation bool
	// AllowPasswordChange offers an optional password reset after a
	// successful import.
	AllowPasswordChange bool

	ImportWatchlist  bool
	ImportGroups     GroupImportPolicy
	ImportOptions    []string
	SkipOptions      []string
	ReattributeEdits bool

	// UpdateRowsPerJob is the batch bound for watchlist and reattribution
	// jobs. Values <= 0 fall back to DefaultPagesPerJob with a warning.
	UpdateRowsPerJob int

	// Groups and ImplicitGroups describe the local group configuration;
	// implicit groups are never importable.
	Groups         []string
	ImplicitGroups []string
	// AllowedSkins restricts imported "skin" preference values.
	AllowedSkins []string
	// DefaultUserOptions is the locally valid option key space with its
	// default values.
	DefaultUserOptions map[string]string

	// CredentialStashTTL bounds how long a stashed plaintext credential may
	// survive between authentication and account materialization.
	CredentialStashTTL time.Duration
}

func (c *Config) LoadDefaults() {
	c.RemoteTimeout = 30 * time.Second
	c.AllowPasswordChange = true
	c.ImportWatchlist = true
	c.ImportGroups = GroupImportPolicy{Enabled: true, Unrestricted: true}
	c.ImportOptions = []string{"*"}
	c.SkipOptions = []string{}
	c.ReattributeEdits = true
	c.UpdateRowsPerJob = DefaultPagesPerJob
	c.Groups = []string{"bot", "sysop", "bureaucrat", "interface-admin", "suppress"}
	c.ImplicitGroups = []string{"*", "user", "autoconfirmed"}
	c.AllowedSkins = []string{"vector", "vector-2022", "monobook", "timeless", "minerva"}
	c.DefaultUserOptions = map[string]string{
		"skin":                 "vector",
		"language":             "en",
		"gender":               "unknown",
		"date":                 "default",
		"timecorrection":       "System|0",
		"watchdefault":         "0",
		"watchcreations":       "1",
		"enotifwatchlistpages": "0",
		"hideminor":            "0",
		"rcdays":               "7",
		"wllimit":              "250",
		"searchlimit":          "20",
	}
	c.CredentialStashTTL = 5 * time.Minute
}

// Load builds a Config from defaults overlaid with environment variables.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	cfg.RemoteAPIURL = getEnv("REMOTE_API_URL", cfg.RemoteAPIURL)
	cfg.ServerURL = getEnv("SERVER_URL", cfg.ServerURL)
	cfg.RemoteTimeout = getDurationEnv("REMOTE_TIMEOUT_SECONDS", cfg.RemoteTimeout)

	cfg.DisableAccountCreation = getBoolEnv("DISABLE_ACCOUNT_CREATION", cfg.DisableAccountCreation)
	cfg.AllowPasswordChange = getBoolEnv("ALLOW_PASSWORD_CHANGE", cfg.AllowPasswordChange)
	cfg.ImportWatchlist = getBoolEnv("IMPORT_WATCHLIST", cfg.ImportWatchlist)
	cfg.ReattributeEdits = getBoolEnv("REATTRIBUTE_EDITS", cfg.ReattributeEdits)
	cfg.UpdateRowsPerJob = getIntEnv("UPDATE_ROWS_PER_JOB", cfg.UpdateRowsPerJob)

	if raw, ok := os.LookupEnv("IMPORT_GROUPS"); ok {
		cfg.ImportGroups = parseGroupPolicy(raw)
	}
	if raw, ok := os.LookupEnv("IMPORT_OPTIONS"); ok {
		cfg.ImportOptions = splitList(raw)
	}
	if raw, ok := os.LookupEnv("SKIP_OPTIONS"); ok {
		cfg.SkipOptions = splitList(raw)
	}
	if raw, ok := os.LookupEnv("WIKI_GROUPS"); ok {
		cfg.Groups = splitList(raw)
	}
	if raw, ok := os.LookupEnv("IMPLICIT_GROUPS"); ok {
		cfg.ImplicitGroups = splitList(raw)
	}
	if raw, ok := os.LookupEnv("ALLOWED_SKINS"); ok {
		cfg.AllowedSkins = splitList(raw)
	}

	return cfg
}

// PagesPerJob returns the effective job batch bound, warning once per call
// site when the configured value is unusable.
func (c *Config) PagesPerJob(logger logrus.FieldLogger) int {
	if c.UpdateRowsPerJob > 0 {
		return c.UpdateRowsPerJob
	}
	if logger != nil {
		logger.WithField("configured", c.UpdateRowsPerJob).
			Warnf("UPDATE_ROWS_PER_JOB must be positive, using default %d", DefaultPagesPerJob)
	}
	return DefaultPagesPerJob
}

// ValidGroups is the locally importable group set: configured groups minus
// implicit ones, further restricted by the import policy.
func (c *Config) ValidGroups() []string {
	if !c.ImportGroups.Enabled {
		return nil
	}

	implicit := make(map[string]struct{}, len(c.ImplicitGroups))
	for _, g := range c.ImplicitGroups {
		implicit[g] = struct{}{}
	}

	allowed := map[string]struct{}{}
	if !c.ImportGroups.Unrestricted {
		for _, g := range c.ImportGroups.Allowed {
			allowed[g] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	valid := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := implicit[g]; ok {
			continue
		}
		if !c.ImportGroups.Unrestricted {
			if _, ok := allowed[g]; !ok {
				continue
			}
		}
		valid = append(valid, g)
	}
	return valid
}

func parseGroupPolicy(raw string) GroupImportPolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "false", "0", "none":
		return GroupImportPolicy{}
	case "*", "true", "all":
		return GroupImportPolicy{Enabled: true, Unrestricted: true}
	}
	return GroupImportPolicy{Enabled: true, Allowed: splitList(raw)}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getBoolEnv(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
