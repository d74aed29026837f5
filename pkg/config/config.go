// Package config loads the proxy configuration: defaults, an optional YAML
// file and environment overrides, in that order.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/fpl-proxy/pkg/pipeline"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
	"gopkg.in/yaml.v3"
)

// Snapshot backends.
const (
	BackendDir   = "dir"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Defaults.
const (
	DefaultPort         = 8080
	DefaultPrimaryURL   = "https://fantasy.premierleague.com/api"
	DefaultSecondaryURL = "https://fpl-static-data.vercel.app"
	DefaultSeason       = "2025-2026"
	DefaultUserAgent    = "fpl-proxy/1.0"
	DefaultSnapshotDir  = "data"
	DefaultRedisURL     = "localhost:6379"
)

// Duration is a time.Duration written as a Go duration string ("10m", "0s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete proxy configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Log      LogConfig               `yaml:"log"`
	Upstream UpstreamConfig          `yaml:"upstream"`
	Snapshot SnapshotConfig          `yaml:"snapshot"`
	Cache    CacheConfig             `yaml:"cache"`
	Families map[string]FamilyConfig `yaml:"families"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// UpstreamConfig configures the remote sources.
type UpstreamConfig struct {
	PrimaryURL   string   `yaml:"primaryURL"`
	SecondaryURL string   `yaml:"secondaryURL"`
	Season       string   `yaml:"season"`
	UserAgent    string   `yaml:"userAgent"`
	Timeout      Duration `yaml:"timeout"`
}

// SnapshotConfig selects where static snapshots are read from.
type SnapshotConfig struct {
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	RedisURL string `yaml:"redisURL"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	MaxEntries int  `yaml:"maxEntries"`
	Warm       bool `yaml:"warm"`
}

// FamilyConfig is the cache policy and source chain of one resource family.
// A nil TTL or empty chain keeps the default. A default chain only lists the
// sources the rest of the configuration enables.
type FamilyConfig struct {
	TTL   *Duration `yaml:"ttl"`
	Chain []string  `yaml:"chain"`
}

// DefaultChain returns the source chain a family uses unless configured:
// bootstrap and fixtures fall back to the season archive and the snapshot,
// live-event to the snapshot, everything else is served by the primary only.
func DefaultChain(family resource.Family) []string {
	switch family {
	case resource.FamilyBootstrap, resource.FamilyFixtures:
		return []string{upstream.SourcePrimary, upstream.SourceSecondary, upstream.SourceSnapshot}
	case resource.FamilyLiveEvent:
		return []string{upstream.SourcePrimary, upstream.SourceSnapshot}
	default:
		return []string{upstream.SourcePrimary}
	}
}

// DefaultTTL returns the cache TTL a family uses unless configured.
func DefaultTTL(family resource.Family) time.Duration {
	return pipeline.DefaultPolicies()[family].TTL
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Server: ServerConfig{Port: DefaultPort},
		Log:    LogConfig{Level: "info"},
		Upstream: UpstreamConfig{
			PrimaryURL:   DefaultPrimaryURL,
			SecondaryURL: DefaultSecondaryURL,
			Season:       DefaultSeason,
			UserAgent:    DefaultUserAgent,
			Timeout:      Duration(upstream.DefaultTimeout),
		},
		Snapshot: SnapshotConfig{
			Backend:  BackendDir,
			Dir:      DefaultSnapshotDir,
			RedisURL: DefaultRedisURL,
		},
		Families: make(map[string]FamilyConfig),
	}
	for family, policy := range pipeline.DefaultPolicies() {
		ttl := Duration(policy.TTL)
		cfg.Families[string(family)] = FamilyConfig{TTL: &ttl}
	}
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.merge(b); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge decodes YAML over the current values. Families the file names only
// partially keep their defaults for the omitted fields.
func (c *Config) merge(b []byte) error {
	defaults := c.Families
	c.Families = nil

	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	merged := make(map[string]FamilyConfig, len(defaults))
	for name, fc := range defaults {
		merged[name] = fc
	}
	for name, fc := range c.Families {
		base := merged[name]
		if fc.TTL != nil {
			base.TTL = fc.TTL
		}
		if len(fc.Chain) > 0 {
			base.Chain = fc.Chain
		}
		merged[name] = base
	}
	c.Families = merged
	return nil
}

// applyEnv overrides values from environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	env := func(key string) (string, bool) {
		v := strings.TrimSpace(getenv(key))
		return v, v != ""
	}

	if v, ok := env("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := env("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := env("LOG_PRETTY"); ok {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = pretty
	}
	if v, ok := env("FPL_PRIMARY_URL"); ok {
		c.Upstream.PrimaryURL = v
	}
	if v, ok := env("FPL_SECONDARY_URL"); ok {
		c.Upstream.SecondaryURL = v
	}
	if v, ok := env("FPL_SEASON"); ok {
		c.Upstream.Season = v
	}
	if v, ok := env("FPL_USER_AGENT"); ok {
		c.Upstream.UserAgent = v
	}
	if v, ok := env("UPSTREAM_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UPSTREAM_TIMEOUT: %w", err)
		}
		c.Upstream.Timeout = Duration(d)
	}
	if v, ok := env("SNAPSHOT_BACKEND"); ok {
		c.Snapshot.Backend = strings.ToLower(v)
	}
	if v, ok := env("SNAPSHOT_DIR"); ok {
		c.Snapshot.Dir = v
	}
	if v, ok := env("REDIS_URL"); ok {
		c.Snapshot.RedisURL = v
	}
	if v, ok := env("CACHE_MAX_ENTRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CACHE_MAX_ENTRIES: %w", err)
		}
		c.Cache.MaxEntries = n
	}
	if v, ok := env("WARM_CACHE"); ok {
		warm, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WARM_CACHE: %w", err)
		}
		c.Cache.Warm = warm
	}
	return nil
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if err := checkURL("upstream.primaryURL", c.Upstream.PrimaryURL); err != nil {
		return err
	}
	if c.Upstream.SecondaryURL != "" {
		if err := checkURL("upstream.secondaryURL", c.Upstream.SecondaryURL); err != nil {
			return err
		}
		if c.Upstream.Season == "" {
			return fmt.Errorf("upstream.season is required with a secondary url")
		}
	}
	if c.Upstream.Timeout.Std() <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.maxEntries must not be negative")
	}

	switch c.Snapshot.Backend {
	case BackendDir:
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir is required for the %s backend", BackendDir)
		}
	case BackendRedis:
		if c.Snapshot.RedisURL == "" {
			return fmt.Errorf("snapshot.redisURL is required for the %s backend", BackendRedis)
		}
	case BackendNone:
	default:
		return fmt.Errorf("snapshot.backend %q: want %s, %s or %s", c.Snapshot.Backend, BackendDir, BackendRedis, BackendNone)
	}

	for name, fc := range c.Families {
		family, err := resource.ParseFamily(name)
		if err != nil {
			return fmt.Errorf("families: %w", err)
		}
		if fc.TTL != nil && fc.TTL.Std() < 0 {
			return fmt.Errorf("families.%s.ttl must not be negative", family)
		}
		if len(fc.Chain) > 0 {
			if err := c.checkChain(family, fc.Chain); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c Config) checkChain(family resource.Family, chain []string) error {
	if chain[0] != upstream.SourcePrimary {
		return fmt.Errorf("families.%s.chain must start with %s", family, upstream.SourcePrimary)
	}
	for i, name := range chain {
		if slices.Index(chain, name) != i {
			return fmt.Errorf("families.%s.chain lists %s twice", family, name)
		}
		switch name {
		case upstream.SourcePrimary:
		case upstream.SourceSecondary, upstream.SourceSnapshot:
			if !c.enabled(name) {
				return fmt.Errorf("families.%s.chain uses %s but %s", family, name, c.disabledReason(name))
			}
		default:
			return fmt.Errorf("families.%s.chain: unknown source %q", family, name)
		}
	}
	return nil
}

// enabled reports whether the source called name can be built.
func (c Config) enabled(name string) bool {
	switch name {
	case upstream.SourceSecondary:
		return c.Upstream.SecondaryURL != ""
	case upstream.SourceSnapshot:
		return c.Snapshot.Backend != BackendNone
	}
	return name == upstream.SourcePrimary
}

func (c Config) disabledReason(name string) string {
	if name == upstream.SourceSecondary {
		return "no secondary url is configured"
	}
	return "the snapshot backend is " + BackendNone
}

// Family returns the effective TTL and chain of a family. Default chains
// skip sources that are disabled.
func (c Config) Family(family resource.Family) (time.Duration, []string) {
	ttl := DefaultTTL(family)
	var chain []string
	if fc, ok := c.Families[string(family)]; ok {
		if fc.TTL != nil {
			ttl = fc.TTL.Std()
		}
		chain = fc.Chain
	}
	if len(chain) == 0 {
		for _, name := range DefaultChain(family) {
			if c.enabled(name) {
				chain = append(chain, name)
			}
		}
	}
	return ttl, chain
}

func checkURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
