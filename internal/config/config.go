// Package config holds the service's YAML-backed configuration, grouped the
// way the teacher groups per-component config (setup/config/config_*.go):
// each section owns a Defaults(opts) method and is embedded into the
// top-level Config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultOpts selects which default profile a section's Defaults method
// should apply, mirroring the teacher's DefaultOpts (used to distinguish a
// "generate me a sample config" run from a normal monolith boot).
type DefaultOpts struct {
	Generate bool
}

// Config is the root configuration object loaded from a single YAML file.
type Config struct {
	Postgres    Postgres    `yaml:"postgres"`
	RateLimiting RateLimiting `yaml:"rate_limiting"`
	Authz       Authz       `yaml:"authz"`
	Broker      Broker      `yaml:"broker"`
	S3          S3          `yaml:"s3"`
	JetStream   JetStream   `yaml:"jet_stream"`
	Vacuum      Vacuum      `yaml:"vacuum"`
	Adjust      Adjust      `yaml:"adjust"`
	MaxPayloadBytes int     `yaml:"max_payload_bytes"`
}

// Postgres configures the two pools referenced in spec.md §5: a required
// read-write pool and an optional read-only pool that falls back to the
// read-write DSN when unset.
type Postgres struct {
	RWDSN           string        `yaml:"rw_dsn"`
	RODSN           string        `yaml:"ro_dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (c *Postgres) Defaults(opts DefaultOpts) {
	c.MaxOpenConns = 10
	c.MaxIdleConns = 4
	c.ConnMaxLifetime = 30 * time.Minute
}

// ReadOnlyDSN returns RODSN, falling back to RWDSN per spec.md §5.
func (c *Postgres) ReadOnlyDSN() string {
	if c.RODSN != "" {
		return c.RODSN
	}
	return c.RWDSN
}

// RateLimiting configures the admission-side request limiter, grounded on
// internal/httputil/rate_limiting.go's limiterConfig shape.
type RateLimiting struct {
	Enabled               bool                       `yaml:"enabled"`
	Threshold             int64                      `yaml:"threshold"`
	CooloffMS             int64                      `yaml:"cooloff_ms"`
	PerEndpointOverrides  map[string]RateLimitOverride `yaml:"per_endpoint_overrides"`
	ExemptUserIDs         []string                   `yaml:"exempt_user_ids"`
	ExemptIPAddresses     []string                   `yaml:"exempt_ip_addresses"`
}

type RateLimitOverride struct {
	Threshold int64 `yaml:"threshold"`
	CooloffMS int64 `yaml:"cooloff_ms"`
}

func (c *RateLimiting) Defaults(opts DefaultOpts) {
	c.Enabled = true
	c.Threshold = 10
	c.CooloffMS = 1000
}

// Authz configures the external authorization engine contract (spec.md §1).
type Authz struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	BanTTL    time.Duration `yaml:"ban_ttl"`
}

func (c *Authz) Defaults(opts DefaultOpts) {
	c.Timeout = 5 * time.Second
	c.CacheTTL = 30 * time.Second
	c.BanTTL = 24 * time.Hour
}

// Broker configures the external broker collaborator (EnterRoom /
// EnterBroadcastRoom contracts, spec.md §4.C).
type Broker struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Broker) Defaults(opts DefaultOpts) {
	c.Timeout = 5 * time.Second
}

// S3 configures the external object-storage dump target.
type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func (c *S3) Defaults(opts DefaultOpts) {}

// JetStream configures the NATS JetStream connection that the notification
// outbox puller republishes outbox rows to. The detached async tasks
// (room-adjust, edition-commit, dump-events) run as in-process goroutines and
// do not use it.
type JetStream struct {
	URLs   []string `yaml:"urls"`
	Prefix string   `yaml:"prefix"`
}

func (c *JetStream) Defaults(opts DefaultOpts) {
	c.URLs = []string{"nats://localhost:4222"}
	c.Prefix = "eventd"
}

// Vacuum configures the history-retention policy (spec.md §4.I).
type Vacuum struct {
	MaxHistorySize       int           `yaml:"max_history_size"`
	MaxHistoryLifetime    time.Duration `yaml:"max_history_lifetime"`
	MaxDeletedLifetime    time.Duration `yaml:"max_deleted_lifetime"`
}

func (c *Vacuum) Defaults(opts DefaultOpts) {
	c.MaxHistorySize = 10
	c.MaxHistoryLifetime = 30 * 24 * time.Hour
	c.MaxDeletedLifetime = 7 * 24 * time.Hour
}

// Adjust configures defaults for the room-adjust engine (spec.md §4.E).
type Adjust struct {
	MinSegmentLengthMS int64 `yaml:"min_segment_length_ms"`
}

func (c *Adjust) Defaults(opts DefaultOpts) {
	c.MinSegmentLengthMS = 0
}

// Defaults populates every section with its defaults.
func (c *Config) Defaults(opts DefaultOpts) {
	c.Postgres.Defaults(opts)
	c.RateLimiting.Defaults(opts)
	c.Authz.Defaults(opts)
	c.Broker.Defaults(opts)
	c.S3.Defaults(opts)
	c.JetStream.Defaults(opts)
	c.Vacuum.Defaults(opts)
	c.Adjust.Defaults(opts)
	c.MaxPayloadBytes = 64 * 1024
}

// Load reads and parses a YAML config file at path, applying defaults first
// so a sparse file only needs to override what it cares about.
func Load(path string) (*Config, error) {
	var c Config
	c.Defaults(DefaultOpts{})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.Postgres.RWDSN == "" {
		return nil, fmt.Errorf("config: postgres.rw_dsn is required")
	}
	return &c, nil
}
