package tokenkeep

import (
	"errors"
	"time"
)

// Config defines a public type used by tokenkeep APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token   TokenConfig
	Store   StoreConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the signing primitive. Secret is the HS256
// symmetric key provisioned out of band; rotating it invalidates every
// outstanding credential unless the previous key stays listed in
// VerifyKeys for a grace window.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Secret       []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	KeyID        string
	VerifyKeys   map[string][]byte
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig configures the built-in Redis record store. RetentionWindow
// is how long revoked/expired records stay inspectable past credential
// expiry. Ignored when a custom [record.Store] is injected.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix     string
	RetentionWindow time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by tokenkeep APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by tokenkeep APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the documented defaults: 15 minute access TTL, 30
// day refresh TTL, 30 day record retention, audit and metrics enabled with
// a drop-if-full audit buffer. The signing secret has no default and must
// be provided.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   30 * 24 * time.Hour,
			MaxFutureIAT: 10 * time.Minute,
		},
		Store: StoreConfig{
			RedisPrefix:     "tk",
			RetentionWindow: 30 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.VerifyKeys = cloneKeyMap(cfg.Token.VerifyKeys)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneKeyMap(keys map[string][]byte) map[string][]byte {
	if keys == nil {
		return nil
	}
	out := make(map[string][]byte, len(keys))
	for kid, key := range keys {
		out[kid] = cloneBytes(key)
	}
	return out
}

// Validate checks configuration invariants that [Builder.Build] relies on.
//
// Validate may return an error when input validation fails.
func (c *Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token.AccessTTL must be positive")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token.RefreshTTL must be positive")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("Token.AccessTTL must be shorter than Token.RefreshTTL")
	}
	if len(c.Token.Secret) == 0 {
		return errors.New("Token.Secret is required")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token.Leeway out of range")
	}
	if c.Store.RetentionWindow < 0 {
		return errors.New("Store.RetentionWindow must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}
