package tokenkeep

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/soluslab/tokenkeep/internal/flows"
	"github.com/soluslab/tokenkeep/record"
	"github.com/soluslab/tokenkeep/token"
)

// Builder defines a public type used by tokenkeep APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client
	store  record.Store

	auditSink   AuditSink
	rateLimiter RotationRateLimiter

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis provides the Redis client backing the built-in record store.
// Ignored when [Builder.WithStore] supplies a custom store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithStore injects a custom [record.Store], replacing the built-in Redis
// one. Use [record.NewPostgresStore] for the SQL-backed implementation.
func (b *Builder) WithStore(store record.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRateLimiter installs the optional external rotation rate limiter.
func (b *Builder) WithRateLimiter(rl RotationRateLimiter) *Builder {
	b.rateLimiter = rl
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("record store required: provide WithRedis or WithStore")
		}
		store = record.NewRedisStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.RetentionWindow)
	}

	signer, err := token.NewManager(token.Config{
		AccessTTL:    cfg.Token.AccessTTL,
		RefreshTTL:   cfg.Token.RefreshTTL,
		Secret:       cloneBytes(cfg.Token.Secret),
		Issuer:       cfg.Token.Issuer,
		Audience:     cfg.Token.Audience,
		Leeway:       cfg.Token.Leeway,
		RequireIAT:   cfg.Token.RequireIAT,
		MaxFutureIAT: cfg.Token.MaxFutureIAT,
		KeyID:        cfg.Token.KeyID,
		VerifyKeys:   cloneKeyMap(cfg.Token.VerifyKeys),
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		signer: signer,
		store:  store,
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.deps = buildDeps(cfg, signer, store, b.rateLimiter)

	b.built = true

	return engine, nil
}

// buildDeps wires the flow dependency sets once at construction time. All
// flows share the same clock, ID source, and store so their behavior stays
// coherent under test substitution.
func buildDeps(cfg Config, signer token.Signer, store record.Store, rl RotationRateLimiter) flows.Deps {
	newID := uuid.NewString
	now := func() time.Time { return time.Now().UTC() }

	deps := flows.Deps{
		Rotate: flows.RotateDeps{
			ParseRefresh: signer.ParseRefresh,
			SignRefresh:  signer.SignRefresh,
			NewTokenID:   newID,
			RefreshTTL:   cfg.Token.RefreshTTL,
			Now:          now,
			Store:        store,
			Warn:         log.Printf,
		},
		IssueRefresh: flows.IssueRefreshDeps{
			SignRefresh:  signer.SignRefresh,
			NewTokenID:   newID,
			NewSessionID: newID,
			RefreshTTL:   cfg.Token.RefreshTTL,
			Now:          now,
			Store:        store,
		},
		Revoke: flows.RevokeDeps{
			ParseRefresh: signer.ParseRefresh,
			Now:          now,
			Store:        store,
		},
	}

	if rl != nil {
		deps.Rotate.RateLimiter = rl
	}

	return deps
}
