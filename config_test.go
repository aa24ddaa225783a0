package tokenkeep

import (
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %v", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 30*24*time.Hour {
		t.Fatalf("expected 720h refresh TTL, got %v", cfg.Token.RefreshTTL)
	}
	if cfg.Store.RedisPrefix != "tk" {
		t.Fatalf("expected tk prefix, got %q", cfg.Store.RedisPrefix)
	}
	if cfg.Store.RetentionWindow != 30*24*time.Hour {
		t.Fatalf("expected 720h retention, got %v", cfg.Store.RetentionWindow)
	}
	if !cfg.Audit.Enabled || !cfg.Audit.DropIfFull || cfg.Audit.BufferSize != 256 {
		t.Fatalf("unexpected audit defaults: %+v", cfg.Audit)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled by default")
	}
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to fail without a secret")
	}
}

func TestValidateRejectsInvertedTTLs(t *testing.T) {
	cfg := testConfig()
	cfg.Token.AccessTTL = cfg.Token.RefreshTTL
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to reject access TTL >= refresh TTL")
	}
}

func TestValidateRejectsExcessiveLeeway(t *testing.T) {
	cfg := testConfig()
	cfg.Token.Leeway = 5 * time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to reject leeway above 2 minutes")
	}
}

func TestValidateRejectsNegativeRetention(t *testing.T) {
	cfg := testConfig()
	cfg.Store.RetentionWindow = -time.Hour
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to reject negative retention")
	}
}

func TestValidateAcceptsTestConfig(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestCloneConfigIsolatesSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Token.VerifyKeys = map[string][]byte{
		"k1": []byte("0123456789abcdef0123456789abcdef"),
	}

	clone := cloneConfig(cfg)
	clone.Token.Secret[0] = 'X'
	clone.Token.VerifyKeys["k1"][0] = 'X'

	if cfg.Token.Secret[0] == 'X' {
		t.Fatal("clone must not share the secret backing array")
	}
	if cfg.Token.VerifyKeys["k1"][0] == 'X' {
		t.Fatal("clone must not share verify key backing arrays")
	}
}
