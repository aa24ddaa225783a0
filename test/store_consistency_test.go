//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"
)

func TestStoreConsistencyFamilyRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	if err := store.CreateRecord(ctx, makeRecord("0", "u1", "sid-revoke", "tok-a")); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if err := store.CreateRecord(ctx, makeRecord("0", "u1", "sid-revoke", "tok-b")); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	revoked, err := store.RevokeAllInSession(ctx, "0", "u1", "sid-revoke", time.Now())
	if err != nil {
		t.Fatalf("first RevokeAllInSession failed: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revocations, got %d", revoked)
	}

	revoked, err = store.RevokeAllInSession(ctx, "0", "u1", "sid-revoke", time.Now())
	if err != nil {
		t.Fatalf("second RevokeAllInSession failed: %v", err)
	}
	if revoked != 0 {
		t.Fatalf("expected second revocation to be a no-op, got %d", revoked)
	}
}

func TestStoreConsistencyDeadFamilyNeverReactivates(t *testing.T) {
	ctx := context.Background()
	store, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	if err := store.CreateRecord(ctx, makeRecord("0", "u2", "sid-dead", "tok-a")); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if _, err := store.RevokeAllInSession(ctx, "0", "u2", "sid-dead", time.Now()); err != nil {
		t.Fatalf("RevokeAllInSession failed: %v", err)
	}

	// A rotation presenting the dead record must lose its claim.
	rotated, err := store.Rotate(ctx, "0", "u2", "tok-a", makeRecord("0", "u2", "sid-dead", "tok-b"))
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated {
		t.Fatal("a revoked record must not be rotatable")
	}

	active, err := store.FindActiveBySession(ctx, "0", "u2", "sid-dead")
	if err != nil {
		t.Fatalf("FindActiveBySession failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("dead family must stay dead, got %d active", len(active))
	}
}
