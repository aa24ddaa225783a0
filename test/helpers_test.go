//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/soluslab/tokenkeep/record"
)

func newIntegrationStore(t *testing.T) (*record.RedisStore, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := record.NewRedisStore(rdb, "tk", time.Hour)

	return store, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeRecord(tenantID, subjectID, sessionID, tokenID string) record.Record {
	now := time.Now().UTC()
	return record.Record{
		TenantID:  tenantID,
		SubjectID: subjectID,
		SessionID: sessionID,
		TokenID:   tokenID,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}
