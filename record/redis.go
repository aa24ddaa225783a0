package record

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldSessionID = "session_id"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldRevokedAt = "revoked_at"
)

const claimAndRevokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HEXISTS", KEYS[1], "revoked_at") == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 1
`

var claimAndRevokeLua = redis.NewScript(claimAndRevokeScript)

const rotateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HEXISTS", KEYS[1], "revoked_at") == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
redis.call("HSET", KEYS[2],
  "session_id", ARGV[3],
  "issued_at", ARGV[4],
  "expires_at", ARGV[5])
redis.call("PEXPIRE", KEYS[2], ARGV[6])
redis.call("SADD", KEYS[3], ARGV[2])
redis.call("PEXPIRE", KEYS[3], ARGV[6])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

const revokeFamilyScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local revoked = 0
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  if redis.call("EXISTS", key) == 1 and redis.call("HEXISTS", key, "revoked_at") == 0 then
    redis.call("HSET", key, "revoked_at", ARGV[1])
    revoked = revoked + 1
  end
end
return revoked
`

var revokeFamilyLua = redis.NewScript(revokeFamilyScript)

// RedisStore is a Redis-backed [Store]. Claim-and-revoke, rotation, and
// family revocation each run as a single Lua script, which is what makes
// them atomic with respect to every other caller.
//
// Records are retained past credential expiry for a configurable retention
// window so that revoked chains stay inspectable; Redis key expiry is the
// retention policy.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a [RedisStore] on the given client. prefix sets the
// key namespace; retention controls how long records outlive their
// credential expiry.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "tk"
	}
	if retention < 0 {
		retention = 0
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisStore) recordKey(tenantID, subjectID, tokenID string) string {
	return s.recordKeyPrefix(tenantID, subjectID) + tokenID
}

func (s *RedisStore) recordKeyPrefix(tenantID, subjectID string) string {
	return s.prefix + ":rec:" + normalizeTenantID(tenantID) + ":" + subjectID + ":"
}

func (s *RedisStore) familyKey(tenantID, subjectID, sessionID string) string {
	return s.prefix + ":fam:" + normalizeTenantID(tenantID) + ":" + subjectID + ":" + sessionID
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}

func (s *RedisStore) retentionTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// CreateRecord persists an Active record and indexes it in its session
// family set.
//
//	Performance: 4 Redis commands in one MULTI/EXEC.
func (s *RedisStore) CreateRecord(ctx context.Context, rec Record) error {
	key := s.recordKey(rec.TenantID, rec.SubjectID, rec.TokenID)
	famKey := s.familyKey(rec.TenantID, rec.SubjectID, rec.SessionID)
	ttl := s.retentionTTL(rec.ExpiresAt)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldSessionID, rec.SessionID,
			fieldIssuedAt, rec.IssuedAt.UnixMilli(),
			fieldExpiresAt, rec.ExpiresAt.UnixMilli(),
		)
		pipe.PExpire(ctx, key, ttl)
		pipe.SAdd(ctx, famKey, rec.TokenID)
		pipe.PExpire(ctx, famKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// ClaimAndRevoke atomically transitions the record Active -> Revoked via a
// Lua compare-and-set. Exactly one concurrent caller can observe true.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) ClaimAndRevoke(ctx context.Context, tenantID, subjectID, tokenID string, now time.Time) (bool, error) {
	key := s.recordKey(tenantID, subjectID, tokenID)

	claimed, err := claimAndRevokeLua.Run(ctx, s.redis, []string{key}, now.UnixMilli()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return claimed == 1, nil
}

// Rotate claims the old record and creates the successor in one Lua script.
// A false return means the claim failed and the successor was not written.
//
//	Performance: 1 Lua EVALSHA (atomic claim + create).
//	Security: single-script execution prevents double-rotation races and a
//	revoked-without-successor state.
func (s *RedisStore) Rotate(ctx context.Context, tenantID, subjectID, tokenID string, successor Record) (bool, error) {
	oldKey := s.recordKey(tenantID, subjectID, tokenID)
	newKey := s.recordKey(successor.TenantID, successor.SubjectID, successor.TokenID)
	famKey := s.familyKey(successor.TenantID, successor.SubjectID, successor.SessionID)

	rotated, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{oldKey, newKey, famKey},
		successor.IssuedAt.UnixMilli(),
		successor.TokenID,
		successor.SessionID,
		successor.IssuedAt.UnixMilli(),
		successor.ExpiresAt.UnixMilli(),
		s.retentionTTL(successor.ExpiresAt).Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rotated == 1, nil
}

// RevokeAllInSession revokes every still-Active record in the family.
// Idempotent: a second call returns zero.
//
//	Performance: 1 Lua EVALSHA over the family index set.
func (s *RedisStore) RevokeAllInSession(ctx context.Context, tenantID, subjectID, sessionID string, now time.Time) (int64, error) {
	famKey := s.familyKey(tenantID, subjectID, sessionID)
	keyPrefix := s.recordKeyPrefix(tenantID, subjectID)

	revoked, err := revokeFamilyLua.Run(ctx, s.redis, []string{famKey}, now.UnixMilli(), keyPrefix).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return revoked, nil
}

// FindActiveBySession returns the Active records of a session family.
//
//	Performance: SMEMBERS + pipelined HGETALL per member.
func (s *RedisStore) FindActiveBySession(ctx context.Context, tenantID, subjectID, sessionID string) ([]Record, error) {
	famKey := s.familyKey(tenantID, subjectID, sessionID)

	tokenIDs, err := s.redis.SMembers(ctx, famKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(tokenIDs) == 0 {
		return []Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(tokenIDs))
	for i, id := range tokenIDs {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(tenantID, subjectID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	records := make([]Record, 0, len(tokenIDs))
	for i, cmd := range cmds {
		fields, cmdErr := cmd.Result()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		// Aged out under retention TTL, or revoked.
		if len(fields) == 0 {
			continue
		}
		if _, revoked := fields[fieldRevokedAt]; revoked {
			continue
		}

		rec, decErr := decodeRecordFields(tenantID, subjectID, tokenIDs[i], fields)
		if decErr != nil {
			return nil, decErr
		}
		records = append(records, rec)
	}

	return records, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeRecordFields(tenantID, subjectID, tokenID string, fields map[string]string) (Record, error) {
	issuedAt, err := parseMilliField(fields, fieldIssuedAt)
	if err != nil {
		return Record{}, err
	}
	expiresAt, err := parseMilliField(fields, fieldExpiresAt)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		TenantID:  tenantID,
		SubjectID: subjectID,
		SessionID: fields[fieldSessionID],
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if raw, ok := fields[fieldRevokedAt]; ok {
		ms, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil {
			return Record{}, fmt.Errorf("%w: corrupt revoked_at field", ErrStoreUnavailable)
		}
		revokedAt := time.UnixMilli(ms)
		rec.RevokedAt = &revokedAt
	}
	return rec, nil
}

func parseMilliField(fields map[string]string, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing %s field", ErrStoreUnavailable, name)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: corrupt %s field", ErrStoreUnavailable, name)
	}
	return time.UnixMilli(ms), nil
}
