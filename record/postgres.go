package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/soluslab/tokenkeep/record/migrations"
)

// PostgresStore is a PostgreSQL-backed [Store] over database/sql (pgx
// stdlib driver). The claim step is a conditional UPDATE guarded by
// revoked_at IS NULL with an affected-row check; rotation wraps claim and
// successor insert in one transaction so a revoke without successor can
// never commit.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a store bound to the given database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open opens a PostgreSQL connection pool through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return db, nil
}

// RunMigrations applies the embedded schema migrations with goose.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// CreateRecord inserts a new Active record.
func (s *PostgresStore) CreateRecord(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO refresh_records (tenant_id, subject_id, session_id, token_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		rec.TenantID, rec.SubjectID, rec.SessionID, rec.TokenID, rec.IssuedAt, rec.ExpiresAt,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ClaimAndRevoke performs the conditional revoke and reports whether this
// call affected the row. Concurrent callers racing on the same token are
// serialized by row-level locking; only one sees one row affected.
func (s *PostgresStore) ClaimAndRevoke(ctx context.Context, tenantID, subjectID, tokenID string, now time.Time) (bool, error) {
	return claimAndRevokeTx(ctx, s.db, tenantID, subjectID, tokenID, now)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func claimAndRevokeTx(ctx context.Context, db execer, tenantID, subjectID, tokenID string, now time.Time) (bool, error) {
	query := `
		UPDATE refresh_records
		SET revoked_at = $4
		WHERE tenant_id = $1 AND subject_id = $2 AND token_id = $3 AND revoked_at IS NULL
	`
	res, err := db.ExecContext(ctx, query, tenantID, subjectID, tokenID, now)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return affected == 1, nil
}

// Rotate claims the old record and inserts the successor in one
// transaction. When the claim affects zero rows the transaction is rolled
// back and false is returned; when the insert fails the claim is rolled
// back with it, so the presenter's record stays Active.
func (s *PostgresStore) Rotate(ctx context.Context, tenantID, subjectID, tokenID string, successor Record) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	claimed, err := claimAndRevokeTx(ctx, tx, tenantID, subjectID, tokenID, successor.IssuedAt)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	query := `
		INSERT INTO refresh_records (tenant_id, subject_id, session_id, token_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, query,
		successor.TenantID, successor.SubjectID, successor.SessionID,
		successor.TokenID, successor.IssuedAt, successor.ExpiresAt,
	); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return true, nil
}

// RevokeAllInSession revokes every still-Active record of the family and
// returns the number of rows transitioned.
func (s *PostgresStore) RevokeAllInSession(ctx context.Context, tenantID, subjectID, sessionID string, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_records
		SET revoked_at = $4
		WHERE tenant_id = $1 AND subject_id = $2 AND session_id = $3 AND revoked_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, tenantID, subjectID, sessionID, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return affected, nil
}

// FindActiveBySession returns the Active records of a session family.
func (s *PostgresStore) FindActiveBySession(ctx context.Context, tenantID, subjectID, sessionID string) ([]Record, error) {
	query := `
		SELECT session_id, token_id, issued_at, expires_at
		FROM refresh_records
		WHERE tenant_id = $1 AND subject_id = $2 AND session_id = $3 AND revoked_at IS NULL
		ORDER BY issued_at
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, subjectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec := Record{TenantID: tenantID, SubjectID: subjectID}
		if err := rows.Scan(&rec.SessionID, &rec.TokenID, &rec.IssuedAt, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

// Ping reports database availability and round-trip latency.
func (s *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
