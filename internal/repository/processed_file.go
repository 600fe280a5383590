package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memento-ai/mementod/internal/domain"
)

// ProcessedFileRepository handles the idempotency claim table. TryClaim is
// the only write that races; everything else runs under a held claim.
type ProcessedFileRepository struct {
	db dbtx
}

func NewProcessedFileRepository(pool *pgxpool.Pool) *ProcessedFileRepository {
	return &ProcessedFileRepository{db: pool}
}

func NewProcessedFileRepositoryWithTx(tx dbtx) *ProcessedFileRepository {
	return &ProcessedFileRepository{db: tx}
}

// TryClaim atomically inserts a processing row for the (tenant, file) pair.
// Returns true when this caller won the claim; false when a row already
// exists, whether in-flight or completed.
func (r *ProcessedFileRepository) TryClaim(ctx context.Context, tenantID, fileID, fileName string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO processed_files (tenant_id, file_id, file_name, status, claimed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, file_id) DO NOTHING`,
		tenantID, fileID, fileName, domain.ProcessedFileStatusProcessing, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IsCompleted reports whether a completed record exists for the pair.
func (r *ProcessedFileRepository) IsCompleted(ctx context.Context, tenantID, fileID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM processed_files
			WHERE tenant_id = $1 AND file_id = $2 AND status = $3
		 )`,
		tenantID, fileID, domain.ProcessedFileStatusCompleted,
	).Scan(&exists)
	return exists, err
}

// Get returns the claim row for the pair, or domain.ErrFileNotFound.
func (r *ProcessedFileRepository) Get(ctx context.Context, tenantID, fileID string) (*domain.ProcessedFileRecord, error) {
	var rec domain.ProcessedFileRecord
	err := r.db.QueryRow(ctx,
		`SELECT tenant_id, file_id, file_name, status, claimed_at, completed_at
		 FROM processed_files
		 WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	).Scan(&rec.TenantID, &rec.FileID, &rec.FileName, &rec.Status, &rec.ClaimedAt, &rec.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListCompleted returns the file IDs of every completed record of a tenant.
func (r *ProcessedFileRepository) ListCompleted(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT file_id FROM processed_files
		 WHERE tenant_id = $1 AND status = $2`,
		tenantID, domain.ProcessedFileStatusCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkCompleted promotes the claim to completed. It runs last in the
// pipeline, so a completed row implies every downstream write committed.
func (r *ProcessedFileRepository) MarkCompleted(ctx context.Context, tenantID, fileID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE processed_files
		 SET status = $3, completed_at = $4
		 WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID, domain.ProcessedFileStatusCompleted, time.Now().UTC(),
	)
	return err
}

// Release drops an in-flight claim after a failed run. Completed rows are
// left alone.
func (r *ProcessedFileRepository) Release(ctx context.Context, tenantID, fileID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM processed_files
		 WHERE tenant_id = $1 AND file_id = $2 AND status = $3`,
		tenantID, fileID, domain.ProcessedFileStatusProcessing,
	)
	return err
}

// Delete removes the row regardless of status, for forced reprocessing.
func (r *ProcessedFileRepository) Delete(ctx context.Context, tenantID, fileID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM processed_files WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	)
	return err
}
