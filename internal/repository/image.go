package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memento-ai/mementod/internal/domain"
)

// ImageRepository handles persistence of extracted image records. Image
// bytes live in asset storage; the row keeps the content hash, URL and
// description for dedup and audit.
type ImageRepository struct {
	db dbtx
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{db: pool}
}

func NewImageRepositoryWithTx(tx dbtx) *ImageRepository {
	return &ImageRepository{db: tx}
}

// InsertBatch writes the deduplicated image records of one file.
func (r *ImageRepository) InsertBatch(ctx context.Context, images []*domain.ExtractedImage) error {
	for _, img := range images {
		pos := img.FirstPosition()
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_images
				(content_hash, tenant_id, file_id, format, page, url, description, occurrences)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			img.ID,
			img.TenantID,
			img.FileID,
			img.Format,
			pos.Page,
			img.URL,
			img.Description,
			len(img.Positions),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteByFile removes every image record of a (tenant, file) pair.
func (r *ImageRepository) DeleteByFile(ctx context.Context, tenantID, fileID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM document_images WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	)
	return err
}

// CountByFile returns the number of stored image records for a (tenant, file) pair.
func (r *ImageRepository) CountByFile(ctx context.Context, tenantID, fileID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_images WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	).Scan(&count)
	return count, err
}
