package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/memento-ai/mementod/internal/domain"
)

// ChunkRepository handles persistence of embedded document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// InsertBatch writes the chunks of one file. Chunks carry their IDs and
// embeddings already; order is preserved through chunk_index.
func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, tenant_id, file_id, file_name, chunk_index, content, embedding, page_start, page_end, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID,
			c.TenantID,
			c.FileID,
			c.FileName,
			c.Index,
			c.Content,
			pgvector.NewVector(c.Embedding),
			c.PageStart,
			c.PageEnd,
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteByFile removes every chunk of a (tenant, file) pair.
func (r *ChunkRepository) DeleteByFile(ctx context.Context, tenantID, fileID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	)
	return err
}

// CountByFile returns the number of stored chunks for a (tenant, file) pair.
func (r *ChunkRepository) CountByFile(ctx context.Context, tenantID, fileID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE tenant_id = $1 AND file_id = $2`,
		tenantID, fileID,
	).Scan(&count)
	return count, err
}

// Search returns the tenant's chunks closest to the query vector by cosine
// distance. The tenant_id predicate is the isolation boundary; it is never
// optional.
func (r *ChunkRepository) Search(ctx context.Context, tenantID string, embedding []float32, limit int) ([]domain.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, file_id, file_name, chunk_index, content,
			1 - (embedding <=> $2) AS score
		 FROM document_chunks
		 WHERE tenant_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		tenantID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(&res.ChunkID, &res.FileID, &res.FileName, &res.ChunkIndex, &res.Content, &res.Score); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
