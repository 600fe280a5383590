package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/retry"
)

// EmbeddingClient defines the interface for batched embedding generation.
type EmbeddingClient interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService turns chunk contents into vectors. Chunks are embedded
// in fixed-size batches, a bounded number of batches in flight at once.
// Unlike image handling, embedding failure is fatal for the file: a chunk
// without a vector cannot be indexed.
type EmbeddingService struct {
	client      EmbeddingClient
	retryPolicy retry.Policy
	batchSize   int
	concurrency int
}

// NewEmbeddingService creates a new EmbeddingService instance.
func NewEmbeddingService(client EmbeddingClient, retryable func(error) bool, batchSize, concurrency int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = 16
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &EmbeddingService{
		client:      client,
		retryPolicy: retry.DefaultPolicy(retryable),
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// EmbedChunks fills in the Embedding of every chunk, preserving chunk order.
// Each batch is retried under the backoff policy; a batch that still fails
// aborts the whole operation.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}

			var vectors [][]float32
			err := s.retryPolicy.Do(ctx, func() error {
				var opErr error
				vectors, opErr = s.client.GenerateEmbeddings(ctx, texts)
				return opErr
			})
			if err != nil {
				return domain.NewEmbeddingError(err)
			}

			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}
	return g.Wait()
}
