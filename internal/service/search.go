package service

import (
	"context"
	"strings"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/telemetry"
)

// SearchRepositoryInterface defines the repository interface for vector search.
type SearchRepositoryInterface interface {
	Search(ctx context.Context, tenantID string, embedding []float32, limit int) ([]domain.SearchResult, error)
}

// SearchService answers tenant-scoped similarity queries over ingested
// chunks.
type SearchService struct {
	client       EmbeddingClient
	repo         SearchRepositoryInterface
	defaultLimit int
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(client EmbeddingClient, repo SearchRepositoryInterface) *SearchService {
	return &SearchService{
		client:       client,
		repo:         repo,
		defaultLimit: 10,
	}
}

// Search embeds the query and returns the closest chunks of the tenant. A
// tenant only ever sees its own partition.
func (s *SearchService) Search(ctx context.Context, tenantID, query string, limit int) ([]domain.SearchResult, error) {
	if tenantID == "" {
		return nil, domain.ErrEmptyTenantID
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	ctx, span := telemetry.StartSpan(ctx, "search.query", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "search",
	})
	defer span.End()

	vectors, err := s.client.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewEmbeddingError(err)
	}

	results, err := s.repo.Search(ctx, tenantID, vectors[0], limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}
