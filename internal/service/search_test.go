package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/memento-ai/mementod/internal/domain"
)

// MockSearchRepo mocks vector search
type MockSearchRepo struct {
	mock.Mock
}

func (m *MockSearchRepo) Search(ctx context.Context, tenantID string, embedding []float32, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, tenantID, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func TestSearch_EmbedsQueryAndScopesToTenant(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSearchRepo)
	svc := NewSearchService(client, repo)

	vector := []float32{0.5, 0.5}
	results := []domain.SearchResult{
		{ChunkID: "c1", FileID: "f1", Content: "match", Score: 0.92},
	}

	client.On("GenerateEmbeddings", mock.Anything, []string{"what is memento"}).
		Return([][]float32{vector}, nil)
	repo.On("Search", mock.Anything, "t1", vector, 5).Return(results, nil)

	got, err := svc.Search(context.Background(), "t1", "what is memento", 5)
	require.NoError(t, err)
	assert.Equal(t, results, got)
	repo.AssertExpectations(t)
}

func TestSearch_DefaultLimit(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSearchRepo)
	svc := NewSearchService(client, repo)

	client.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return([][]float32{{1}}, nil)
	repo.On("Search", mock.Anything, "t1", []float32{1}, 10).
		Return([]domain.SearchResult{}, nil)

	_, err := svc.Search(context.Background(), "t1", "query", 0)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSearch_Validation(t *testing.T) {
	svc := NewSearchService(new(MockEmbeddingClient), new(MockSearchRepo))

	_, err := svc.Search(context.Background(), "", "query", 10)
	assert.ErrorIs(t, err, domain.ErrEmptyTenantID)

	_, err = svc.Search(context.Background(), "t1", "   ", 10)
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSearchRepo)
	svc := NewSearchService(client, repo)

	client.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	_, err := svc.Search(context.Background(), "t1", "query", 10)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbedding, domainErr.Code)
	repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_RepositoryFailure(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSearchRepo)
	svc := NewSearchService(client, repo)

	client.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return([][]float32{{1}}, nil)
	repo.On("Search", mock.Anything, "t1", mock.Anything, 10).
		Return(nil, errors.New("connection reset"))

	_, err := svc.Search(context.Background(), "t1", "query", 10)
	assert.Error(t, err)
}
