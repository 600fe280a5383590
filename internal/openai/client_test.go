package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI mocks the embedding provider
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockVisionAPI mocks the vision provider
type MockVisionAPI struct {
	mock.Mock
}

func (m *MockVisionAPI) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	args := m.Called(ctx, imageURL)
	return args.String(0), args.Error(1)
}

func newTestClient(api EmbeddingAPI, vision VisionAPI, dims int) *Client {
	return &Client{api: api, vision: vision, dimensions: dims}
}

func makeVector(dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(i) * 0.01
	}
	return v
}

func TestGenerateEmbeddings_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := newTestClient(mockAPI, nil, 1536)

	ctx := context.Background()
	texts := []string{"first chunk", "second chunk"}
	vectors := [][]float32{makeVector(1536), makeVector(1536)}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(vectors, nil)

	got, err := client.GenerateEmbeddings(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, vectors, got)
	mockAPI.AssertExpectations(t)
}

func TestGenerateEmbeddings_EmptyBatch(t *testing.T) {
	client := newTestClient(new(MockEmbeddingAPI), nil, 1536)

	_, err := client.GenerateEmbeddings(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestGenerateEmbeddings_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := newTestClient(mockAPI, nil, 1536)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return([][]float32{makeVector(512)}, nil)

	_, err := client.GenerateEmbeddings(ctx, []string{"text"})
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbeddings_CountMismatch(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := newTestClient(mockAPI, nil, 1536)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"a", "b"}).Return([][]float32{makeVector(1536)}, nil)

	_, err := client.GenerateEmbeddings(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestGenerateEmbeddings_ProviderError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := newTestClient(mockAPI, nil, 1536)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, errors.New("rate limited"))

	_, err := client.GenerateEmbeddings(ctx, []string{"text"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestDescribeImage_Success(t *testing.T) {
	mockVision := new(MockVisionAPI)
	client := newTestClient(nil, mockVision, 1536)

	ctx := context.Background()
	mockVision.On("DescribeImage", ctx, "https://assets/img.png").Return("a bar chart", nil)

	desc, err := client.DescribeImage(ctx, "https://assets/img.png")
	require.NoError(t, err)
	assert.Equal(t, "a bar chart", desc)
}

func TestDescribeImage_EmptyURL(t *testing.T) {
	client := newTestClient(nil, new(MockVisionAPI), 1536)

	_, err := client.DescribeImage(context.Background(), "")
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, IsRetryable(&openai.APIError{HTTPStatusCode: 500}))
	assert.True(t, IsRetryable(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, IsRetryable(&openai.APIError{HTTPStatusCode: 400}))
	assert.False(t, IsRetryable(&openai.APIError{HTTPStatusCode: 401}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(errors.New("malformed request")))
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
