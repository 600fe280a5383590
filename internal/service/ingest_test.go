package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/parser"
	"github.com/memento-ai/mementod/internal/storage"
)

// MockSourceStore mocks the source document bucket
type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) FetchObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockChunkRepo mocks chunk persistence
type MockChunkRepo struct {
	mock.Mock
}

func (m *MockChunkRepo) InsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepo) DeleteByFile(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

// MockImageRepo mocks image record persistence
type MockImageRepo struct {
	mock.Mock
}

func (m *MockImageRepo) InsertBatch(ctx context.Context, images []*domain.ExtractedImage) error {
	args := m.Called(ctx, images)
	return args.Error(0)
}

func (m *MockImageRepo) DeleteByFile(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

// MockProcessedRepo mocks the idempotency claim table
type MockProcessedRepo struct {
	mock.Mock
}

func (m *MockProcessedRepo) TryClaim(ctx context.Context, tenantID, fileID, fileName string) (bool, error) {
	args := m.Called(ctx, tenantID, fileID, fileName)
	return args.Bool(0), args.Error(1)
}

func (m *MockProcessedRepo) IsCompleted(ctx context.Context, tenantID, fileID string) (bool, error) {
	args := m.Called(ctx, tenantID, fileID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProcessedRepo) MarkCompleted(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

func (m *MockProcessedRepo) Release(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

func (m *MockProcessedRepo) Delete(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

// stubTxRunner runs the transaction function directly against the mocks.
type stubTxRunner struct {
	chunks    ChunkRepositoryInterface
	images    ImageRepositoryInterface
	processed ProcessedFileRepositoryInterface
}

func (s *stubTxRunner) WithTx(_ context.Context, fn func(repos TxRepositories) error) error {
	return fn(s)
}

func (s *stubTxRunner) Chunks() ChunkRepositoryInterface { return s.chunks }

func (s *stubTxRunner) Images() ImageRepositoryInterface { return s.images }

func (s *stubTxRunner) ProcessedFiles() ProcessedFileRepositoryInterface { return s.processed }

type ingestFixture struct {
	source    *MockSourceStore
	chunks    *MockChunkRepo
	images    *MockImageRepo
	processed *MockProcessedRepo
	embed     *MockEmbeddingClient
	svc       *IngestionService
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		source:    new(MockSourceStore),
		chunks:    new(MockChunkRepo),
		images:    new(MockImageRepo),
		processed: new(MockProcessedRepo),
		embed:     new(MockEmbeddingClient),
	}

	imageSvc := NewImageService(new(MockImageStore), new(MockImageDescriber), nil, 2)
	embedSvc := NewEmbeddingService(f.embed, nil, 16, 1)
	embedSvc.retryPolicy.BaseDelay = 0

	f.svc = NewIngestionService(
		f.source,
		parser.NewRegistry(),
		imageSvc,
		embedSvc,
		DefaultChunkConfig(),
		f.chunks,
		f.images,
		f.processed,
		&stubTxRunner{chunks: f.chunks, images: f.images, processed: f.processed},
		2,
	)
	return f
}

func TestIngest_PlainTextHappyPath(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	f.processed.On("IsCompleted", mock.Anything, "t1", "notes.txt").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "notes.txt", "notes.txt").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/notes.txt").Return([]byte("hello ingest"), nil)
	f.embed.On("GenerateEmbeddings", mock.Anything, []string{"hello ingest"}).
		Return([][]float32{{0.1, 0.2}}, nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.MatchedBy(func(chunks []domain.Chunk) bool {
		return len(chunks) == 1 &&
			chunks[0].TenantID == "t1" &&
			chunks[0].FileID == "notes.txt" &&
			chunks[0].Content == "hello ingest" &&
			chunks[0].ID != ""
	})).Return(nil)
	f.processed.On("MarkCompleted", mock.Anything, "t1", "notes.txt").Return(nil)

	result, err := f.svc.Ingest(ctx, IngestRequest{TenantID: "t1", FileID: "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, result.Status)
	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, 0, result.Images)

	f.processed.AssertExpectations(t)
	f.chunks.AssertExpectations(t)
	// No images extracted, so no image writes.
	f.images.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestIngest_AlreadyCompletedSkips(t *testing.T) {
	f := newIngestFixture()

	f.processed.On("IsCompleted", mock.Anything, "t1", "notes.txt").Return(true, nil)

	result, err := f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1", FileID: "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, result.Status)
	assert.Equal(t, "file already ingested", result.Detail)

	f.processed.AssertNotCalled(t, "TryClaim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.source.AssertNotCalled(t, "FetchObject", mock.Anything, mock.Anything)
}

func TestIngest_ConcurrentClaimLoserSkips(t *testing.T) {
	f := newIngestFixture()

	f.processed.On("IsCompleted", mock.Anything, "t1", "notes.txt").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "notes.txt", "notes.txt").Return(false, nil)

	result, err := f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1", FileID: "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, result.Status)
	assert.Equal(t, "ingestion already in progress", result.Detail)

	f.source.AssertNotCalled(t, "FetchObject", mock.Anything, mock.Anything)
}

func TestIngest_UnsupportedFormatFailsAndCleansUp(t *testing.T) {
	f := newIngestFixture()

	f.processed.On("IsCompleted", mock.Anything, "t1", "data.csv").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "data.csv", "data.csv").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/data.csv").Return([]byte("a,b\n1,2"), nil)

	f.chunks.On("DeleteByFile", mock.Anything, "t1", "data.csv").Return(nil)
	f.images.On("DeleteByFile", mock.Anything, "t1", "data.csv").Return(nil)
	f.processed.On("Release", mock.Anything, "t1", "data.csv").Return(nil)

	result, err := f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1", FileID: "data.csv"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Status)
	assert.Contains(t, result.Detail, "UNSUPPORTED_FORMAT")

	f.processed.AssertExpectations(t)
	f.chunks.AssertExpectations(t)
	f.images.AssertExpectations(t)
}

func TestIngest_MissingSourceFileFails(t *testing.T) {
	f := newIngestFixture()

	f.processed.On("IsCompleted", mock.Anything, "t1", "ghost.pdf").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "ghost.pdf", "ghost.pdf").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/ghost.pdf").Return(nil, storage.ErrObjectNotFound)

	f.chunks.On("DeleteByFile", mock.Anything, "t1", "ghost.pdf").Return(nil)
	f.images.On("DeleteByFile", mock.Anything, "t1", "ghost.pdf").Return(nil)
	f.processed.On("Release", mock.Anything, "t1", "ghost.pdf").Return(nil)

	result, err := f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1", FileID: "ghost.pdf"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Status)
	assert.Contains(t, result.Detail, "NOT_FOUND")
}

func TestIngest_EmbeddingFailureCleansUp(t *testing.T) {
	f := newIngestFixture()

	f.processed.On("IsCompleted", mock.Anything, "t1", "notes.txt").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "notes.txt", "notes.txt").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/notes.txt").Return([]byte("some text"), nil)
	f.embed.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return(nil, errors.New("provider down"))

	f.chunks.On("DeleteByFile", mock.Anything, "t1", "notes.txt").Return(nil)
	f.images.On("DeleteByFile", mock.Anything, "t1", "notes.txt").Return(nil)
	f.processed.On("Release", mock.Anything, "t1", "notes.txt").Return(nil)

	result, err := f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1", FileID: "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Status)

	f.chunks.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
	f.processed.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	f.processed.AssertExpectations(t)
}

func TestIngest_ForcePurgesBeforeReprocessing(t *testing.T) {
	f := newIngestFixture()

	// Purge runs in the transaction; the completed check is skipped.
	f.chunks.On("DeleteByFile", mock.Anything, "t1", "notes.txt").Return(nil).Once()
	f.images.On("DeleteByFile", mock.Anything, "t1", "notes.txt").Return(nil).Once()
	f.processed.On("Delete", mock.Anything, "t1", "notes.txt").Return(nil).Once()

	f.processed.On("TryClaim", mock.Anything, "t1", "notes.txt", "notes.txt").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/notes.txt").Return([]byte("fresh text"), nil)
	f.embed.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return([][]float32{{1}}, nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.Anything).Return(nil)
	f.processed.On("MarkCompleted", mock.Anything, "t1", "notes.txt").Return(nil)

	result, err := f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1", FileID: "notes.txt", Force: true})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, result.Status)

	f.processed.AssertNotCalled(t, "IsCompleted", mock.Anything, mock.Anything, mock.Anything)
	f.processed.AssertExpectations(t)
}

func TestIngest_ValidationFailures(t *testing.T) {
	f := newIngestFixture()

	result, err := f.svc.Ingest(context.Background(), IngestRequest{FileID: "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Status)
	assert.Contains(t, result.Detail, "tenant id")

	result, err = f.svc.Ingest(context.Background(), IngestRequest{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, result.Status)
	assert.Contains(t, result.Detail, "file id")

	f.processed.AssertNotCalled(t, "TryClaim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestBatch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	f := newIngestFixture()

	f.processed.On("IsCompleted", mock.Anything, "t1", "good.txt").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "good.txt", "good.txt").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/good.txt").Return([]byte("ok"), nil)
	f.embed.On("GenerateEmbeddings", mock.Anything, []string{"ok"}).Return([][]float32{{1}}, nil)
	f.chunks.On("InsertBatch", mock.Anything, mock.Anything).Return(nil)
	f.processed.On("MarkCompleted", mock.Anything, "t1", "good.txt").Return(nil)

	f.processed.On("IsCompleted", mock.Anything, "t1", "bad.csv").Return(false, nil)
	f.processed.On("TryClaim", mock.Anything, "t1", "bad.csv", "bad.csv").Return(true, nil)
	f.source.On("FetchObject", mock.Anything, "t1/bad.csv").Return([]byte("a,b"), nil)
	f.chunks.On("DeleteByFile", mock.Anything, "t1", "bad.csv").Return(nil)
	f.images.On("DeleteByFile", mock.Anything, "t1", "bad.csv").Return(nil)
	f.processed.On("Release", mock.Anything, "t1", "bad.csv").Return(nil)

	results, err := f.svc.IngestBatch(context.Background(), []IngestRequest{
		{TenantID: "t1", FileID: "good.txt"},
		{TenantID: "t1", FileID: "bad.csv"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "good.txt", results[0].FileID)
	assert.Equal(t, domain.OutcomeCompleted, results[0].Status)
	assert.Equal(t, "bad.csv", results[1].FileID)
	assert.Equal(t, domain.OutcomeFailed, results[1].Status)
}
