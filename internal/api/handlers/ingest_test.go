package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/service"
)

// MockIngestionService is a mock implementation of IngestionService
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) IngestBatch(ctx context.Context, reqs []service.IngestRequest) ([]*service.IngestResult, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.IngestResult), args.Error(1)
}

func postIngest(t *testing.T, handler *IngestHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler.Ingest(w, req)
	return w
}

func TestIngestHandler_Success(t *testing.T) {
	svc := new(MockIngestionService)
	handler := NewIngestHandler(svc)

	svc.On("IngestBatch", mock.Anything, []service.IngestRequest{
		{TenantID: "t1", FileID: "doc.pdf", FileName: "report.pdf", Force: true},
	}).Return([]*service.IngestResult{
		{TenantID: "t1", FileID: "doc.pdf", Status: domain.OutcomeCompleted, Chunks: 3, Images: 1},
	}, nil)

	w := postIngest(t, handler, IngestRequest{
		TenantID: "t1",
		Files:    []IngestFileRequest{{FileID: "doc.pdf", FileName: "report.pdf"}},
		Force:    true,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Results []service.IngestResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, domain.OutcomeCompleted, resp.Data.Results[0].Status)
	assert.Equal(t, 3, resp.Data.Results[0].Chunks)
	svc.AssertExpectations(t)
}

func TestIngestHandler_PerFileFailuresStillReturn200(t *testing.T) {
	svc := new(MockIngestionService)
	handler := NewIngestHandler(svc)

	svc.On("IngestBatch", mock.Anything, mock.Anything).Return([]*service.IngestResult{
		{TenantID: "t1", FileID: "bad.csv", Status: domain.OutcomeFailed, Detail: "no parser"},
	}, nil)

	w := postIngest(t, handler, IngestRequest{
		TenantID: "t1",
		Files:    []IngestFileRequest{{FileID: "bad.csv"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestHandler_MissingTenant(t *testing.T) {
	handler := NewIngestHandler(new(MockIngestionService))

	w := postIngest(t, handler, IngestRequest{
		Files: []IngestFileRequest{{FileID: "doc.pdf"}},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tenant_id is required")
}

func TestIngestHandler_MissingFiles(t *testing.T) {
	handler := NewIngestHandler(new(MockIngestionService))

	w := postIngest(t, handler, IngestRequest{TenantID: "t1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "files is required")
}

func TestIngestHandler_InvalidBody(t *testing.T) {
	handler := NewIngestHandler(new(MockIngestionService))

	req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestHandler_InfrastructureError(t *testing.T) {
	svc := new(MockIngestionService)
	handler := NewIngestHandler(svc)

	svc.On("IngestBatch", mock.Anything, mock.Anything).
		Return(nil, domain.NewWriteError(assert.AnError))

	w := postIngest(t, handler, IngestRequest{
		TenantID: "t1",
		Files:    []IngestFileRequest{{FileID: "doc.pdf"}},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
