package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/memento-ai/mementod/internal/api"
	"github.com/memento-ai/mementod/internal/service"
)

type IngestionService interface {
	IngestBatch(ctx context.Context, reqs []service.IngestRequest) ([]*service.IngestResult, error)
}

type IngestHandler struct {
	svc IngestionService
}

func NewIngestHandler(svc IngestionService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestFileRequest struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

type IngestRequest struct {
	TenantID string              `json:"tenant_id"`
	Files    []IngestFileRequest `json:"files"`
	Force    bool                `json:"force"`
}

// Ingest runs the pipeline for the listed files and reports one outcome per
// file. The response is 200 even when individual files fail; per-file status
// carries the detail.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if len(req.Files) == 0 {
		api.Error(w, http.StatusBadRequest, "files is required")
		return
	}

	reqs := make([]service.IngestRequest, len(req.Files))
	for i, f := range req.Files {
		reqs[i] = service.IngestRequest{
			TenantID: req.TenantID,
			FileID:   f.FileID,
			FileName: f.FileName,
			Force:    req.Force,
		}
	}

	results, err := h.svc.IngestBatch(r.Context(), reqs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{"results": results})
}
