package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/memento-ai/mementod/internal/api"
	"github.com/memento-ai/mementod/internal/domain"
)

type SearchService interface {
	Search(ctx context.Context, tenantID, query string, limit int) ([]domain.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchResultResponse struct {
	ChunkID    string  `json:"chunk_id"`
	FileID     string  `json:"file_id"`
	FileName   string  `json:"file_name"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Search answers a tenant-scoped similarity query. Parameters come from the
// query string: tenant_id, q and an optional limit.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		api.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results, err := h.svc.Search(r.Context(), tenantID, query, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]SearchResultResponse, len(results))
	for i, res := range results {
		resp[i] = SearchResultResponse{
			ChunkID:    res.ChunkID,
			FileID:     res.FileID,
			FileName:   res.FileName,
			ChunkIndex: res.ChunkIndex,
			Content:    res.Content,
			Score:      res.Score,
		}
	}

	api.Success(w, http.StatusOK, map[string]interface{}{"results": resp})
}
