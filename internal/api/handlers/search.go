package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mementolab/recall/internal/api"
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, params service.SearchParams) ([]*domain.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
	Threshold *float64 `json:"threshold"`
	Category  string   `json:"category"`
}

type SearchResultResponse struct {
	Record *RecordResponse `json:"record"`
	Score  float64         `json:"score"`
}

type SearchResponse struct {
	Results   []*SearchResultResponse `json:"results"`
	Formatted string                  `json:"formatted"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Search(r.Context(), service.SearchParams{
		Query:     req.Query,
		Limit:     req.Limit,
		Threshold: req.Threshold,
		Category:  req.Category,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SearchResultResponse, len(results))
	for i, res := range results {
		responses[i] = &SearchResultResponse{
			Record: recordToResponse(res.Record),
			Score:  res.Score,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Results:   responses,
		Formatted: service.FormatResults(results),
	})
}
