package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mementolab/recall/internal/api"
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/service"
)

type KnowledgeService interface {
	Add(ctx context.Context, input service.AddInput) (*domain.AddResult, error)
	Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, input service.ListInput) (*service.ListOutput, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type CreateKnowledgeRequest struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Title    string `json:"title"`
}

type CreateKnowledgeResponse struct {
	IDs        []string `json:"ids"`
	Chunks     int      `json:"chunks"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
}

type RecordResponse struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Source    string `json:"source,omitempty"`
	Date      string `json:"date,omitempty"`
	Category  string `json:"category,omitempty"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
}

func recordToResponse(rec *domain.KnowledgeRecord) *RecordResponse {
	return &RecordResponse{
		ID:        rec.ID,
		Content:   rec.Content,
		Source:    rec.Source,
		Date:      rec.Date,
		Category:  rec.Category,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.AddInput{
		Content: req.Content,
		Metadata: domain.Metadata{
			Source:   req.Source,
			Date:     req.Date,
			Category: req.Category,
			Title:    req.Title,
		},
	}

	result, err := h.svc.Add(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	ids := result.IDs
	if ids == nil {
		ids = []string{}
	}

	api.Success(w, http.StatusCreated, CreateKnowledgeResponse{
		IDs:        ids,
		Chunks:     result.Chunks,
		Duplicates: result.Duplicates,
		Failed:     result.Failed,
	})
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	record, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, recordToResponse(record))
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id})
}

type KnowledgeListResponse struct {
	Items   []*RecordResponse `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListInput{
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*RecordResponse, len(output.Records))
	for i, rec := range output.Records {
		items[i] = recordToResponse(rec)
	}

	api.Success(w, http.StatusOK, KnowledgeListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}
