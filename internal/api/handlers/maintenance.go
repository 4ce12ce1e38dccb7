package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mementolab/recall/internal/api"
	"github.com/mementolab/recall/internal/domain"
)

type MaintenanceService interface {
	Stats(ctx context.Context) (*domain.KnowledgeStats, error)
	Cleanup(ctx context.Context, maxAgeDays int) (int64, error)
}

type MaintenanceHandler struct {
	svc MaintenanceService
}

func NewMaintenanceHandler(svc MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc}
}

type StatsResponse struct {
	RecordCount     int64  `json:"record_count"`
	DistinctSources int64  `json:"distinct_sources"`
	Oldest          string `json:"oldest,omitempty"`
	Newest          string `json:"newest,omitempty"`
}

func (h *MaintenanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := StatsResponse{
		RecordCount:     stats.RecordCount,
		DistinctSources: stats.DistinctSources,
	}
	if stats.Oldest != nil {
		resp.Oldest = stats.Oldest.UTC().Format(time.RFC3339Nano)
	}
	if stats.Newest != nil {
		resp.Newest = stats.Newest.UTC().Format(time.RFC3339Nano)
	}

	api.Success(w, http.StatusOK, resp)
}

type CleanupRequest struct {
	MaxAgeDays int `json:"max_age_days"`
}

type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *MaintenanceHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted, err := h.svc.Cleanup(r.Context(), req.MaxAgeDays)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, CleanupResponse{Deleted: deleted})
}
