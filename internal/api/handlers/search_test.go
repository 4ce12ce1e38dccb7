package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, params service.SearchParams) ([]*domain.SearchResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchResult), args.Error(1)
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	results := []*domain.SearchResult{
		{Record: newTestRecord(), Score: 0.92},
	}
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(params service.SearchParams) bool {
		return params.Query == "implicit interfaces" && params.Limit == 3 && params.Category == "golang"
	})).Return(results, nil)

	body := `{"query":"implicit interfaces","limit":3,"category":"golang"}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})

	items := data["results"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.InDelta(t, 0.92, first["score"].(float64), 1e-9)
	record := first["record"].(map[string]interface{})
	assert.Equal(t, "rec-123", record["id"])

	assert.Equal(t, "[Source: Interfaces (2026-08-25)]\nGo interfaces are satisfied implicitly.", data["formatted"])
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_Threshold(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(params service.SearchParams) bool {
		return params.Threshold != nil && *params.Threshold == 0.75
	})).Return([]*domain.SearchResult{}, nil)

	body := `{"query":"anything","threshold":0.75}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_NoMatches(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return([]*domain.SearchResult{}, nil)

	body := `{"query":"nothing matches this"}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Empty(t, data["results"])
	assert.Equal(t, service.NoKnowledgeFound, data["formatted"])
}

func TestSearchHandler_Search_MissingQuery(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(`{"limit":3}`)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearchHandler_Search_InvalidJSON(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_ProviderDown(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding the query failed", assert.AnError))

	body := `{"query":"anything"}`
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	// Provider failure surfaces as 502, never as an empty result.
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
