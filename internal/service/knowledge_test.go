package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKnowledgeRepository is a mock implementation of KnowledgeRepository
type MockKnowledgeRepository struct {
	mock.Mock
}

func (m *MockKnowledgeRepository) Insert(ctx context.Context, rec *domain.KnowledgeRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeRecord), args.Error(1)
}

func (m *MockKnowledgeRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) Candidates(ctx context.Context, category string) ([]*domain.KnowledgeRecord, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeRecord), args.Error(1)
}

func (m *MockKnowledgeRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*KnowledgePage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*KnowledgePage), args.Error(1)
}

func (m *MockKnowledgeRepository) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeStats), args.Error(1)
}

func (m *MockKnowledgeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockKnowledgeRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockEmbeddingClient) Dimensions() int {
	args := m.Called()
	return args.Int(0)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

// vecWithSimilarity builds a unit vector whose cosine similarity against
// {1, 0} is sim.
func vecWithSimilarity(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func storedRecord(id, content string, vec []float64, meta domain.Metadata) *domain.KnowledgeRecord {
	return domain.NewKnowledgeRecord(id, content, vec, meta, time.Now().UTC())
}

func testConfig() KnowledgeConfig {
	return KnowledgeConfig{
		Chunk:              DefaultChunkConfig(),
		MaxContentChars:    2000,
		DuplicateThreshold: 0.8,
		SearchLimit:        5,
	}
}

func TestKnowledgeService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("stores one record for short content", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeServiceWithUUIDGen(mockRepo, mockEmbedder, testConfig(), NewMockUUIDGenerator("record-id-1"))

		vec := []float64{1, 0}
		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)
		mockEmbedder.On("Embed", mock.Anything, "Go interfaces are satisfied implicitly.").Return(vec, nil)
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(rec *domain.KnowledgeRecord) bool {
			return rec.ID == "record-id-1" &&
				rec.Content == "Go interfaces are satisfied implicitly." &&
				rec.Source == "go-notes" &&
				rec.Category == "golang" &&
				rec.Title == "Interfaces" &&
				!rec.CreatedAt.IsZero()
		})).Return(nil)

		result, err := service.Add(ctx, AddInput{
			Content: "Go interfaces are satisfied implicitly.",
			Metadata: domain.Metadata{
				Source:   "go-notes",
				Date:     "2026-08-25",
				Category: "golang",
				Title:    "Interfaces",
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Chunks)
		assert.Equal(t, []string{"record-id-1"}, result.IDs)
		assert.Zero(t, result.Duplicates)
		assert.Zero(t, result.Failed)

		mockRepo.AssertExpectations(t)
		mockEmbedder.AssertExpectations(t)
	})

	t.Run("rejects blank content before any embedding call", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		result, err := service.Add(ctx, AddInput{Content: "   \n\t  "})

		require.ErrorIs(t, err, domain.ErrEmptyContent)
		assert.Nil(t, result)
		mockEmbedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("suppresses an exact duplicate without spending an embedding call", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		existing := []*domain.KnowledgeRecord{
			storedRecord("existing-1", "Go interfaces are satisfied implicitly.", []float64{1, 0}, domain.Metadata{}),
		}
		mockRepo.On("Candidates", mock.Anything, "").Return(existing, nil)

		result, err := service.Add(ctx, AddInput{Content: "Go interfaces are satisfied implicitly."})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Chunks)
		assert.Equal(t, 1, result.Duplicates)
		assert.Empty(t, result.IDs)
		mockEmbedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("suppresses a near duplicate after embedding", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		existing := []*domain.KnowledgeRecord{
			storedRecord("existing-1", "Interfaces in Go are implicit.", []float64{1, 0}, domain.Metadata{}),
		}
		mockRepo.On("Candidates", mock.Anything, "").Return(existing, nil)
		// Cosine 0.95 against the stored vector, above the 0.8 threshold.
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(vecWithSimilarity(0.95), nil)

		result, err := service.Add(ctx, AddInput{Content: "Go interfaces are satisfied implicitly."})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Duplicates)
		assert.Empty(t, result.IDs)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("skips a chunk whose embedding fails and continues", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		cfg := testConfig()
		cfg.Chunk = ChunkConfig{Size: 12, Overlap: 0}
		service := NewKnowledgeServiceWithUUIDGen(mockRepo, mockEmbedder, cfg, NewMockUUIDGenerator("record-id-1"))

		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)
		mockEmbedder.On("Embed", mock.Anything, "First bit.").Return(nil, errors.New("rate limited"))
		mockEmbedder.On("Embed", mock.Anything, "Second bit.").Return([]float64{0, 1}, nil)
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(rec *domain.KnowledgeRecord) bool {
			return rec.Content == "Second bit."
		})).Return(nil)

		result, err := service.Add(ctx, AddInput{Content: "First bit. Second bit."})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Chunks)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, []string{"record-id-1"}, result.IDs)
		mockRepo.AssertExpectations(t)
		mockEmbedder.AssertExpectations(t)
	})

	t.Run("suppresses duplicates within a single batch", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		cfg := testConfig()
		cfg.Chunk = ChunkConfig{Size: 12, Overlap: 0}
		service := NewKnowledgeService(mockRepo, mockEmbedder, cfg)

		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)
		mockEmbedder.On("Embed", mock.Anything, "Same text.").Return([]float64{1, 0}, nil).Once()
		mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := service.Add(ctx, AddInput{Content: "Same text. Same text."})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Chunks)
		assert.Equal(t, 1, result.Duplicates)
		assert.Len(t, result.IDs, 1)
		mockRepo.AssertExpectations(t)
		mockEmbedder.AssertExpectations(t)
	})

	t.Run("truncates an oversized chunk before embedding", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		cfg := testConfig()
		cfg.MaxContentChars = 5
		service := NewKnowledgeService(mockRepo, mockEmbedder, cfg)

		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)
		mockEmbedder.On("Embed", mock.Anything, "abcde").Return([]float64{1, 0}, nil)
		mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(rec *domain.KnowledgeRecord) bool {
			return rec.Content == "abcde"
		})).Return(nil)

		result, err := service.Add(ctx, AddInput{Content: "abcdefghij"})

		require.NoError(t, err)
		assert.Len(t, result.IDs, 1)
		mockRepo.AssertExpectations(t)
		mockEmbedder.AssertExpectations(t)
	})

	t.Run("a dimension mismatch from the repository is fatal", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return([]float64{1, 0, 0}, nil)
		mockRepo.On("Insert", mock.Anything, mock.Anything).
			Return(fmt.Errorf("record x has 3 dimensions, store expects 2: %w", domain.ErrDimensionMismatch))

		result, err := service.Add(ctx, AddInput{Content: "Some content."})

		require.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.Nil(t, result)
	})
}

func TestKnowledgeService_Search(t *testing.T) {
	ctx := context.Background()
	query := []float64{1, 0}

	t.Run("returns the top results by descending similarity", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		candidates := []*domain.KnowledgeRecord{
			storedRecord("rec-1", "close match", vecWithSimilarity(0.9), domain.Metadata{}),
			storedRecord("rec-2", "weak match", vecWithSimilarity(0.5), domain.Metadata{}),
			storedRecord("rec-3", "best match", vecWithSimilarity(0.95), domain.Metadata{}),
		}
		mockEmbedder.On("Embed", mock.Anything, "implicit interfaces").Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return(candidates, nil)

		results, err := service.Search(ctx, SearchParams{Query: "implicit interfaces", Limit: 2})

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "rec-3", results[0].Record.ID)
		assert.Equal(t, "rec-1", results[1].Record.ID)
		assert.InDelta(t, 0.95, results[0].Score, 1e-9)
		assert.InDelta(t, 0.9, results[1].Score, 1e-9)
	})

	t.Run("rejects an empty query", func(t *testing.T) {
		service := NewKnowledgeService(new(MockKnowledgeRepository), new(MockEmbeddingClient), testConfig())

		_, err := service.Search(ctx, SearchParams{Query: "  "})

		require.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("rejects a negative limit", func(t *testing.T) {
		service := NewKnowledgeService(new(MockKnowledgeRepository), new(MockEmbeddingClient), testConfig())

		_, err := service.Search(ctx, SearchParams{Query: "anything", Limit: -1})

		require.ErrorIs(t, err, domain.ErrInvalidLimit)
	})

	t.Run("a provider failure is an infrastructure error, not an empty result", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		results, err := service.Search(ctx, SearchParams{Query: "anything"})

		require.Error(t, err)
		assert.Nil(t, results)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
	})

	t.Run("an empty store yields an empty result, not an error", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)

		results, err := service.Search(ctx, SearchParams{Query: "anything"})

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("threshold drops weak candidates even when fewer than limit remain", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		candidates := []*domain.KnowledgeRecord{
			storedRecord("rec-1", "close match", vecWithSimilarity(0.9), domain.Metadata{}),
			storedRecord("rec-2", "weak match", vecWithSimilarity(0.5), domain.Metadata{}),
		}
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return(candidates, nil)

		threshold := 0.8
		results, err := service.Search(ctx, SearchParams{Query: "anything", Limit: 5, Threshold: &threshold})

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "rec-1", results[0].Record.ID)
	})

	t.Run("category filter is forwarded to the repository", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "golang").Return([]*domain.KnowledgeRecord{}, nil)

		_, err := service.Search(ctx, SearchParams{Query: "anything", Category: "golang"})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("limit zero falls back to the configured default", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		cfg := testConfig()
		cfg.SearchLimit = 1
		service := NewKnowledgeService(mockRepo, mockEmbedder, cfg)

		candidates := []*domain.KnowledgeRecord{
			storedRecord("rec-1", "close match", vecWithSimilarity(0.9), domain.Metadata{}),
			storedRecord("rec-2", "best match", vecWithSimilarity(0.95), domain.Metadata{}),
		}
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return(candidates, nil)

		results, err := service.Search(ctx, SearchParams{Query: "anything"})

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "rec-2", results[0].Record.ID)
	})
}

func TestKnowledgeService_SearchFormatted(t *testing.T) {
	ctx := context.Background()
	query := []float64{1, 0}

	t.Run("renders passages with source headers", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		candidates := []*domain.KnowledgeRecord{
			storedRecord("rec-1", "Interfaces are satisfied implicitly.", vecWithSimilarity(0.9), domain.Metadata{
				Title: "Go interfaces",
				Date:  "2026-08-25",
			}),
		}
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return(candidates, nil)

		out, err := service.SearchFormatted(ctx, SearchParams{Query: "interfaces"})

		require.NoError(t, err)
		assert.Equal(t, "[Source: Go interfaces (2026-08-25)]\nInterfaces are satisfied implicitly.", out)
	})

	t.Run("returns the sentinel string when nothing matches", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return([]*domain.KnowledgeRecord{}, nil)

		out, err := service.SearchFormatted(ctx, SearchParams{Query: "interfaces"})

		require.NoError(t, err)
		assert.Equal(t, NoKnowledgeFound, out)
	})

	t.Run("falls back to source and undated when title and date are missing", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		candidates := []*domain.KnowledgeRecord{
			storedRecord("rec-1", "content", vecWithSimilarity(0.9), domain.Metadata{Source: "notes.txt"}),
		}
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return(candidates, nil)

		out, err := service.SearchFormatted(ctx, SearchParams{Query: "anything"})

		require.NoError(t, err)
		assert.Equal(t, "[Source: notes.txt (undated)]\ncontent", out)
	})

	t.Run("joins passages with the separator, best first", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		mockEmbedder := new(MockEmbeddingClient)
		service := NewKnowledgeService(mockRepo, mockEmbedder, testConfig())

		candidates := []*domain.KnowledgeRecord{
			storedRecord("rec-1", "second passage", vecWithSimilarity(0.85), domain.Metadata{Title: "B"}),
			storedRecord("rec-2", "first passage", vecWithSimilarity(0.95), domain.Metadata{Title: "A"}),
		}
		mockEmbedder.On("Embed", mock.Anything, mock.Anything).Return(query, nil)
		mockRepo.On("Candidates", mock.Anything, "").Return(candidates, nil)

		out, err := service.SearchFormatted(ctx, SearchParams{Query: "anything"})

		require.NoError(t, err)
		parts := strings.Split(out, "\n\n---\n\n")
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0], "first passage")
		assert.Contains(t, parts[1], "second passage")
	})
}

func TestKnowledgeService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the record from the repository", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		rec := storedRecord("rec-1", "content", []float64{1, 0}, domain.Metadata{Source: "notes"})
		mockRepo.On("Get", mock.Anything, "rec-1").Return(rec, nil)

		got, err := service.Get(ctx, "rec-1")

		require.NoError(t, err)
		assert.Equal(t, rec, got)
		mockRepo.AssertExpectations(t)
	})

	t.Run("a blank id is not found", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		_, err := service.Get(ctx, "   ")

		require.ErrorIs(t, err, domain.ErrRecordNotFound)
		mockRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("propagates not found from the repository", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		mockRepo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrRecordNotFound)

		_, err := service.Get(ctx, "missing")

		require.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func TestKnowledgeService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes through the repository", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		mockRepo.On("Delete", mock.Anything, "rec-1").Return(nil)

		require.NoError(t, service.Delete(ctx, "rec-1"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("deleting a missing record reports not found", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		mockRepo.On("Delete", mock.Anything, "missing").Return(domain.ErrRecordNotFound)

		err := service.Delete(ctx, "missing")

		require.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func TestKnowledgeService_Stats(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockKnowledgeRepository)
	service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

	oldest := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	mockRepo.On("Stats", mock.Anything).Return(&domain.KnowledgeStats{
		RecordCount:     42,
		DistinctSources: 7,
		Oldest:          &oldest,
		Newest:          &newest,
	}, nil)

	stats, err := service.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.RecordCount)
	assert.Equal(t, int64(7), stats.DistinctSources)
	assert.Equal(t, oldest, *stats.Oldest)
	assert.Equal(t, newest, *stats.Newest)
}

func TestKnowledgeService_Cleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a negative max age", func(t *testing.T) {
		service := NewKnowledgeService(new(MockKnowledgeRepository), new(MockEmbeddingClient), testConfig())

		_, err := service.Cleanup(ctx, -1)

		require.ErrorIs(t, err, domain.ErrInvalidMaxAge)
	})

	t.Run("deletes records older than the cutoff", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		wantCutoff := time.Now().UTC().AddDate(0, 0, -30)
		mockRepo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
			return cutoff.Sub(wantCutoff).Abs() < time.Minute
		})).Return(int64(3), nil)

		deleted, err := service.Cleanup(ctx, 30)

		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		mockRepo.AssertExpectations(t)
	})

	t.Run("no matches deletes zero and is not an error", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		mockRepo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil)

		deleted, err := service.Cleanup(ctx, 365)

		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestKnowledgeService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("passes the decoded cursor and limit to the repository", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
		cursor := pagination.EncodeCursor("rec-9", ts)
		page := &KnowledgePage{
			Records:    []*domain.KnowledgeRecord{storedRecord("rec-8", "content", []float64{1, 0}, domain.Metadata{})},
			NextCursor: "next",
			HasMore:    true,
		}
		mockRepo.On("List", mock.Anything, mock.MatchedBy(func(c *pagination.Cursor) bool {
			return c != nil && c.LastID == "rec-9" && c.Timestamp.Equal(ts)
		}), 10).Return(page, nil)

		out, err := service.List(ctx, ListInput{Cursor: cursor, Limit: 10})

		require.NoError(t, err)
		assert.Len(t, out.Records, 1)
		assert.Equal(t, "next", out.Cursor)
		assert.True(t, out.HasMore)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects an invalid cursor", func(t *testing.T) {
		service := NewKnowledgeService(new(MockKnowledgeRepository), new(MockEmbeddingClient), testConfig())

		_, err := service.List(ctx, ListInput{Cursor: "%%%not-base64%%%"})

		require.ErrorIs(t, err, domain.ErrInvalidCursor)
	})

	t.Run("defaults the page size", func(t *testing.T) {
		mockRepo := new(MockKnowledgeRepository)
		service := NewKnowledgeService(mockRepo, new(MockEmbeddingClient), testConfig())

		mockRepo.On("List", mock.Anything, (*pagination.Cursor)(nil), 20).
			Return(&KnowledgePage{Records: []*domain.KnowledgeRecord{}}, nil)

		_, err := service.List(ctx, ListInput{})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}
