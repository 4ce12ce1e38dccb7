package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/pagination"
	"github.com/mementolab/recall/internal/telemetry"
	"github.com/mementolab/recall/internal/vector"
)

// KnowledgeRepository is the persistence contract shared by the file and
// postgres backends. Backends only persist; ranking and duplicate detection
// run in-process over the candidates they return.
type KnowledgeRepository interface {
	Insert(ctx context.Context, rec *domain.KnowledgeRecord) error
	Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error)
	Delete(ctx context.Context, id string) error
	Candidates(ctx context.Context, category string) ([]*domain.KnowledgeRecord, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) (*KnowledgePage, error)
	Stats(ctx context.Context) (*domain.KnowledgeStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// KnowledgePage is one page of a keyset-paginated record listing.
type KnowledgePage struct {
	Records    []*domain.KnowledgeRecord
	NextCursor string
	HasMore    bool
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// NoKnowledgeFound is the formatted-search result when nothing qualifies.
const NoKnowledgeFound = "No relevant knowledge found."

const resultSeparator = "\n\n---\n\n"

// KnowledgeConfig carries the tunable ingestion and search parameters.
type KnowledgeConfig struct {
	Chunk              ChunkConfig
	MaxContentChars    int
	DuplicateThreshold float64
	SearchLimit        int
}

// DefaultKnowledgeConfig returns the default service configuration.
func DefaultKnowledgeConfig() KnowledgeConfig {
	return KnowledgeConfig{
		Chunk:              DefaultChunkConfig(),
		MaxContentChars:    2000,
		DuplicateThreshold: DefaultDuplicateThreshold,
		SearchLimit:        5,
	}
}

// KnowledgeService owns the store contract: ingestion, similarity search,
// stats and age-based cleanup.
type KnowledgeService struct {
	repo     KnowledgeRepository
	embedder EmbeddingClient
	guard    *DuplicateGuard
	cfg      KnowledgeConfig
	uuidGen  UUIDGenerator
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(repo KnowledgeRepository, embedder EmbeddingClient, cfg KnowledgeConfig) *KnowledgeService {
	return NewKnowledgeServiceWithUUIDGen(repo, embedder, cfg, &DefaultUUIDGenerator{})
}

// NewKnowledgeServiceWithUUIDGen creates a new KnowledgeService with custom UUID generator (for testing)
func NewKnowledgeServiceWithUUIDGen(repo KnowledgeRepository, embedder EmbeddingClient, cfg KnowledgeConfig, uuidGen UUIDGenerator) *KnowledgeService {
	if cfg.Chunk.Size <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = DefaultKnowledgeConfig().MaxContentChars
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultKnowledgeConfig().SearchLimit
	}
	return &KnowledgeService{
		repo:     repo,
		embedder: embedder,
		guard:    NewDuplicateGuard(cfg.DuplicateThreshold),
		cfg:      cfg,
		uuidGen:  uuidGen,
	}
}

// AddInput represents one ingestion request.
type AddInput struct {
	Content  string
	Metadata domain.Metadata
}

// SearchParams selects and bounds one similarity search. A nil Threshold
// disables threshold filtering; Limit 0 falls back to the configured default.
type SearchParams struct {
	Query     string
	Limit     int
	Threshold *float64
	Category  string
}

// ListInput represents input for a paginated record listing.
type ListInput struct {
	Cursor string
	Limit  int
}

// ListOutput represents one page of records.
type ListOutput struct {
	Records []*domain.KnowledgeRecord
	Cursor  string
	HasMore bool
}

// Add ingests content: chunk, guard, embed, guard again, persist. A chunk
// whose embedding call fails is logged and skipped; the remaining chunks
// continue. Partial ingestion is success, reported through the counts.
func (s *KnowledgeService) Add(ctx context.Context, input AddInput) (*domain.AddResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Add", telemetry.SpanAttributes{
		Category:  input.Metadata.Category,
		Operation: "add",
	})
	defer span.End()

	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrEmptyContent
	}

	chunks := chunkText(input.Content, s.cfg.Chunk)
	result := &domain.AddResult{Chunks: len(chunks)}

	existing, err := s.repo.Candidates(ctx, "")
	if err != nil {
		return nil, err
	}

	for i, chunk := range chunks {
		chunk = truncateRunes(chunk, s.cfg.MaxContentChars)

		// Exact-match check before spending an embedding call.
		if s.guard.IsDuplicate(chunk, nil, existing) {
			result.Duplicates++
			log.Printf("knowledge_chunk_duplicate: chunk %d/%d matches existing content exactly", i+1, len(chunks))
			continue
		}

		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			log.Printf("knowledge_chunk_skipped: chunk %d/%d embedding failed: %v", i+1, len(chunks), err)
			telemetry.CaptureError(ctx, err)
			continue
		}

		if s.guard.IsDuplicate(chunk, vec, existing) {
			result.Duplicates++
			log.Printf("knowledge_chunk_duplicate: chunk %d/%d similar to existing content", i+1, len(chunks))
			continue
		}

		rec := domain.NewKnowledgeRecord(s.uuidGen.NewString(), chunk, vec, input.Metadata, time.Now().UTC())
		if err := s.repo.Insert(ctx, rec); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				return nil, err
			}
			result.Failed++
			log.Printf("knowledge_chunk_skipped: chunk %d/%d insert failed: %v", i+1, len(chunks), err)
			telemetry.CaptureError(ctx, err)
			continue
		}

		existing = append(existing, rec)
		result.IDs = append(result.IDs, rec.ID)
	}

	return result, nil
}

// Search embeds the query and ranks the stored candidates by cosine
// similarity. A provider failure here is an infrastructure error, distinct
// from an empty result.
func (s *KnowledgeService) Search(ctx context.Context, params SearchParams) ([]*domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Search", telemetry.SpanAttributes{
		Category:  params.Category,
		Operation: "search",
	})
	defer span.End()

	if strings.TrimSpace(params.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if params.Limit < 0 {
		return nil, domain.ErrInvalidLimit
	}

	limit := params.Limit
	if limit == 0 {
		limit = s.cfg.SearchLimit
	}

	queryVec, err := s.embedder.Embed(ctx, params.Query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "embedding the query failed", err)
	}

	candidates, err := s.repo.Candidates(ctx, params.Category)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*domain.SearchResult{}, nil
	}

	vectors := make([][]float64, len(candidates))
	for i, rec := range candidates {
		vectors[i] = rec.Vector
	}

	ranked, err := vector.Rank(queryVec, vectors, limit, params.Threshold)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "ranking candidates failed", err)
	}

	results := make([]*domain.SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = &domain.SearchResult{Record: candidates[r.Index], Score: r.Score}
	}
	return results, nil
}

// SearchFormatted runs Search and renders the results as text passages.
func (s *KnowledgeService) SearchFormatted(ctx context.Context, params SearchParams) (string, error) {
	results, err := s.Search(ctx, params)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}

// Get returns a single record by ID.
func (s *KnowledgeService) Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Get", telemetry.SpanAttributes{
		RecordID:  id,
		Operation: "get",
	})
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrRecordNotFound
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a single record by ID. Deleting a missing record reports
// ErrRecordNotFound.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Delete", telemetry.SpanAttributes{
		RecordID:  id,
		Operation: "delete",
	})
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return domain.ErrRecordNotFound
	}
	return s.repo.Delete(ctx, id)
}

// Stats returns the read-only aggregate over all active records.
func (s *KnowledgeService) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Stats", telemetry.SpanAttributes{
		Operation: "stats",
	})
	defer span.End()

	return s.repo.Stats(ctx)
}

// Cleanup deletes records created strictly before now minus maxAgeDays.
// A record created exactly at the cutoff is kept.
func (s *KnowledgeService) Cleanup(ctx context.Context, maxAgeDays int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Cleanup", telemetry.SpanAttributes{
		Operation: "cleanup",
	})
	defer span.End()

	if maxAgeDays < 0 {
		return 0, domain.ErrInvalidMaxAge
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	if deleted > 0 {
		log.Printf("knowledge_cleanup: deleted %d records older than %d days", deleted, maxAgeDays)
	}
	return deleted, nil
}

// List returns one page of records, newest first.
func (s *KnowledgeService) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	page, err := s.repo.List(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Records: page.Records,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// FormatResults renders search results in the caller-facing passage form:
// a "[Source: <title> (<date>)]" header line followed by the content, with
// passages joined by a separator line.
func FormatResults(results []*domain.SearchResult) string {
	if len(results) == 0 {
		return NoKnowledgeFound
	}

	passages := make([]string, len(results))
	for i, res := range results {
		passages[i] = fmt.Sprintf("[Source: %s (%s)]\n%s",
			displayTitle(res.Record), displayDate(res.Record), res.Record.Content)
	}
	return strings.Join(passages, resultSeparator)
}

func displayTitle(rec *domain.KnowledgeRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	if rec.Source != "" {
		return rec.Source
	}
	return "unknown"
}

func displayDate(rec *domain.KnowledgeRecord) string {
	if rec.Date != "" {
		return rec.Date
	}
	return "undated"
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
