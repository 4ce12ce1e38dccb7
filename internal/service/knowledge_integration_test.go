//go:build integration

package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/repository"
	"github.com/mementolab/recall/internal/service"
	"github.com/mementolab/recall/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationDims = 4

// mapEmbedder returns canned vectors keyed by exact text. Unknown text is an
// error so a test never silently embeds the wrong thing.
type mapEmbedder struct {
	vectors map[string][]float64
}

func (e *mapEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no canned vector for %q", text)
	}
	return vec, nil
}

func (e *mapEmbedder) Dimensions() int { return integrationDims }

func TestKnowledgeServiceIntegration_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	const (
		interfacesDoc = "Go interfaces are satisfied implicitly."
		channelsDoc   = "Channels connect concurrent goroutines."
		mvccDoc       = "Postgres uses MVCC for concurrent transactions."
	)

	embedder := &mapEmbedder{vectors: map[string][]float64{
		interfacesDoc:                 {1, 0, 0, 0},
		channelsDoc:                   {0, 1, 0, 0},
		mvccDoc:                       {0, 0, 1, 0},
		"how do interfaces work":      {1, 0, 0, 0},
		"database concurrency":        {0, 0, 1, 0},
		"Go interfaces are implicit.": {0.95, 0.05, 0, 0},
	}}

	repo := repository.NewPostgresRepository(pool, integrationDims)
	svc := service.NewKnowledgeService(repo, embedder, service.KnowledgeConfig{DuplicateThreshold: 0.8})

	t.Run("ingests single-chunk content with metadata", func(t *testing.T) {
		result, err := svc.Add(ctx, service.AddInput{
			Content: interfacesDoc,
			Metadata: domain.Metadata{
				Source:   "Effective Go",
				Date:     "2026-08-25",
				Category: "golang",
				Title:    "Interfaces",
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Chunks)
		require.Len(t, result.IDs, 1)
		assert.Zero(t, result.Duplicates)
		assert.Zero(t, result.Failed)

		stored, err := svc.Get(ctx, result.IDs[0])
		require.NoError(t, err)
		assert.Equal(t, interfacesDoc, stored.Content)
		assert.Equal(t, "Effective Go", stored.Source)
		assert.Equal(t, "golang", stored.Category)
		assert.Equal(t, []float64{1, 0, 0, 0}, stored.Vector)
	})

	t.Run("ranks results by cosine similarity", func(t *testing.T) {
		_, err := svc.Add(ctx, service.AddInput{Content: channelsDoc})
		require.NoError(t, err)

		results, err := svc.Search(ctx, service.SearchParams{Query: "how do interfaces work", Limit: 5})
		require.NoError(t, err)

		require.Len(t, results, 2)
		assert.Equal(t, interfacesDoc, results[0].Record.Content)
		assert.InDelta(t, 1.0, results[0].Score, 1e-9)
		assert.Equal(t, channelsDoc, results[1].Record.Content)
		assert.InDelta(t, 0.0, results[1].Score, 1e-9)
	})

	t.Run("threshold drops weak matches", func(t *testing.T) {
		threshold := 0.5
		results, err := svc.Search(ctx, service.SearchParams{
			Query:     "how do interfaces work",
			Limit:     5,
			Threshold: &threshold,
		})
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, interfacesDoc, results[0].Record.Content)
	})

	t.Run("category filter narrows candidates", func(t *testing.T) {
		_, err := svc.Add(ctx, service.AddInput{
			Content:  mvccDoc,
			Metadata: domain.Metadata{Category: "databases"},
		})
		require.NoError(t, err)

		results, err := svc.Search(ctx, service.SearchParams{
			Query:    "database concurrency",
			Limit:    5,
			Category: "databases",
		})
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, mvccDoc, results[0].Record.Content)
	})

	t.Run("exact duplicate content is skipped", func(t *testing.T) {
		result, err := svc.Add(ctx, service.AddInput{Content: interfacesDoc})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Chunks)
		assert.Empty(t, result.IDs)
		assert.Equal(t, 1, result.Duplicates)
	})

	t.Run("near duplicate content is skipped by similarity", func(t *testing.T) {
		// cos([0.95,0.05,0,0], [1,0,0,0]) ≈ 0.9986, above the 0.8 threshold.
		result, err := svc.Add(ctx, service.AddInput{Content: "Go interfaces are implicit."})
		require.NoError(t, err)

		assert.Empty(t, result.IDs)
		assert.Equal(t, 1, result.Duplicates)
	})
}

func TestKnowledgeServiceIntegration_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	const doc = "Context carries deadlines across API boundaries."

	embedder := &mapEmbedder{vectors: map[string][]float64{
		doc: {0, 0, 0, 1},
	}}

	repo := repository.NewPostgresRepository(pool, integrationDims)
	svc := service.NewKnowledgeService(repo, embedder, service.KnowledgeConfig{})

	t.Run("deleted record is gone and can be re-added", func(t *testing.T) {
		added, err := svc.Add(ctx, service.AddInput{Content: doc})
		require.NoError(t, err)
		require.Len(t, added.IDs, 1)
		id := added.IDs[0]

		require.NoError(t, svc.Delete(ctx, id))

		_, err = svc.Get(ctx, id)
		require.ErrorIs(t, err, domain.ErrRecordNotFound)

		// The slot is free again: identical content no longer trips the guard.
		readded, err := svc.Add(ctx, service.AddInput{Content: doc})
		require.NoError(t, err)
		assert.Len(t, readded.IDs, 1)
		assert.Zero(t, readded.Duplicates)
	})

	t.Run("deleting a missing record reports not found", func(t *testing.T) {
		err := svc.Delete(ctx, uuid.NewString())
		require.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func TestKnowledgeServiceIntegration_ListStatsCleanup(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docs := []string{
		"First note about deployments.",
		"Second note about migrations.",
		"Third note about rollbacks.",
	}
	vectors := map[string][]float64{
		docs[0]: {1, 0, 0, 0},
		docs[1]: {0, 1, 0, 0},
		docs[2]: {0, 0, 1, 0},
	}

	embedder := &mapEmbedder{vectors: vectors}
	repo := repository.NewPostgresRepository(pool, integrationDims)
	svc := service.NewKnowledgeService(repo, embedder, service.KnowledgeConfig{})

	sources := []string{"runbook", "runbook", "postmortem"}
	for i, doc := range docs {
		_, err := svc.Add(ctx, service.AddInput{
			Content:  doc,
			Metadata: domain.Metadata{Source: sources[i]},
		})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	t.Run("lists newest first with keyset pagination", func(t *testing.T) {
		page1, err := svc.List(ctx, service.ListInput{Limit: 2})
		require.NoError(t, err)

		require.Len(t, page1.Records, 2)
		assert.Equal(t, docs[2], page1.Records[0].Content)
		assert.Equal(t, docs[1], page1.Records[1].Content)
		assert.True(t, page1.HasMore)
		require.NotEmpty(t, page1.Cursor)

		page2, err := svc.List(ctx, service.ListInput{Limit: 2, Cursor: page1.Cursor})
		require.NoError(t, err)

		require.Len(t, page2.Records, 1)
		assert.Equal(t, docs[0], page2.Records[0].Content)
		assert.False(t, page2.HasMore)
	})

	t.Run("stats aggregate counts and time bounds", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.RecordCount)
		assert.Equal(t, int64(2), stats.DistinctSources)
		require.NotNil(t, stats.Oldest)
		require.NotNil(t, stats.Newest)
		assert.False(t, stats.Newest.Before(*stats.Oldest))
	})

	t.Run("cleanup deletes only records older than the cutoff", func(t *testing.T) {
		old := domain.NewKnowledgeRecord(
			uuid.NewString(),
			"stale note",
			[]float64{0, 0, 0, 1},
			domain.Metadata{Source: "archive"},
			time.Now().UTC().AddDate(0, 0, -100),
		)
		require.NoError(t, repo.Insert(ctx, old))

		deleted, err := svc.Cleanup(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.RecordCount)
	})

	t.Run("cleanup with zero days removes everything", func(t *testing.T) {
		deleted, err := svc.Cleanup(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.RecordCount)
		assert.Nil(t, stats.Oldest)
		assert.Nil(t, stats.Newest)
	})
}
