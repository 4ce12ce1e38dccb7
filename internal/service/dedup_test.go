package service

import (
	"testing"
	"time"

	"github.com/mementolab/recall/internal/domain"
	"github.com/stretchr/testify/assert"
)

func guardRecord(id, content string, vec []float64) *domain.KnowledgeRecord {
	return domain.NewKnowledgeRecord(id, content, vec, domain.Metadata{}, time.Now().UTC())
}

func TestDuplicateGuard_IsDuplicate(t *testing.T) {
	guard := NewDuplicateGuard(0.8)

	t.Run("flags an exact content match without a vector", func(t *testing.T) {
		existing := []*domain.KnowledgeRecord{
			guardRecord("rec-1", "Go interfaces are satisfied implicitly.", []float64{1, 0}),
		}

		assert.True(t, guard.IsDuplicate("Go interfaces are satisfied implicitly.", nil, existing))
	})

	t.Run("passes different content when no vector is given", func(t *testing.T) {
		existing := []*domain.KnowledgeRecord{
			guardRecord("rec-1", "Go interfaces are satisfied implicitly.", []float64{1, 0}),
		}

		assert.False(t, guard.IsDuplicate("Channels synchronize goroutines.", nil, existing))
	})

	t.Run("flags a vector strictly above the threshold", func(t *testing.T) {
		existing := []*domain.KnowledgeRecord{
			guardRecord("rec-1", "stored", []float64{1, 0}),
		}

		assert.True(t, guard.IsDuplicate("incoming", []float64{0.9, 0.1}, existing))
	})

	t.Run("passes a vector exactly at the threshold", func(t *testing.T) {
		// Cosine of {4, 3} against {1, 0} is exactly 0.8.
		existing := []*domain.KnowledgeRecord{
			guardRecord("rec-1", "stored", []float64{4, 3}),
		}

		assert.False(t, guard.IsDuplicate("incoming", []float64{1, 0}, existing))
	})

	t.Run("passes a vector below the threshold", func(t *testing.T) {
		existing := []*domain.KnowledgeRecord{
			guardRecord("rec-1", "stored", []float64{0, 1}),
		}

		assert.False(t, guard.IsDuplicate("incoming", []float64{1, 0}, existing))
	})

	t.Run("skips candidates whose vectors cannot be compared", func(t *testing.T) {
		existing := []*domain.KnowledgeRecord{
			guardRecord("rec-1", "stored", []float64{1, 0, 0}),
		}

		assert.False(t, guard.IsDuplicate("incoming", []float64{1, 0}, existing))
	})

	t.Run("empty store never flags", func(t *testing.T) {
		assert.False(t, guard.IsDuplicate("anything", []float64{1, 0}, nil))
	})
}

func TestNewDuplicateGuard(t *testing.T) {
	t.Run("keeps a positive threshold", func(t *testing.T) {
		assert.Equal(t, 0.9, NewDuplicateGuard(0.9).Threshold())
	})

	t.Run("falls back to the default when the threshold is not positive", func(t *testing.T) {
		assert.Equal(t, DefaultDuplicateThreshold, NewDuplicateGuard(0).Threshold())
		assert.Equal(t, DefaultDuplicateThreshold, NewDuplicateGuard(-1).Threshold())
	})
}
