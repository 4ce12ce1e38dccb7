package service

import (
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/vector"
)

// DefaultDuplicateThreshold is the cosine similarity above which content is
// considered a near duplicate.
const DefaultDuplicateThreshold = 0.8

// DuplicateGuard decides whether candidate content is materially identical to
// content already in the store. The exact-string path is cheap and always
// runs first; the cosine path costs one comparison per existing record and
// stops at the first hit.
type DuplicateGuard struct {
	threshold float64
}

func NewDuplicateGuard(threshold float64) *DuplicateGuard {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &DuplicateGuard{threshold: threshold}
}

// IsDuplicate reports whether content duplicates any record in existing.
// With a nil vec only the exact-string path runs. With a vector, a record
// whose cosine similarity strictly exceeds the threshold counts as a
// duplicate; similarity exactly at the threshold does not.
//
// The guard is advisory: two concurrent inserts of identical content may
// both pass. It protects against redundant growth, not races.
func (g *DuplicateGuard) IsDuplicate(content string, vec []float64, existing []*domain.KnowledgeRecord) bool {
	for _, rec := range existing {
		if rec.Content == content {
			return true
		}
	}

	if vec == nil {
		return false
	}

	for _, rec := range existing {
		sim, err := vector.Cosine(vec, rec.Vector)
		if err != nil {
			continue
		}
		if sim > g.threshold {
			return true
		}
	}
	return false
}

// Threshold returns the configured similarity threshold.
func (g *DuplicateGuard) Threshold() float64 {
	return g.threshold
}
