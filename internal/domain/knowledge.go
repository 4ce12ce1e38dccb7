package domain

import (
	"fmt"
	"strings"
	"time"
)

// Metadata carries the caller-supplied descriptors attached to every record
// produced from one ingestion call.
type Metadata struct {
	Source   string
	Date     string
	Category string
	Title    string
}

// KnowledgeRecord is the unit of storage: one embedded chunk of text together
// with its vector and metadata. Records are immutable after creation; an
// update is modeled as delete + re-add.
type KnowledgeRecord struct {
	ID        string
	Content   string
	Vector    []float64
	Source    string
	Date      string
	Category  string
	Title     string
	CreatedAt time.Time
}

// KnowledgeStats is the read-only aggregate over all active records.
type KnowledgeStats struct {
	RecordCount     int64
	DistinctSources int64
	Oldest          *time.Time
	Newest          *time.Time
}

// SearchResult pairs a record with its cosine similarity for one query.
type SearchResult struct {
	Record *KnowledgeRecord
	Score  float64
}

// AddResult reports the outcome of one ingestion call. Chunks is the number
// of chunks derived from the input; IDs holds the ids of the records that
// were actually persisted.
type AddResult struct {
	IDs        []string
	Chunks     int
	Duplicates int
	Failed     int
}

// NewKnowledgeRecord creates a new KnowledgeRecord instance
func NewKnowledgeRecord(
	id, content string,
	vector []float64,
	meta Metadata,
	createdAt time.Time,
) *KnowledgeRecord {
	return &KnowledgeRecord{
		ID:        id,
		Content:   content,
		Vector:    vector,
		Source:    meta.Source,
		Date:      meta.Date,
		Category:  meta.Category,
		Title:     meta.Title,
		CreatedAt: createdAt,
	}
}

// Meta returns the record's metadata fields as a Metadata value.
func (r *KnowledgeRecord) Meta() Metadata {
	return Metadata{
		Source:   r.Source,
		Date:     r.Date,
		Category: r.Category,
		Title:    r.Title,
	}
}

// ValidateKnowledgeRecord validates a KnowledgeRecord instance
func ValidateKnowledgeRecord(r *KnowledgeRecord) error {
	if r == nil {
		return fmt.Errorf("knowledge record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("knowledge record ID is required")
	}

	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("knowledge record Content is required")
	}

	if len(r.Vector) == 0 {
		return fmt.Errorf("knowledge record Vector is required")
	}

	if r.CreatedAt.IsZero() {
		return fmt.Errorf("knowledge record CreatedAt is required")
	}

	return nil
}
