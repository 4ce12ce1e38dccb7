package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/vector"
)

// recordLine is the portable form of a knowledge record: one JSON object per
// line, with the vector carried as base64 of its binary encoding. The file
// backend stores exactly this layout, and snapshot export/import exchanges it.
type recordLine struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Vector    string `json:"vector"`
	Source    string `json:"source,omitempty"`
	Date      string `json:"date,omitempty"`
	Category  string `json:"category,omitempty"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
}

// MarshalRecordLine encodes a record as a single JSON line, without a
// trailing newline.
func MarshalRecordLine(rec *domain.KnowledgeRecord) ([]byte, error) {
	line := recordLine{
		ID:        rec.ID,
		Content:   rec.Content,
		Vector:    base64.StdEncoding.EncodeToString(vector.Encode(rec.Vector)),
		Source:    rec.Source,
		Date:      rec.Date,
		Category:  rec.Category,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(line)
}

// UnmarshalRecordLine decodes one JSON line back into a record and validates
// it. The vector bytes round-trip bit for bit through the base64 encoding.
func UnmarshalRecordLine(data []byte) (*domain.KnowledgeRecord, error) {
	var line recordLine
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCorruptedData, "record line is not valid JSON", err)
	}

	blob, err := base64.StdEncoding.DecodeString(line.Vector)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCorruptedData, fmt.Sprintf("record %s: vector is not valid base64", line.ID), err)
	}

	vec, err := vector.Decode(blob)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCorruptedData, fmt.Sprintf("record %s: %v", line.ID, err), domain.ErrCorruptedVector)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, line.CreatedAt)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeCorruptedData, fmt.Sprintf("record %s: invalid created_at", line.ID), err)
	}

	rec := domain.NewKnowledgeRecord(line.ID, line.Content, vec, domain.Metadata{
		Source:   line.Source,
		Date:     line.Date,
		Category: line.Category,
		Title:    line.Title,
	}, createdAt)

	if err := domain.ValidateKnowledgeRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
