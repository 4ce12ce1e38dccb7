// Package archive moves knowledge snapshots between a running store and a
// portable JSONL stream. A snapshot line is the same wire format the file
// backend persists, so a file-backend data file is itself a valid snapshot.
package archive

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/repository"
	"github.com/mementolab/recall/internal/service"
)

// maxSnapshotLineBytes mirrors the file backend's line bound.
const maxSnapshotLineBytes = 4 * 1024 * 1024

// ImportResult reports what a snapshot import did.
type ImportResult struct {
	Imported int64
	Skipped  int64
}

// Service exports and imports snapshots against any knowledge repository.
type Service struct {
	repo service.KnowledgeRepository
}

func NewService(repo service.KnowledgeRepository) *Service {
	return &Service{repo: repo}
}

// Export writes every record, in insertion order, as one JSON line each.
// It returns the number of records written.
func (s *Service) Export(ctx context.Context, w io.Writer) (int64, error) {
	records, err := s.repo.Candidates(ctx, "")
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	var count int64
	for _, rec := range records {
		line, err := repository.MarshalRecordLine(rec)
		if err != nil {
			return count, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return count, fmt.Errorf("write snapshot: %w", err)
		}
		count++
	}
	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("flush snapshot: %w", err)
	}
	return count, nil
}

// Import replays a snapshot stream into the repository. Records keep their
// original IDs, vectors and timestamps. A record whose ID already exists is
// skipped; a corrupt line or a vector with the wrong dimensions aborts the
// import with the line position.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSnapshotLineBytes)

	result := &ImportResult{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		rec, err := repository.UnmarshalRecordLine(line)
		if err != nil {
			return result, fmt.Errorf("snapshot line %d: %w", lineNo, err)
		}

		if err := s.repo.Insert(ctx, rec); err != nil {
			if errors.Is(err, domain.ErrDuplicateRecord) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("snapshot line %d: %w", lineNo, err)
		}
		result.Imported++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read snapshot: %w", err)
	}

	log.Printf("snapshot_import: imported %d records, skipped %d duplicates", result.Imported, result.Skipped)
	return result, nil
}
