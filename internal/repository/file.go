package repository

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/pagination"
	"github.com/mementolab/recall/internal/service"
)

// maxRecordLineBytes bounds a single line when reading the data file. A
// 1536-dimension vector alone encodes to roughly 16 KiB of base64, so the
// default bufio.Scanner limit is too tight.
const maxRecordLineBytes = 4 * 1024 * 1024

// FileRepository persists knowledge records as JSON lines in one flat file
// and serves reads from an in-memory working set. Records are immutable, so
// readers share the stored pointers.
type FileRepository struct {
	mu      sync.RWMutex
	path    string
	dims    int
	file    *os.File
	records []*domain.KnowledgeRecord
	byID    map[string]*domain.KnowledgeRecord
}

// NewFileRepository opens (creating if needed) the data file at path and
// loads every record into memory. A stored record whose vector length does
// not match dims fails the open.
func NewFileRepository(path string, dims int) (*FileRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	r := &FileRepository{
		path: path,
		dims: dims,
		byID: make(map[string]*domain.KnowledgeRecord),
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	r.file = f
	return r, nil
}

func (r *FileRepository) load() error {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := UnmarshalRecordLine(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", r.path, lineNo, err)
		}
		if len(rec.Vector) != r.dims {
			return fmt.Errorf("%s:%d: record %s has %d dimensions, store expects %d: %w",
				r.path, lineNo, rec.ID, len(rec.Vector), r.dims, domain.ErrDimensionMismatch)
		}
		if _, exists := r.byID[rec.ID]; exists {
			return fmt.Errorf("%s:%d: record %s: %w", r.path, lineNo, rec.ID, domain.ErrDuplicateRecord)
		}
		r.records = append(r.records, rec)
		r.byID[rec.ID] = rec
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read data file: %w", err)
	}
	return nil
}

func (r *FileRepository) Insert(ctx context.Context, rec *domain.KnowledgeRecord) error {
	if err := domain.ValidateKnowledgeRecord(rec); err != nil {
		return err
	}
	if len(rec.Vector) != r.dims {
		return fmt.Errorf("record %s has %d dimensions, store expects %d: %w",
			rec.ID, len(rec.Vector), r.dims, domain.ErrDimensionMismatch)
	}

	line, err := MarshalRecordLine(rec)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rec.ID]; exists {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrDuplicateRecord)
	}

	if _, err := r.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("sync data file: %w", err)
	}

	r.records = append(r.records, rec)
	r.byID[rec.ID] = rec
	return nil
}

func (r *FileRepository) Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	}
	return rec, nil
}

// Delete removes one record and compacts the data file.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	}

	kept := make([]*domain.KnowledgeRecord, 0, len(r.records)-1)
	for _, rec := range r.records {
		if rec.ID == id {
			continue
		}
		kept = append(kept, rec)
	}

	if err := r.rewrite(kept); err != nil {
		return err
	}

	r.records = kept
	delete(r.byID, id)
	return nil
}

// Candidates returns every record, in insertion order, optionally filtered
// by exact category match.
func (r *FileRepository) Candidates(ctx context.Context, category string) ([]*domain.KnowledgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*domain.KnowledgeRecord, 0, len(r.records))
	for _, rec := range r.records {
		if category != "" && rec.Category != category {
			continue
		}
		results = append(results, rec)
	}
	return results, nil
}

func (r *FileRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.KnowledgePage, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	sorted := make([]*domain.KnowledgeRecord, len(r.records))
	copy(sorted, r.records)
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})

	start := 0
	if cursor != nil {
		for start < len(sorted) {
			rec := sorted[start]
			if rec.CreatedAt.Before(cursor.Timestamp) ||
				(rec.CreatedAt.Equal(cursor.Timestamp) && rec.ID < cursor.LastID) {
				break
			}
			start++
		}
	}

	end := start + limit
	hasMore := end < len(sorted)
	if !hasMore {
		end = len(sorted)
	}
	items := sorted[start:end]

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.KnowledgePage{
		Records:    items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *FileRepository) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.KnowledgeStats{RecordCount: int64(len(r.records))}
	sources := make(map[string]struct{})
	for _, rec := range r.records {
		if rec.Source != "" {
			sources[rec.Source] = struct{}{}
		}
		if stats.Oldest == nil || rec.CreatedAt.Before(*stats.Oldest) {
			t := rec.CreatedAt
			stats.Oldest = &t
		}
		if stats.Newest == nil || rec.CreatedAt.After(*stats.Newest) {
			t := rec.CreatedAt
			stats.Newest = &t
		}
	}
	stats.DistinctSources = int64(len(sources))
	return stats, nil
}

// DeleteOlderThan removes records created strictly before cutoff. A record
// created exactly at cutoff survives. The data file is compacted when
// anything was removed.
func (r *FileRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*domain.KnowledgeRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, rec)
	}

	deleted := int64(len(r.records) - len(kept))
	if deleted == 0 {
		return 0, nil
	}

	if err := r.rewrite(kept); err != nil {
		return 0, err
	}

	r.records = kept
	r.byID = make(map[string]*domain.KnowledgeRecord, len(kept))
	for _, rec := range kept {
		r.byID[rec.ID] = rec
	}
	return deleted, nil
}

// rewrite compacts the data file: survivors go to a temp file in the same
// directory, which then replaces the original. Caller holds the write lock.
func (r *FileRepository) rewrite(records []*domain.KnowledgeRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".compact-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		line, err := MarshalRecordLine(rec)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("write temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen data file: %w", err)
	}
	r.file = f
	return nil
}

func (r *FileRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
