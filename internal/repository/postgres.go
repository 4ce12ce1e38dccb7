package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/pagination"
	"github.com/mementolab/recall/internal/service"
	"github.com/mementolab/recall/internal/vector"
)

// PostgresRepository persists knowledge records in the knowledge_records
// table, holding each vector as its exact binary encoding in a BYTEA column.
type PostgresRepository struct {
	db   dbtx
	pool *pgxpool.Pool
	dims int
}

func NewPostgresRepository(pool *pgxpool.Pool, dims int) *PostgresRepository {
	return &PostgresRepository{db: pool, pool: pool, dims: dims}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.KnowledgeRecord) error {
	if err := domain.ValidateKnowledgeRecord(rec); err != nil {
		return err
	}
	if len(rec.Vector) != r.dims {
		return fmt.Errorf("record %s has %d dimensions, store expects %d: %w",
			rec.ID, len(rec.Vector), r.dims, domain.ErrDimensionMismatch)
	}

	cmdTag, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_records (id, content, vector, source, date, category, title, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Content, vector.Encode(rec.Vector),
		nullableString(rec.Source), nullableString(rec.Date), nullableString(rec.Category), nullableString(rec.Title),
		rec.CreatedAt,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrDuplicateRecord)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.KnowledgeRecord, error) {
	var rec domain.KnowledgeRecord
	var blob []byte
	var source, date, category, title *string

	err := r.db.QueryRow(ctx,
		`SELECT id, content, vector, source, date, category, title, created_at
		 FROM knowledge_records
		 WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Content, &blob, &source, &date, &category, &title, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
		}
		return nil, err
	}

	vec, err := vector.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, domain.ErrCorruptedVector)
	}
	rec.Vector = vec
	if source != nil {
		rec.Source = *source
	}
	if date != nil {
		rec.Date = *date
	}
	if category != nil {
		rec.Category = *category
	}
	if title != nil {
		rec.Title = *title
	}
	return &rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_records WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

// Candidates returns every record in insertion order, optionally filtered by
// exact category match.
func (r *PostgresRepository) Candidates(ctx context.Context, category string) ([]*domain.KnowledgeRecord, error) {
	query := `SELECT id, content, vector, source, date, category, title, created_at
		 FROM knowledge_records`
	args := []interface{}{}

	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}

	query += ` ORDER BY seq ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecordRows(rows)
}

func (r *PostgresRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.KnowledgePage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, content, vector, source, date, category, title, created_at
			 FROM knowledge_records
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, content, vector, source, date, category, title, created_at
			 FROM knowledge_records
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanRecordRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

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

func (r *PostgresRepository) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	var stats domain.KnowledgeStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source), MIN(created_at), MAX(created_at)
		 FROM knowledge_records`,
	).Scan(&stats.RecordCount, &stats.DistinctSources, &stats.Oldest, &stats.Newest)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteOlderThan removes records created strictly before cutoff. A record
// created exactly at cutoff survives.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_records WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func scanRecordRows(rows pgx.Rows) ([]*domain.KnowledgeRecord, error) {
	var results []*domain.KnowledgeRecord
	for rows.Next() {
		var rec domain.KnowledgeRecord
		var blob []byte
		var source, date, category, title *string
		if err := rows.Scan(&rec.ID, &rec.Content, &blob, &source, &date, &category, &title, &rec.CreatedAt); err != nil {
			return nil, err
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("record %s: %v: %w", rec.ID, err, domain.ErrCorruptedVector)
		}
		rec.Vector = vec
		if source != nil {
			rec.Source = *source
		}
		if date != nil {
			rec.Date = *date
		}
		if category != nil {
			rec.Category = *category
		}
		if title != nil {
			rec.Title = *title
		}
		results = append(results, &rec)
	}
	return results, rows.Err()
}
