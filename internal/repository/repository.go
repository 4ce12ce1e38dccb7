package repository

import (
	"context"
	"fmt"

	"github.com/mementolab/recall/internal/config"
	"github.com/mementolab/recall/internal/database"
	"github.com/mementolab/recall/internal/domain"
	"github.com/mementolab/recall/internal/service"
)

// Backend names accepted by New.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// New builds the knowledge repository named by cfg.StoreBackend. The choice
// is made once, here; nothing switches backends at runtime.
func New(ctx context.Context, cfg *config.Config) (service.KnowledgeRepository, error) {
	switch cfg.StoreBackend {
	case BackendFile:
		return NewFileRepository(cfg.DataFile, cfg.EmbeddingDimensions)
	case BackendPostgres:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(pool, cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.StoreBackend)
	}
}
