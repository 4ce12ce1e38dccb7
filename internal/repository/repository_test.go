package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mementolab/recall/internal/config"
	"github.com/mementolab/recall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileBackend(t *testing.T) {
	cfg := &config.Config{
		StoreBackend:        BackendFile,
		DataFile:            filepath.Join(t.TempDir(), "knowledge.jsonl"),
		EmbeddingDimensions: 4,
	}

	repo, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()

	assert.IsType(t, &FileRepository{}, repo)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := &config.Config{StoreBackend: "etcd"}

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)
	assert.Contains(t, err.Error(), "etcd")
}
