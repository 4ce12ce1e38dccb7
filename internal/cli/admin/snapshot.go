package admin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mementolab/recall/internal/archive"
	"github.com/mementolab/recall/internal/config"
	"github.com/mementolab/recall/internal/repository"
	"github.com/mementolab/recall/internal/storage"
	"github.com/spf13/cobra"
)

// SnapshotCmd returns the snapshot command group
func SnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import knowledge snapshots",
		Long:  "Move the whole store through portable JSONL snapshots, on local disk or S3-compatible storage",
	}

	cmd.AddCommand(snapshotExportCmd())
	cmd.AddCommand(snapshotImportCmd())

	return cmd
}

func snapshotExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every record to a snapshot",
		RunE:  runSnapshotExport,
	}

	cmd.Flags().String("out", "", "Destination: a local path or s3://bucket/key (default: timestamped local file)")

	return cmd
}

func snapshotImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replay a snapshot into the store",
		Long:  "Replay a snapshot into the store; records whose IDs already exist are skipped",
		RunE:  runSnapshotImport,
	}

	cmd.Flags().String("in", "", "Source: a local path or s3://bucket/key")
	cmd.MarkFlagRequired("in")

	return cmd
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	repo, err := repository.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	defer repo.Close()

	svc := archive.NewService(repo)

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = fmt.Sprintf("recall-snapshot-%s.jsonl", time.Now().UTC().Format("20060102T150405Z"))
	}

	if strings.HasPrefix(out, "s3://") {
		bucket, key, err := parseS3URI(out)
		if err != nil {
			return err
		}
		client, err := newSnapshotS3Client(ctx, cfg, bucket)
		if err != nil {
			return err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure bucket: %w", err)
		}

		var buf bytes.Buffer
		count, err := svc.Export(ctx, &buf)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		if err := client.Upload(ctx, key, &buf); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to s3://%s/%s\n", count, bucket, key)
		return nil
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	count, err := svc.Export(ctx, f)
	if err != nil {
		f.Close()
		return fmt.Errorf("export failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", count, out)
	return nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	repo, err := repository.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	defer repo.Close()

	svc := archive.NewService(repo)

	in, _ := cmd.Flags().GetString("in")

	var reader io.ReadCloser
	if strings.HasPrefix(in, "s3://") {
		bucket, key, err := parseS3URI(in)
		if err != nil {
			return err
		}
		client, err := newSnapshotS3Client(ctx, cfg, bucket)
		if err != nil {
			return err
		}
		reader, err = client.Download(ctx, key)
		if err != nil {
			return err
		}
	} else {
		reader, err = os.Open(in)
		if err != nil {
			return fmt.Errorf("failed to open snapshot file: %w", err)
		}
	}
	defer reader.Close()

	result, err := svc.Import(ctx, reader)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, skipped %d duplicates\n", result.Imported, result.Skipped)
	return nil
}

// parseS3URI splits s3://bucket/key into its parts.
func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q (expected s3://bucket/key)", uri)
	}
	return parts[0], parts[1], nil
}

func newSnapshotS3Client(ctx context.Context, cfg *config.Config, bucket string) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 is not configured: set RECALL_S3_ENDPOINT, RECALL_S3_ACCESS_KEY_ID and RECALL_S3_SECRET_ACCESS_KEY")
	}
	return storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          bucket,
		UsePathStyle:    cfg.S3UsePathStyle,
	})
}
