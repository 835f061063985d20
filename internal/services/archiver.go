package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/storage"
)

// ArchiverConfig holds configuration for the archive stage.
type ArchiverConfig struct {
	IntakeBucket  string
	ResultsBucket string
	ArchiveBucket string
	RetentionDays int
}

// ArchiverFunction runs the archive stage: copy the original document (and
// the recognized text, when present) into a type/time-partitioned archive
// path, then write the manifest marking the operation complete.
//
// Every invocation derives a fresh timestamp, so a redelivered message
// produces an additional archive entry rather than overwriting the previous
// one. History accumulates; that is the intended trade-off.
type ArchiverFunction struct {
	store     storage.ObjectStore
	publisher bus.Publisher
	config    ArchiverConfig

	now func() time.Time
}

// NewArchiver creates an ArchiverFunction with its collaborators injected.
func NewArchiver(store storage.ObjectStore, publisher bus.Publisher, config ArchiverConfig) *ArchiverFunction {
	if config.RetentionDays <= 0 {
		config.RetentionDays = 30
	}
	return &ArchiverFunction{
		store:     store,
		publisher: publisher,
		config:    config,
		now:       time.Now,
	}
}

// Process handles one stage-complete message. Only recognition completions
// trigger archival; every other message on the shared topic is acknowledged
// and skipped.
func (f *ArchiverFunction) Process(ctx context.Context, msg bus.StageComplete) error {
	logCtx := slog.With("documentId", msg.DocumentID)
	if msg.Status != bus.StatusOCRCompleted {
		logCtx.Info("Skipping message not addressed to the archive stage.", "status", msg.Status)
		return nil
	}
	logCtx.Info("Starting archival.")

	docType := msg.DocumentType
	if !docType.Valid() {
		docType = models.TypeGeneral
	}

	archivedAt := f.now().UTC()
	timestamp := archivedAt.Format(models.ArchiveTimeFormat)
	archivePath := models.ArchivePartition(docType, timestamp, msg.DocumentID)

	var textArchivePath string
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := f.store.Copy(gctx, f.config.IntakeBucket, msg.DocumentID, f.config.ArchiveBucket, archivePath); err != nil {
			return fmt.Errorf("failed to copy original document: %w", err)
		}
		return nil
	})
	if msg.ArtifactPath != "" {
		textArchivePath = models.ArchivedTextPath(docType, timestamp, msg.DocumentID)
		textSource := msg.ArtifactPath
		eg.Go(func() error {
			if err := f.store.Copy(gctx, f.config.ResultsBucket, textSource, f.config.ArchiveBucket, textArchivePath); err != nil {
				return fmt.Errorf("failed to copy recognized text: %w", err)
			}
			return nil
		})
	}
	// Any copy failure aborts before the manifest write, so a half-finished
	// partition never carries a completion marker.
	if err := eg.Wait(); err != nil {
		logCtx.Error("Archival aborted before manifest write.", "error", err)
		return err
	}

	manifest := models.Manifest{
		OriginalDocumentID:        msg.DocumentID,
		ArchivedAt:                archivedAt,
		DocumentType:              docType,
		ArchivePath:               archivePath,
		RecognizedTextArchivePath: textArchivePath,
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	manifestPath := models.ArchiveManifestPath(docType, timestamp)
	if err := f.store.Put(ctx, f.config.ArchiveBucket, manifestPath, manifestData, "application/json"); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	completion := bus.StageComplete{
		DocumentID:   msg.DocumentID,
		DocumentType: docType,
		Stage:        bus.StageArchive,
		Status:       bus.StatusBackupCompleted,
		ArtifactPath: archivePath,
		Timestamp:    archivedAt,
	}
	if err := f.publisher.Publish(ctx, completion); err != nil {
		return fmt.Errorf("failed to publish archive completion: %w", err)
	}

	logCtx.Info("Archival complete.", "archivePath", archivePath)
	return nil
}

// SweepExpired deletes archive objects older than the retention window.
// This is a maintenance job off the critical path: individual failures are
// logged and swallowed, and the sweep always reports how much it removed.
func (f *ArchiverFunction) SweepExpired(ctx context.Context) int {
	cutoff := f.now().Add(-time.Duration(f.config.RetentionDays) * 24 * time.Hour)
	slog.Info("Starting retention sweep.", "bucket", f.config.ArchiveBucket, "cutoff", cutoff)

	infos, err := f.store.List(ctx, f.config.ArchiveBucket, "")
	if err != nil {
		slog.Error("Retention sweep could not list archive objects.", "error", err)
		return 0
	}

	deleted := 0
	for _, info := range infos {
		if !info.Created.Before(cutoff) {
			continue
		}
		if err := f.store.Delete(ctx, f.config.ArchiveBucket, info.Path); err != nil {
			slog.Error("Failed to delete expired archive object.", "path", info.Path, "error", err)
			continue
		}
		deleted++
	}
	slog.Info("Retention sweep finished.", "deleted", deleted)
	return deleted
}
