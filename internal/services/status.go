package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/storage"
)

// ResolverConfig holds configuration for the status resolver.
type ResolverConfig struct {
	IntakeBucket  string
	ResultsBucket string
	ArchiveBucket string
}

// StatusResolver reconstructs a document's pipeline progress from artifact
// presence alone. It is synchronous, read-only, and stateless: every call
// re-probes storage, so the answer always reflects current storage state.
type StatusResolver struct {
	store  storage.ObjectStore
	config ResolverConfig
}

// NewStatusResolver creates a StatusResolver over the given store.
func NewStatusResolver(store storage.ObjectStore, config ResolverConfig) *StatusResolver {
	return &StatusResolver{store: store, config: config}
}

// Resolve derives the pipeline status for a document. The overall state is
// completed only when all three stage artifacts exist; a missing original
// reports not_found regardless of what else is present.
func (r *StatusResolver) Resolve(ctx context.Context, documentID string) (*models.DocumentStatus, error) {
	status := &models.DocumentStatus{
		DocumentID: documentID,
		CheckedAt:  time.Now().UTC(),
	}

	originalExists, err := r.store.Exists(ctx, r.config.IntakeBucket, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check original document: %w", err)
	}
	if !originalExists {
		status.State = models.StateNotFound
		return status, nil
	}

	status.OCRCompleted, err = r.store.Exists(ctx, r.config.ResultsBucket, models.OCRResultPath(documentID))
	if err != nil {
		return nil, fmt.Errorf("failed to check recognition artifact: %w", err)
	}

	status.BackupPath, err = r.findArchiveEntry(ctx, documentID)
	if err != nil {
		return nil, err
	}
	status.BackupCompleted = status.BackupPath != ""

	status.ExtractionCompleted, err = r.store.Exists(ctx, r.config.ResultsBucket, models.ExtractionResultPath(documentID))
	if err != nil {
		return nil, fmt.Errorf("failed to check extraction artifact: %w", err)
	}

	if status.OCRCompleted && status.BackupCompleted && status.ExtractionCompleted {
		status.State = models.StateCompleted
	} else {
		status.State = models.StateProcessing
	}
	return status, nil
}

// Info assembles everything the pipeline has produced for a document: the
// recognized text, the extraction result, and the archive location.
func (r *StatusResolver) Info(ctx context.Context, documentID string) (*models.DocumentInfo, error) {
	originalExists, err := r.store.Exists(ctx, r.config.IntakeBucket, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check original document: %w", err)
	}
	if !originalExists {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	info := &models.DocumentInfo{
		DocumentID:   documentID,
		DocumentType: models.TypeGeneral,
	}

	if text, err := r.store.Get(ctx, r.config.ResultsBucket, models.OCRResultPath(documentID)); err == nil {
		info.OCRText = string(text)
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("failed to fetch recognized text: %w", err)
	}

	if data, err := r.store.Get(ctx, r.config.ResultsBucket, models.ExtractionResultPath(documentID)); err == nil {
		var result models.ExtractionResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode extraction result: %w", err)
		}
		info.ExtractedInfo = &result
		if result.DocumentType.Valid() {
			info.DocumentType = result.DocumentType
		}
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("failed to fetch extraction result: %w", err)
	}

	info.BackupPath, err = r.findArchiveEntry(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// findArchiveEntry scans the archive's per-type prefixes for any object whose
// path contains the document id, stopping at the first match. The scan is
// linear in the archive size; it trades query cost for having no state to
// keep consistent.
func (r *StatusResolver) findArchiveEntry(ctx context.Context, documentID string) (string, error) {
	for _, docType := range models.DocumentTypes() {
		infos, err := r.store.List(ctx, r.config.ArchiveBucket, string(docType)+"/")
		if err != nil {
			return "", fmt.Errorf("failed to list archive prefix %s: %w", docType, err)
		}
		for _, info := range infos {
			if strings.Contains(info.Path, documentID) {
				return info.Path, nil
			}
		}
	}
	return "", nil
}
