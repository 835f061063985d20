package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/storage"
)

// previewLimit caps the text excerpt carried in the completion message.
const previewLimit = 1000

// TextRecognizer is the text-recognition capability consumed by the
// recognition stage.
type TextRecognizer interface {
	Recognize(ctx context.Context, content []byte) (string, error)
}

// RecognizerConfig holds configuration for the recognition stage.
type RecognizerConfig struct {
	IntakeBucket  string
	ResultsBucket string
}

// RecognizerFunction runs the recognition stage: fetch the original document,
// recognize its text, write the text artifact, classify, and announce
// completion. Reprocessing the same notice overwrites the same artifact, so
// redelivery is safe.
type RecognizerFunction struct {
	store     storage.ObjectStore
	publisher bus.Publisher
	engine    TextRecognizer
	config    RecognizerConfig
}

// NewRecognizer creates a RecognizerFunction with its collaborators injected.
func NewRecognizer(store storage.ObjectStore, publisher bus.Publisher, engine TextRecognizer, config RecognizerConfig) *RecognizerFunction {
	return &RecognizerFunction{
		store:     store,
		publisher: publisher,
		engine:    engine,
		config:    config,
	}
}

// Process handles one intake arrival. Exactly one artifact write and one
// publish happen per successful invocation; on any error nothing partial
// remains visible.
func (f *RecognizerFunction) Process(ctx context.Context, notice bus.ArrivalNotice) error {
	logCtx := slog.With("documentId", notice.DocumentID)
	logCtx.Info("Starting text recognition.")

	content, err := f.store.Get(ctx, f.config.IntakeBucket, notice.DocumentID)
	if errors.Is(err, storage.ErrObjectNotExist) {
		logCtx.Error("Original document missing from intake.", "bucket", f.config.IntakeBucket)
		return Permanent(fmt.Errorf("%w: %s", ErrDocumentNotFound, notice.DocumentID))
	}
	if err != nil {
		return fmt.Errorf("failed to fetch original document: %w", err)
	}

	text, err := f.engine.Recognize(ctx, content)
	if err != nil {
		logCtx.Error("Text recognition failed.", "error", err)
		return fmt.Errorf("recognition failed for %s: %w", notice.DocumentID, err)
	}
	if text == "" {
		// An unreadable page is still a completed recognition: the empty
		// artifact is written and the document classifies as general.
		logCtx.Warn("No text recognized in document.")
	}

	resultPath := models.OCRResultPath(notice.DocumentID)
	if err := f.store.Put(ctx, f.config.ResultsBucket, resultPath, []byte(text), "text/plain"); err != nil {
		return fmt.Errorf("failed to store recognized text: %w", err)
	}

	docType := notice.DocumentType
	if docType == "" {
		docType = ClassifyText(text)
	}

	msg := bus.StageComplete{
		DocumentID:   notice.DocumentID,
		DocumentType: docType,
		Stage:        bus.StageRecognition,
		Status:       bus.StatusOCRCompleted,
		ArtifactPath: resultPath,
		TextPreview:  textPreview(text),
		Timestamp:    time.Now().UTC(),
	}
	if err := f.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish recognition completion: %w", err)
	}

	logCtx.Info("Text recognition complete.", "resultPath", resultPath, "documentType", docType)
	return nil
}

func textPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit])
}
