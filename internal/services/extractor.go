package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/storage"
)

// DocumentExtractor is the structured-extraction capability consumed by the
// extraction stage.
type DocumentExtractor interface {
	Extract(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error)
}

// typeFieldHints names the entity-type substrings that select fields for the
// type-specific extraction pass. Report and general documents have no extra
// pass.
var typeFieldHints = map[models.DocumentType][]string{
	models.TypeInvoice:        {"invoice_number", "date", "total_amount", "vendor_name", "customer_name"},
	models.TypeContract:       {"contract_number", "start_date", "end_date", "parties", "amount"},
	models.TypeIdentification: {"id_number", "name", "date_of_birth", "expiry_date", "nationality"},
}

// mimeTypes maps intake file extensions to the MIME type handed to the
// extraction engine. Anything unknown defaults to PDF, matching what the
// upload surface admits.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
}

// ExtractorConfig holds configuration for the extraction stage.
type ExtractorConfig struct {
	IntakeBucket  string
	ResultsBucket string
}

// ExtractorFunction runs the extraction stage: fetch the original document,
// run structured extraction, normalize into the result schema with the
// type-specific pass layered in, and write the JSON artifact. The artifact is
// uploaded in a single write and overwritten on redelivery, so the stage is
// idempotent.
type ExtractorFunction struct {
	store     storage.ObjectStore
	publisher bus.Publisher
	engine    DocumentExtractor
	config    ExtractorConfig
}

// NewExtractor creates an ExtractorFunction with its collaborators injected.
func NewExtractor(store storage.ObjectStore, publisher bus.Publisher, engine DocumentExtractor, config ExtractorConfig) *ExtractorFunction {
	return &ExtractorFunction{
		store:     store,
		publisher: publisher,
		engine:    engine,
		config:    config,
	}
}

// Process handles one stage-complete message. Extraction depends only on the
// original document being present in intake, so it triggers on either
// upstream stage's completion and skips everything else on the topic.
func (f *ExtractorFunction) Process(ctx context.Context, msg bus.StageComplete) error {
	logCtx := slog.With("documentId", msg.DocumentID)
	switch msg.Status {
	case bus.StatusOCRCompleted, bus.StatusBackupCompleted:
	default:
		logCtx.Info("Skipping message not addressed to the extraction stage.", "status", msg.Status)
		return nil
	}
	logCtx.Info("Starting structured extraction.")

	content, err := f.store.Get(ctx, f.config.IntakeBucket, msg.DocumentID)
	if errors.Is(err, storage.ErrObjectNotExist) {
		logCtx.Error("Original document missing from intake.", "bucket", f.config.IntakeBucket)
		return Permanent(fmt.Errorf("%w: %s", ErrDocumentNotFound, msg.DocumentID))
	}
	if err != nil {
		return fmt.Errorf("failed to fetch original document: %w", err)
	}

	docType := msg.DocumentType
	if !docType.Valid() {
		docType = models.TypeGeneral
	}

	doc, err := f.engine.Extract(ctx, content, mimeTypeFor(msg.DocumentID))
	if err != nil {
		logCtx.Error("Structured extraction failed.", "error", err)
		return fmt.Errorf("extraction failed for %s: %w", msg.DocumentID, err)
	}

	result := buildResult(doc, docType)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal extraction result: %w", err)
	}

	resultPath := models.ExtractionResultPath(msg.DocumentID)
	if err := f.store.Put(ctx, f.config.ResultsBucket, resultPath, data, "application/json"); err != nil {
		return fmt.Errorf("failed to store extraction result: %w", err)
	}

	completion := bus.StageComplete{
		DocumentID:      msg.DocumentID,
		DocumentType:    docType,
		Stage:           bus.StageExtraction,
		Status:          bus.StatusExtractionCompleted,
		ArtifactPath:    resultPath,
		ExtractedFields: sortedKeys(result.TypeSpecific),
		Timestamp:       time.Now().UTC(),
	}
	if err := f.publisher.Publish(ctx, completion); err != nil {
		return fmt.Errorf("failed to publish extraction completion: %w", err)
	}

	logCtx.Info("Structured extraction complete.", "resultPath", resultPath, "fieldCount", len(result.TypeSpecific))
	return nil
}

// buildResult transforms the engine's normalized document into the artifact
// schema, layering in the type-specific field pass.
func buildResult(doc *models.StructuredDocument, docType models.DocumentType) *models.ExtractionResult {
	result := &models.ExtractionResult{
		DocumentType:  docType,
		FullText:      doc.Text,
		PageCount:     doc.PageCount,
		Entities:      make(map[string][]models.EntityMention),
		KeyValuePairs: make(map[string]models.FieldValue),
		Tables:        []models.Table{},
		TypeSpecific:  make(map[string]models.FieldValue),
	}

	for _, entity := range doc.Entities {
		result.Entities[entity.Type] = append(result.Entities[entity.Type], models.EntityMention{
			Text:       entity.Text,
			Confidence: entity.Confidence,
			Page:       entity.Page,
		})
	}

	for _, field := range doc.FormFields {
		result.KeyValuePairs[field.Name] = models.FieldValue{
			Value:      field.Value,
			Confidence: field.Confidence,
			Page:       field.Page,
		}
	}

	for _, table := range doc.Tables {
		result.Tables = append(result.Tables, models.Table{Page: table.Page, Rows: table.Rows})
	}

	hints := typeFieldHints[docType]
	for _, entity := range doc.Entities {
		entityType := strings.ToLower(entity.Type)
		for _, hint := range hints {
			if strings.Contains(entityType, hint) {
				result.TypeSpecific[entityType] = models.FieldValue{
					Value:      entity.Text,
					Confidence: entity.Confidence,
				}
				break
			}
		}
	}
	return result
}

func mimeTypeFor(documentID string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(documentID))]; ok {
		return mime
	}
	return "application/pdf"
}

func sortedKeys(fields map[string]models.FieldValue) []string {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
