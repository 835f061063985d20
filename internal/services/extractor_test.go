package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acastillo/docpipeline/internal/bus"
	"github.com/acastillo/docpipeline/internal/models"
	"github.com/acastillo/docpipeline/internal/storage"
)

func newTestExtractor(store storage.ObjectStore, publisher bus.Publisher, engine DocumentExtractor) *ExtractorFunction {
	return NewExtractor(store, publisher, engine, ExtractorConfig{
		IntakeBucket:  testIntake,
		ResultsBucket: testResults,
	})
}

func invoiceDocument() *models.StructuredDocument {
	return &models.StructuredDocument{
		Text:      "FACTURA No. 42\nTotal: $1,000.00",
		PageCount: 2,
		Entities: []models.Entity{
			{Type: "invoice_number", Text: "42", Confidence: 0.98, Page: 1},
			{Type: "total_amount", Text: "$1,000.00", Confidence: 0.95, Page: 2},
			{Type: "shipping_address", Text: "Calle Falsa 123", Confidence: 0.80, Page: 1},
		},
		FormFields: []models.FormField{
			{Name: "Due date", Value: "2023-12-01", Confidence: 0.91, Page: 1},
		},
		Tables: []models.TableData{
			{Page: 2, Rows: [][]string{{"item", "price"}, {"widget", "$1,000.00"}}},
		},
	}
}

func TestExtractor_WritesResultAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	publisher := &capturePublisher{}
	engine := &stubExtractor{
		ExtractFunc: func(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
			return invoiceDocument(), nil
		},
	}
	require.NoError(t, store.Put(ctx, testIntake, "invoice.pdf", []byte("%PDF"), "application/pdf"))

	f := newTestExtractor(store, publisher, engine)
	msg := ocrCompleteMsg("invoice.pdf", models.TypeInvoice)
	require.NoError(t, f.Process(ctx, msg))

	data, err := store.Get(ctx, testResults, models.ExtractionResultPath("invoice.pdf"))
	require.NoError(t, err)
	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, models.TypeInvoice, result.DocumentType)
	assert.Equal(t, "FACTURA No. 42\nTotal: $1,000.00", result.FullText)
	assert.Equal(t, 2, result.PageCount)
	require.Len(t, result.Entities["invoice_number"], 1)
	assert.Equal(t, "42", result.Entities["invoice_number"][0].Text)
	assert.Equal(t, "2023-12-01", result.KeyValuePairs["Due date"].Value)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, 2, result.Tables[0].Page)

	// The type-specific pass keeps the fields that match invoice hints and
	// ignores the rest.
	require.Len(t, result.TypeSpecific, 2)
	assert.Equal(t, "42", result.TypeSpecific["invoice_number"].Value)
	assert.Equal(t, "$1,000.00", result.TypeSpecific["total_amount"].Value)
	assert.NotContains(t, result.TypeSpecific, "shipping_address")

	completions := publisher.completions()
	require.Len(t, completions, 1)
	assert.Equal(t, bus.StatusExtractionCompleted, completions[0].Status)
	assert.Equal(t, bus.StageExtraction, completions[0].Stage)
	assert.Equal(t, models.ExtractionResultPath("invoice.pdf"), completions[0].ArtifactPath)
	assert.Equal(t, []string{"invoice_number", "total_amount"}, completions[0].ExtractedFields)
}

func TestExtractor_TriggersOnEitherUpstreamCompletion(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	publisher := &capturePublisher{}
	engine := &stubExtractor{}
	require.NoError(t, store.Put(ctx, testIntake, "doc.pdf", []byte("%PDF"), ""))

	f := newTestExtractor(store, publisher, engine)

	msg := ocrCompleteMsg("doc.pdf", models.TypeGeneral)
	require.NoError(t, f.Process(ctx, msg))

	msg.Status = bus.StatusBackupCompleted
	msg.Stage = bus.StageArchive
	require.NoError(t, f.Process(ctx, msg))

	assert.Equal(t, 2, engine.Calls)

	// Its own completion is acknowledged without re-extracting.
	msg.Status = bus.StatusExtractionCompleted
	msg.Stage = bus.StageExtraction
	require.NoError(t, f.Process(ctx, msg))
	assert.Equal(t, 2, engine.Calls)
}

func TestExtractor_MimeTypeFromExtension(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	engine := &stubExtractor{}
	f := newTestExtractor(store, &capturePublisher{}, engine)

	tests := []struct {
		documentID string
		want       string
	}{
		{"scan.JPG", "image/jpeg"},
		{"photo.png", "image/png"},
		{"doc.pdf", "application/pdf"},
		{"no-extension", "application/pdf"},
	}
	for _, tt := range tests {
		require.NoError(t, store.Put(ctx, testIntake, tt.documentID, []byte("data"), ""))
		require.NoError(t, f.Process(ctx, ocrCompleteMsg(tt.documentID, models.TypeGeneral)))
		assert.Equal(t, tt.want, engine.LastMime, tt.documentID)
	}
}

func TestExtractor_GeneralTypeHasNoTypeSpecificPass(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	publisher := &capturePublisher{}
	engine := &stubExtractor{
		ExtractFunc: func(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
			return invoiceDocument(), nil
		},
	}
	require.NoError(t, store.Put(ctx, testIntake, "doc.pdf", []byte("%PDF"), ""))

	f := newTestExtractor(store, publisher, engine)
	require.NoError(t, f.Process(ctx, ocrCompleteMsg("doc.pdf", models.TypeGeneral)))

	data, err := store.Get(ctx, testResults, models.ExtractionResultPath("doc.pdf"))
	require.NoError(t, err)
	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Empty(t, result.TypeSpecific)

	completions := publisher.completions()
	require.Len(t, completions, 1)
	assert.Empty(t, completions[0].ExtractedFields)
}

func TestExtractor_MissingOriginalIsPermanent(t *testing.T) {
	store := storage.NewMemStore()
	publisher := &capturePublisher{}
	f := newTestExtractor(store, publisher, &stubExtractor{})

	err := f.Process(context.Background(), ocrCompleteMsg("ghost.pdf", models.TypeGeneral))
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Empty(t, publisher.Messages)
}

func TestExtractor_EngineFailureLeavesNoArtifact(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	publisher := &capturePublisher{}
	engine := &stubExtractor{
		ExtractFunc: func(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
			return nil, errBoom
		},
	}
	require.NoError(t, store.Put(ctx, testIntake, "doc.pdf", []byte("%PDF"), ""))

	f := newTestExtractor(store, publisher, engine)
	err := f.Process(ctx, ocrCompleteMsg("doc.pdf", models.TypeGeneral))
	require.Error(t, err)
	assert.False(t, IsPermanent(err))

	exists, _ := store.Exists(ctx, testResults, models.ExtractionResultPath("doc.pdf"))
	assert.False(t, exists)
	assert.Empty(t, publisher.Messages)
}

func TestExtractor_RedeliveryOverwritesResult(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	publisher := &capturePublisher{}
	engine := &stubExtractor{
		ExtractFunc: func(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
			return invoiceDocument(), nil
		},
	}
	require.NoError(t, store.Put(ctx, testIntake, "invoice.pdf", []byte("%PDF"), ""))

	f := newTestExtractor(store, publisher, engine)
	msg := ocrCompleteMsg("invoice.pdf", models.TypeInvoice)
	require.NoError(t, f.Process(ctx, msg))
	require.NoError(t, f.Process(ctx, msg))

	infos, err := store.List(ctx, testResults, models.ExtractedInfoPrefix)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}
