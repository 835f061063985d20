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

// routerBus is an in-process stand-in for the shared topic: every published
// stage completion is fanned out to all registered handlers, mirroring how the
// deployed functions each hold a subscription on the same topic.
type routerBus struct {
	handlers []func(ctx context.Context, msg bus.StageComplete) error
	queue    []bus.StageComplete
}

func (r *routerBus) Publish(ctx context.Context, msg bus.Message) error {
	if sc, ok := msg.(bus.StageComplete); ok {
		r.queue = append(r.queue, sc)
	}
	return nil
}

func (r *routerBus) drain(ctx context.Context, t *testing.T) {
	t.Helper()
	for len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		for _, handle := range r.handlers {
			require.NoError(t, handle(ctx, msg))
		}
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	router := &routerBus{}

	recognizer := NewRecognizer(store, router, &stubRecognizer{
		RecognizeFunc: func(ctx context.Context, content []byte) (string, error) {
			return "FACTURA No. 42\nTotal: $1,000.00", nil
		},
	}, RecognizerConfig{IntakeBucket: testIntake, ResultsBucket: testResults})

	archiver := NewArchiver(store, router, ArchiverConfig{
		IntakeBucket:  testIntake,
		ResultsBucket: testResults,
		ArchiveBucket: testArchive,
	})

	extractor := NewExtractor(store, router, &stubExtractor{
		ExtractFunc: func(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
			return invoiceDocument(), nil
		},
	}, ExtractorConfig{IntakeBucket: testIntake, ResultsBucket: testResults})

	router.handlers = []func(ctx context.Context, msg bus.StageComplete) error{
		archiver.Process,
		extractor.Process,
	}

	// A new document lands in intake and its arrival notice fires the
	// recognition stage. The remaining stages run off the topic.
	documentID := "20231104_093012_invoice_2023.pdf"
	require.NoError(t, store.Put(ctx, testIntake, documentID, []byte("%PDF"), "application/pdf"))
	require.NoError(t, recognizer.Process(ctx, bus.ArrivalNotice{DocumentID: documentID}))
	router.drain(ctx, t)

	resolver := NewStatusResolver(store, ResolverConfig{
		IntakeBucket:  testIntake,
		ResultsBucket: testResults,
		ArchiveBucket: testArchive,
	})

	status, err := resolver.Resolve(ctx, documentID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, status.State)
	assert.True(t, status.OCRCompleted)
	assert.True(t, status.BackupCompleted)
	assert.True(t, status.ExtractionCompleted)
	assert.Contains(t, status.BackupPath, "invoice/")

	data, err := store.Get(ctx, testResults, models.ExtractionResultPath(documentID))
	require.NoError(t, err)
	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, models.TypeInvoice, result.DocumentType)
	assert.Equal(t, "$1,000.00", result.TypeSpecific["total_amount"].Value)

	info, err := resolver.Info(ctx, documentID)
	require.NoError(t, err)
	assert.Equal(t, models.TypeInvoice, info.DocumentType)
	assert.Contains(t, info.OCRText, "FACTURA")
	assert.Equal(t, status.BackupPath, info.BackupPath)
}

func TestPipeline_StageFailureLeavesDocumentProcessing(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemStore()
	router := &routerBus{}

	recognizer := NewRecognizer(mem, router, &stubRecognizer{
		RecognizeFunc: func(ctx context.Context, content []byte) (string, error) {
			return "informe trimestral", nil
		},
	}, RecognizerConfig{IntakeBucket: testIntake, ResultsBucket: testResults})

	// The archive copy fails, so no manifest and no backup completion.
	broken := &hookStore{ObjectStore: mem, CopyErr: errBoom}
	archiver := NewArchiver(broken, router, ArchiverConfig{
		IntakeBucket:  testIntake,
		ResultsBucket: testResults,
		ArchiveBucket: testArchive,
	})

	require.NoError(t, mem.Put(ctx, testIntake, "report.pdf", []byte("%PDF"), ""))
	require.NoError(t, recognizer.Process(ctx, bus.ArrivalNotice{DocumentID: "report.pdf"}))

	require.Len(t, router.queue, 1)
	msg := router.queue[0]
	router.queue = nil
	require.Error(t, archiver.Process(ctx, msg))

	resolver := NewStatusResolver(mem, ResolverConfig{
		IntakeBucket:  testIntake,
		ResultsBucket: testResults,
		ArchiveBucket: testArchive,
	})
	status, err := resolver.Resolve(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.StateProcessing, status.State)
	assert.True(t, status.OCRCompleted)
	assert.False(t, status.BackupCompleted)
}
