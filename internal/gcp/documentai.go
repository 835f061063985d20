package gcp

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/acastillo/docpipeline/internal/models"
)

// DocAIConfig identifies the Document AI processor to run documents through.
// Processor selection happens here, outside the extraction stage.
type DocAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// DocAIExtractor implements the structured-extraction capability with
// Google Cloud Document AI.
type DocAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocAIConfig
}

// NewDocAIExtractor creates a Document AI-backed extractor bound to a
// regional endpoint.
func NewDocAIExtractor(ctx context.Context, config DocAIConfig) (*DocAIExtractor, error) {
	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, fmt.Errorf("DocAIConfig requires ProjectID and ProcessorID")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocAIExtractor{client: client, config: config}, nil
}

// Extract processes the raw document and normalizes the response into the
// engine-neutral StructuredDocument form.
func (e *DocAIExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*models.StructuredDocument, error) {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
	resp, err := e.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("document processing failed: %w", err)
	}
	return normalizeDocument(resp.GetDocument()), nil
}

// Close releases the underlying client.
func (e *DocAIExtractor) Close() error {
	return e.client.Close()
}

func normalizeDocument(doc *documentaipb.Document) *models.StructuredDocument {
	out := &models.StructuredDocument{
		Text:      doc.GetText(),
		PageCount: len(doc.GetPages()),
	}

	for _, entity := range doc.GetEntities() {
		page := 0
		if refs := entity.GetPageAnchor().GetPageRefs(); len(refs) > 0 {
			page = int(refs[0].GetPage())
		}
		out.Entities = append(out.Entities, models.Entity{
			Type:       entity.GetType(),
			Text:       entity.GetMentionText(),
			Confidence: float64(entity.GetConfidence()),
			Page:       page,
		})
	}

	for _, page := range doc.GetPages() {
		pageNumber := int(page.GetPageNumber())
		for _, field := range page.GetFormFields() {
			out.FormFields = append(out.FormFields, models.FormField{
				Name:       field.GetFieldName().GetTextAnchor().GetContent(),
				Value:      field.GetFieldValue().GetTextAnchor().GetContent(),
				Confidence: float64(field.GetFieldName().GetConfidence()),
				Page:       pageNumber,
			})
		}
		for _, table := range page.GetTables() {
			var rows [][]string
			for _, row := range table.GetHeaderRows() {
				rows = append(rows, tableRow(row))
			}
			for _, row := range table.GetBodyRows() {
				rows = append(rows, tableRow(row))
			}
			out.Tables = append(out.Tables, models.TableData{Page: pageNumber, Rows: rows})
		}
	}
	return out
}

func tableRow(row *documentaipb.Document_Page_Table_TableRow) []string {
	var cells []string
	for _, cell := range row.GetCells() {
		cells = append(cells, cell.GetLayout().GetTextAnchor().GetContent())
	}
	return cells
}
