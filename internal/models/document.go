package models

import "time"

// DocumentType is the closed set of classification labels assigned to a
// document from its recognized text. It drives the archive partition layout
// and the type-specific extraction pass.
type DocumentType string

const (
	TypeInvoice        DocumentType = "invoice"
	TypeContract       DocumentType = "contract"
	TypeIdentification DocumentType = "identification"
	TypeReport         DocumentType = "report"
	TypeGeneral        DocumentType = "general"
)

// DocumentTypes returns all document types in their fixed priority order.
// Classification tests the types in this order, and the status resolver scans
// archive prefixes in this order.
func DocumentTypes() []DocumentType {
	return []DocumentType{TypeInvoice, TypeContract, TypeIdentification, TypeReport, TypeGeneral}
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeInvoice, TypeContract, TypeIdentification, TypeReport, TypeGeneral:
		return true
	}
	return false
}

// Pipeline states reported by the status resolver.
const (
	StateCompleted  = "completed"
	StateProcessing = "processing"
	StateNotFound   = "not_found"
)

// DocumentStatus is a point-in-time view of a document's pipeline progress,
// derived entirely from artifact presence in storage.
type DocumentStatus struct {
	DocumentID          string    `json:"document_id"`
	State               string    `json:"status"`
	OCRCompleted        bool      `json:"ocr_completed"`
	BackupCompleted     bool      `json:"backup_completed"`
	ExtractionCompleted bool      `json:"extraction_completed"`
	BackupPath          string    `json:"backup_path,omitempty"`
	CheckedAt           time.Time `json:"timestamp"`
}

// DocumentInfo aggregates everything the pipeline has produced for a document.
type DocumentInfo struct {
	DocumentID    string            `json:"document_id"`
	DocumentType  DocumentType      `json:"document_type"`
	OCRText       string            `json:"ocr_text,omitempty"`
	ExtractedInfo *ExtractionResult `json:"extracted_info,omitempty"`
	BackupPath    string            `json:"backup_path,omitempty"`
}
